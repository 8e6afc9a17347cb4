package prompt

import (
	"strings"
	"testing"

	"repobrief/internal/data"
)

func record(path, lang, text string) data.File {
	return data.File{Path: path, Name: data.BaseName(path), Content: text, Size: len(text), Language: lang}
}

func TestBuild_Layout(t *testing.T) {
	ds := data.NewDataset()
	ds.Add(record("lisp/eval.lisp", "lisp", "(defun eval ())"))
	ds.Add(record("lisp/README.md", "markdown", "# Interp"))
	ds.AddStructureLine("lisp/eval.lisp")
	ds.AddStructureLine("lisp/README.md")
	ds.Metadata = &data.Metadata{FullName: "o/r", Stars: 3}

	got := Build("Summarize.", ds)

	want := "Summarize." +
		"\n\n## Repository Files:\n" +
		"\n### lisp/eval.lisp\n```lisp\n(defun eval ())\n```\n" +
		"\n### lisp/README.md\n```markdown\n# Interp\n```\n" +
		"\n\n## Directory Structure:\n```\nlisp/eval.lisp\nlisp/README.md\n```\n" +
		"\n\n## Repository Metadata:\n{\n  \"full_name\": \"o/r\",\n  \"stars\": 3,\n  \"forks\": 0,\n  \"open_issues\": 0\n}"
	if got != want {
		t.Fatalf("unexpected prompt:\n%s\n--- want ---\n%s", got, want)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	ds := data.NewDataset()
	ds.Add(record("a.go", "go", "package a"))
	ds.AddStructureLine("a.go")

	first := Build(SummaryInstruction, ds)
	second := Build(SummaryInstruction, ds)
	if first != second {
		t.Fatalf("Build is not deterministic")
	}
	if !strings.HasPrefix(first, SummaryInstruction) {
		t.Fatalf("instruction must come first")
	}
}

func TestBuild_TruncationBoundary(t *testing.T) {
	tests := []struct {
		name       string
		runes      int
		wantMarker bool
	}{
		{name: "exactly at limit", runes: MaxPromptFileRunes, wantMarker: false},
		{name: "one over limit", runes: MaxPromptFileRunes + 1, wantMarker: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Repeat("λ", tt.runes)
			ds := data.NewDataset()
			ds.Add(record("big.scm", "scheme", body))

			got := Build("x", ds)
			if strings.Contains(got, TruncationMarker) != tt.wantMarker {
				t.Fatalf("marker presence = %v, want %v", !tt.wantMarker, tt.wantMarker)
			}
			if tt.wantMarker {
				kept := strings.Repeat("λ", MaxPromptFileRunes) + TruncationMarker + "\n```"
				if !strings.Contains(got, kept) {
					t.Fatalf("expected content cut to %d runes followed by the marker", MaxPromptFileRunes)
				}
				if strings.Contains(got, strings.Repeat("λ", MaxPromptFileRunes+1)) {
					t.Fatalf("content was not cut")
				}
			} else if !strings.Contains(got, body+"\n```") {
				t.Fatalf("content at the limit must be untouched")
			}
		})
	}
}

func TestBuild_OmitsEmptySections(t *testing.T) {
	ds := data.NewDataset()
	ds.Add(data.File{Path: "empty.txt", Language: "text"})

	got := Build("x", ds)
	if got != "x\n\n## Repository Files:\n\n### empty.txt\n" {
		t.Fatalf("unexpected prompt %q", got)
	}

	if got := Build("only", data.NewDataset()); got != "only" {
		t.Fatalf("unexpected prompt %q", got)
	}
	if got := Build("only", nil); got != "only" {
		t.Fatalf("unexpected prompt %q", got)
	}
}

func TestExplainInstruction(t *testing.T) {
	if got := ExplainInstruction("src/parser.js"); got != `Explain the purpose and functionality of "src/parser.js" in detail.` {
		t.Fatalf("unexpected instruction %q", got)
	}
}

func TestTiktokenCounter_NilEncoder(t *testing.T) {
	var c tiktokenCounter
	if _, err := c.CountString("hello"); err == nil {
		t.Fatalf("expected error for nil encoder")
	}
}
