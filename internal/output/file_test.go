package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewFileSink_InferFormat(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		format  string
		want    string
		wantErr bool
	}{
		{name: "json extension", path: "out.json", want: "json"},
		{name: "md extension", path: "out.md", want: "markdown"},
		{name: "yaml extension", path: "out.yaml", want: "yaml"},
		{name: "explicit markdown", path: "out.txt", format: "markdown", want: "markdown"},
		{name: "unknown extension", path: "out.unknown", wantErr: true},
		{name: "unsupported format", path: "out.json", format: "ndjson", wantErr: true},
		{name: "empty path", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path != "" {
				path = filepath.Join(t.TempDir(), tt.path)
			}
			s, err := NewFileSink(path, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if s.format != tt.want {
				t.Fatalf("format = %q, want %q", s.format, tt.want)
			}
		})
	}
}

func TestFileSink_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.Write(sampleReport()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var got Report
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, raw)
	}
	if got.FilesAnalyzed != 2 || got.Repository != "Mmb0129/Quest1-Internship/lisp-interpreter" {
		t.Fatalf("unexpected report %+v", got)
	}
	if len(got.Structure) != 2 {
		t.Fatalf("expected structure to round through, got %v", got.Structure)
	}
}

func TestFileSink_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yml")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.Write(sampleReport()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(raw), "filesAnalyzed: 2\n") {
		t.Fatalf("expected inlined result fields:\n%s", raw)
	}
	var got Report
	if err := yaml.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, raw)
	}
	if got.Repository != "Mmb0129/Quest1-Internship/lisp-interpreter" || len(got.Structure) != 2 {
		t.Fatalf("unexpected report %+v", got)
	}
}

func TestFileSink_Markdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.Write(sampleReport()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	out := string(raw)
	for _, want := range []string{
		"# Analysis of Mmb0129/Quest1-Internship/lisp-interpreter\n",
		"Files analyzed: 2\n",
		"It is a Lisp interpreter.\n",
		"## Repository Structure\n",
		"- `lisp-interpreter/eval.lisp`\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestFileSink_NothingWrittenLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file, stat err = %v", err)
	}
}
