package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileSink writes reports to a file as JSON, YAML or Markdown. Reports are
// buffered and written on Close, so a failed run leaves no partial file.
type FileSink struct {
	path    string
	format  string
	mu      sync.Mutex
	reports []Report
}

func NewFileSink(path string, format string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}

	if format == "" {
		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".json":
			format = "json"
		case ".yaml", ".yml":
			format = "yaml"
		case ".md", ".markdown":
			format = "markdown"
		default:
			return nil, fmt.Errorf("cannot infer output format from file extension %q", ext)
		}
	}
	if format != "json" && format != "yaml" && format != "markdown" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	return &FileSink{path: path, format: format}, nil
}

func (s *FileSink) Write(r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.reports) == 0 {
		return nil
	}

	var body []byte
	switch s.format {
	case "json":
		var v any = s.reports
		if len(s.reports) == 1 {
			v = s.reports[0]
		}
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		body = append(raw, '\n')
	case "yaml":
		var v any = s.reports
		if len(s.reports) == 1 {
			v = s.reports[0]
		}
		raw, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		body = raw
	case "markdown":
		var b strings.Builder
		for i, r := range s.reports {
			if i > 0 {
				b.WriteString("\n---\n\n")
			}
			writeMarkdown(&b, r)
		}
		body = []byte(b.String())
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func writeMarkdown(b *strings.Builder, r Report) {
	fmt.Fprintf(b, "# Analysis of %s\n\n", r.Repository)
	fmt.Fprintf(b, "Files analyzed: %d\n\n", r.FilesAnalyzed)
	if r.IssueURL != "" {
		fmt.Fprintf(b, "Issue: %s\n\n", r.IssueURL)
	}
	b.WriteString(strings.TrimRight(r.Analysis, "\n"))
	b.WriteString("\n")
	if len(r.Structure) > 0 {
		b.WriteString("\n## Repository Structure\n\n")
		for _, line := range r.Structure {
			fmt.Fprintf(b, "- `%s`\n", line)
		}
	}
}
