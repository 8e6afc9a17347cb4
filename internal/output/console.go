package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

const ruleWidth = 50

// ConsoleSink prints reports for a human ("text") or a pipe ("json").
type ConsoleSink struct {
	writer io.Writer
	format string
	mu     sync.Mutex
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &ConsoleSink{writer: w, format: format}
}

func (s *ConsoleSink) Write(r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(r); err != nil {
			return err
		}
	case "text":
		if err := writeText(s.writer, r); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return flushIfPossible(s.writer)
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.format != "text" && s.format != "json" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}

func writeText(w io.Writer, r Report) error {
	bold := color.New(color.Bold)
	heavy := strings.Repeat("═", ruleWidth)
	light := strings.Repeat("─", ruleWidth)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", heavy)
	b.WriteString(bold.Sprint("ANALYSIS REPORT"))
	fmt.Fprintf(&b, "\n%s\n", heavy)
	fmt.Fprintf(&b, "\n%s %d\n", bold.Sprint("Files Analyzed:"), r.FilesAnalyzed)
	fmt.Fprintf(&b, "%s %s\n\n", bold.Sprint("Repository:"), r.Repository)
	fmt.Fprintf(&b, "%s\n%s\n%s\n", light, r.Analysis, light)

	if len(r.Structure) > 0 {
		fmt.Fprintf(&b, "\n%s\n\n", bold.Sprint("Repository Structure:"))
		for _, line := range r.Structure {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	if r.IssueURL != "" {
		fmt.Fprintf(&b, "\n%s %s\n", color.GreenString("Issue created:"), r.IssueURL)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
