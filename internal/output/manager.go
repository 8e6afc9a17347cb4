// Package output renders analysis reports to the console and to files.
package output

import (
	"errors"
	"fmt"
	"io"

	"repobrief/internal/data"
)

// Report is what sinks render: the run result plus the context a reader
// needs to judge it.
type Report struct {
	data.Result `yaml:",inline"`

	// Structure lists every discovered path, one per entry.
	Structure []string `json:"structure,omitempty" yaml:"structure,omitempty"`

	// IssueURL is set when the analysis was also filed as an issue.
	IssueURL string `json:"issueUrl,omitempty" yaml:"issueUrl,omitempty"`
}

// Sink is a destination for reports.
type Sink interface {
	Write(r Report) error
	Close() error
}

// Manager fans reports out to every registered sink.
type Manager struct {
	sinks []Sink
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	if s == nil {
		return errors.New("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

// Write hands r to every sink, continuing past failures.
func (m *Manager) Write(r Report) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(r); err != nil {
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Close() error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// Len reports how many sinks are registered.
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.sinks)
}

type flusher interface {
	Flush() error
}

func flushIfPossible(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
