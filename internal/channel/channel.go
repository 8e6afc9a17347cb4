// Package channel issues named tool calls against a repository host.
//
// Two transports are provided: an MCP client talking to a GitHub MCP server
// child process over stdio, and a REST adapter that answers the same tool
// names through the GitHub API. Both return tool output as JSON text, which
// GitHubTools decodes into typed payloads.
package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Tool names understood by both transports.
const (
	ToolSearchCode         = "search_code"
	ToolGetFileContents    = "get_file_contents"
	ToolSearchRepositories = "search_repositories"
	ToolCreateIssue        = "create_issue"
)

var (
	// ErrNotConnected is returned by calls on a channel that was never
	// connected or has been closed.
	ErrNotConnected = errors.New("tool channel not connected")

	// ErrToolFailed marks a call that reached the server but was answered
	// with a tool-level error.
	ErrToolFailed = errors.New("tool call failed")

	// ErrEmptyResult marks a call whose result carried no text content.
	ErrEmptyResult = errors.New("tool returned no content")
)

// Channel is a connected request/response link to a tool server.
type Channel interface {
	CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error)
	ListTools(ctx context.Context) ([]Tool, error)
	Close() error
}

// Tool describes one tool advertised by the server.
type Tool struct {
	Name        string
	Description string
}

// ToolResult is the transport-neutral result of one tool call.
type ToolResult struct {
	Texts   []string
	IsError bool
}

// Text returns the first text block of the result.
func (r ToolResult) Text() (string, bool) {
	for _, t := range r.Texts {
		if t != "" {
			return t, true
		}
	}
	return "", false
}

// Err converts a tool-level error result into an error wrapping ErrToolFailed.
func (r ToolResult) Err(name string) error {
	if !r.IsError {
		return nil
	}
	msg := strings.TrimSpace(strings.Join(r.Texts, " "))
	if msg == "" {
		return fmt.Errorf("%s: %w", name, ErrToolFailed)
	}
	return fmt.Errorf("%s: %w: %s", name, ErrToolFailed, msg)
}

// ToolNames returns the names of tools, in order.
func ToolNames(tools []Tool) []string {
	return lo.Map(tools, func(t Tool, _ int) string { return t.Name })
}
