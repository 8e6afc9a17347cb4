package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrMalformedPayload marks tool output that is not the expected JSON.
	ErrMalformedPayload = errors.New("malformed tool payload")

	// ErrDirectoryPayload is returned by GetFileContents when the path names a directory.
	ErrDirectoryPayload = errors.New("path is a directory")
)

// CodeSearchItem is one hit of a code search.
type CodeSearchItem struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	HTMLURL string `json:"html_url"`
}

// SearchCodeResult is the decoded search_code payload.
type SearchCodeResult struct {
	TotalCount int              `json:"total_count"`
	Items      []CodeSearchItem `json:"items"`
}

// FileContents is the decoded get_file_contents payload for a single file.
type FileContents struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Encoding    string `json:"encoding"`
	Content     string `json:"content"`
	DownloadURL string `json:"download_url"`
	Size        *int   `json:"size"`
}

// RepositoryLicense is the license block of a repository search hit.
type RepositoryLicense struct {
	SPDXID string `json:"spdx_id"`
	Name   string `json:"name"`
}

// RepositoryItem is one hit of a repository search.
type RepositoryItem struct {
	FullName        string             `json:"full_name"`
	Description     string             `json:"description"`
	DefaultBranch   string             `json:"default_branch"`
	Language        string             `json:"language"`
	Topics          []string           `json:"topics"`
	License         *RepositoryLicense `json:"license"`
	StargazersCount int                `json:"stargazers_count"`
	ForksCount      int                `json:"forks_count"`
	OpenIssuesCount int                `json:"open_issues_count"`
	HTMLURL         string             `json:"html_url"`
}

// SearchRepositoriesResult is the decoded search_repositories payload.
type SearchRepositoriesResult struct {
	TotalCount int              `json:"total_count"`
	Items      []RepositoryItem `json:"items"`
}

// Issue is the decoded create_issue payload.
type Issue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// GitHubTools decodes the GitHub tool calls the analyzer relies on.
// Untyped JSON never leaves this type.
type GitHubTools struct {
	ch     Channel
	logger *zap.Logger
}

func NewGitHubTools(ch Channel, logger *zap.Logger) *GitHubTools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubTools{ch: ch, logger: logger}
}

// SearchCode runs a code search.
//
// Transport and tool-level failures are returned as errors. A result with no
// content, or content that does not decode, is reported as zero items.
func (t *GitHubTools) SearchCode(ctx context.Context, query string) (SearchCodeResult, error) {
	var out SearchCodeResult
	text, err := t.call(ctx, ToolSearchCode, map[string]any{"q": query})
	if errors.Is(err, ErrEmptyResult) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.logger.Debug("discarding malformed search payload", zap.String("query", query), zap.Error(err))
		return SearchCodeResult{}, nil
	}
	return out, nil
}

// GetFileContents fetches one file at ref.
func (t *GitHubTools) GetFileContents(ctx context.Context, owner, repo, path, ref string) (FileContents, error) {
	var out FileContents
	args := map[string]any{
		"owner": owner,
		"repo":  repo,
		"path":  path,
	}
	if ref != "" {
		// server-github reads "branch"; github-mcp-server reads "ref".
		args["ref"] = ref
		args["branch"] = ref
	}
	text, err := t.call(ctx, ToolGetFileContents, args)
	if err != nil {
		return out, err
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		return out, fmt.Errorf("%s %s: %w", ToolGetFileContents, path, ErrDirectoryPayload)
	}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return FileContents{}, fmt.Errorf("%s %s: %w: %v", ToolGetFileContents, path, ErrMalformedPayload, err)
	}
	if out.Type == "dir" {
		return FileContents{}, fmt.Errorf("%s %s: %w", ToolGetFileContents, path, ErrDirectoryPayload)
	}
	return out, nil
}

// SearchRepositories runs a repository search.
func (t *GitHubTools) SearchRepositories(ctx context.Context, query string) (SearchRepositoriesResult, error) {
	var out SearchRepositoriesResult
	text, err := t.call(ctx, ToolSearchRepositories, map[string]any{"query": query})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return SearchRepositoriesResult{}, fmt.Errorf("%s: %w: %v", ToolSearchRepositories, ErrMalformedPayload, err)
	}
	return out, nil
}

// CreateIssue opens an issue.
func (t *GitHubTools) CreateIssue(ctx context.Context, owner, repo, title, body string) (Issue, error) {
	var out Issue
	text, err := t.call(ctx, ToolCreateIssue, map[string]any{
		"owner": owner,
		"repo":  repo,
		"title": title,
		"body":  body,
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Issue{}, fmt.Errorf("%s: %w: %v", ToolCreateIssue, ErrMalformedPayload, err)
	}
	return out, nil
}

func (t *GitHubTools) call(ctx context.Context, name string, args map[string]any) (string, error) {
	if t == nil || t.ch == nil {
		return "", ErrNotConnected
	}
	t.logger.Debug("calling tool", zap.String("tool", name))
	res, err := t.ch.CallTool(ctx, name, args)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	if err := res.Err(name); err != nil {
		return "", err
	}
	text, ok := res.Text()
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrEmptyResult)
	}
	return text, nil
}
