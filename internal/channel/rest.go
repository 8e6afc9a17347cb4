package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	gh "repobrief/internal/github"

	"github.com/google/go-github/v81/github"
	"go.uber.org/zap"
)

// Search and core endpoints are rate limited separately by GitHub.
const (
	initialSearchBudget = 30
	initialCoreBudget   = 5000
	searchPageSize      = 100
)

var restTools = []Tool{
	{Name: ToolSearchCode, Description: "Search for code across GitHub repositories"},
	{Name: ToolGetFileContents, Description: "Get the contents of a file or directory from a GitHub repository"},
	{Name: ToolSearchRepositories, Description: "Search for GitHub repositories"},
	{Name: ToolCreateIssue, Description: "Create a new issue in a GitHub repository"},
}

// RESTChannel answers the GitHub tool names through the REST API, producing
// the same JSON payloads as the GitHub MCP server.
type RESTChannel struct {
	client *gh.Client
	search *gh.RateBudget
	core   *gh.RateBudget
	logger *zap.Logger
	closed atomic.Bool
}

func NewREST(client *gh.Client, logger *zap.Logger) (*RESTChannel, error) {
	if client == nil || client.Client == nil {
		return nil, errors.New("rest channel: nil GitHub client")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RESTChannel{
		client: client,
		search: gh.NewRateBudget(initialSearchBudget),
		core:   gh.NewRateBudget(initialCoreBudget),
		logger: logger,
	}, nil
}

func (r *RESTChannel) ListTools(context.Context) ([]Tool, error) {
	if r.closed.Load() {
		return nil, ErrNotConnected
	}
	return append([]Tool(nil), restTools...), nil
}

func (r *RESTChannel) Close() error {
	r.closed.Store(true)
	return nil
}

func (r *RESTChannel) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	if r.closed.Load() {
		return ToolResult{}, ErrNotConnected
	}

	var (
		payload any
		err     error
	)
	switch name {
	case ToolSearchCode:
		payload, err = r.searchCode(ctx, stringArg(args, "q", "query"))
	case ToolGetFileContents:
		payload, err = r.getFileContents(ctx,
			stringArg(args, "owner"), stringArg(args, "repo"), stringArg(args, "path"), stringArg(args, "ref", "branch"))
	case ToolSearchRepositories:
		payload, err = r.searchRepositories(ctx, stringArg(args, "query", "q"))
	case ToolCreateIssue:
		payload, err = r.createIssue(ctx,
			stringArg(args, "owner"), stringArg(args, "repo"), stringArg(args, "title"), stringArg(args, "body"))
	default:
		return errorResult(fmt.Sprintf("unknown tool: %s", name)), nil
	}

	if err != nil {
		// API answers become tool errors like the MCP server reports them;
		// anything else is a transport failure.
		var apiErr *github.ErrorResponse
		if errors.As(err, &apiErr) {
			return errorResult(apiErrorMessage(apiErr)), nil
		}
		return ToolResult{}, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ToolResult{}, fmt.Errorf("rest channel: encode %s result: %w", name, err)
	}
	return ToolResult{Texts: []string{string(raw)}}, nil
}

func (r *RESTChannel) searchCode(ctx context.Context, query string) (any, error) {
	if err := r.search.Acquire(ctx); err != nil {
		return nil, err
	}
	res, resp, err := r.client.Client.Search.Code(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: searchPageSize},
	})
	if resp != nil {
		r.search.Observe(resp.Response)
	}
	if err != nil {
		return nil, err
	}

	out := SearchCodeResult{TotalCount: res.GetTotal(), Items: make([]CodeSearchItem, 0, len(res.CodeResults))}
	for _, hit := range res.CodeResults {
		out.Items = append(out.Items, CodeSearchItem{
			Name:    hit.GetName(),
			Path:    hit.GetPath(),
			HTMLURL: hit.GetHTMLURL(),
		})
	}
	return out, nil
}

func (r *RESTChannel) getFileContents(ctx context.Context, owner, repo, path, ref string) (any, error) {
	if err := r.core.Acquire(ctx); err != nil {
		return nil, err
	}
	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}
	file, dir, resp, err := r.client.Client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if resp != nil {
		r.core.Observe(resp.Response)
	}
	if err != nil {
		return nil, err
	}

	if file == nil {
		listing := make([]FileContents, 0, len(dir))
		for _, entry := range dir {
			listing = append(listing, contentsFrom(entry))
		}
		return listing, nil
	}
	return contentsFrom(file), nil
}

func contentsFrom(c *github.RepositoryContent) FileContents {
	out := FileContents{
		Type:        c.GetType(),
		Name:        c.GetName(),
		Path:        c.GetPath(),
		Encoding:    c.GetEncoding(),
		DownloadURL: c.GetDownloadURL(),
		Size:        c.Size,
	}
	// The raw field, not GetContent, which decodes.
	if c.Content != nil {
		out.Content = *c.Content
	}
	return out
}

func (r *RESTChannel) searchRepositories(ctx context.Context, query string) (any, error) {
	if err := r.search.Acquire(ctx); err != nil {
		return nil, err
	}
	res, resp, err := r.client.Client.Search.Repositories(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 10},
	})
	if resp != nil {
		r.search.Observe(resp.Response)
	}
	if err != nil {
		return nil, err
	}

	out := SearchRepositoriesResult{TotalCount: res.GetTotal(), Items: make([]RepositoryItem, 0, len(res.Repositories))}
	for _, repo := range res.Repositories {
		item := RepositoryItem{
			FullName:        repo.GetFullName(),
			Description:     repo.GetDescription(),
			DefaultBranch:   repo.GetDefaultBranch(),
			Language:        repo.GetLanguage(),
			Topics:          repo.Topics,
			StargazersCount: repo.GetStargazersCount(),
			ForksCount:      repo.GetForksCount(),
			OpenIssuesCount: repo.GetOpenIssuesCount(),
			HTMLURL:         repo.GetHTMLURL(),
		}
		if lic := repo.GetLicense(); lic != nil {
			item.License = &RepositoryLicense{SPDXID: lic.GetSPDXID(), Name: lic.GetName()}
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (r *RESTChannel) createIssue(ctx context.Context, owner, repo, title, body string) (any, error) {
	if err := r.core.Acquire(ctx); err != nil {
		return nil, err
	}
	issue, resp, err := r.client.Client.Issues.Create(ctx, owner, repo, &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	})
	if resp != nil {
		r.core.Observe(resp.Response)
	}
	if err != nil {
		return nil, err
	}
	return Issue{Number: issue.GetNumber(), HTMLURL: issue.GetHTMLURL()}, nil
}

func errorResult(msg string) ToolResult {
	return ToolResult{Texts: []string{msg}, IsError: true}
}

func apiErrorMessage(er *github.ErrorResponse) string {
	msg := strings.TrimSpace(er.Message)
	if er.Response != nil {
		if msg == "" {
			return fmt.Sprintf("GitHub API error: %d", er.Response.StatusCode)
		}
		return fmt.Sprintf("GitHub API error: %d %s", er.Response.StatusCode, msg)
	}
	if msg == "" {
		return "GitHub API error"
	}
	return "GitHub API error: " + msg
}

// stringArg returns the first non-empty string argument among keys.
func stringArg(args map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := args[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
