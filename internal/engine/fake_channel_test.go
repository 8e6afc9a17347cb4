package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"repobrief/internal/channel"
)

var errTransport = errors.New("broken pipe")

type toolCall struct {
	Name string
	Args map[string]any
}

// fakeChannel answers tool calls from scripted tables keyed by query or path.
type fakeChannel struct {
	mu    sync.Mutex
	calls []toolCall

	// searches maps a search_code query to its result. Unlisted queries
	// return an empty item list.
	searches map[string]channel.ToolResult

	// searchErr fails every search_code call at the transport level.
	searchErr error

	// files maps a path to its get_file_contents result. Unlisted paths
	// answer with a 404 tool error.
	files map[string]channel.ToolResult

	repos  channel.ToolResult
	issue  channel.ToolResult
	closed bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		searches: make(map[string]channel.ToolResult),
		files:    make(map[string]channel.ToolResult),
		repos:    channel.ToolResult{Texts: []string{`{"total_count":0,"items":[]}`}},
		issue:    channel.ToolResult{Texts: []string{`{"number":7,"html_url":"https://github.test/o/r/issues/7"}`}},
	}
}

func (f *fakeChannel) CallTool(ctx context.Context, name string, args map[string]any) (channel.ToolResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, toolCall{Name: name, Args: args})
	if err := ctx.Err(); err != nil {
		return channel.ToolResult{}, err
	}

	switch name {
	case channel.ToolSearchCode:
		if f.searchErr != nil {
			return channel.ToolResult{}, f.searchErr
		}
		if res, ok := f.searches[args["q"].(string)]; ok {
			return res, nil
		}
		return textResult(`{"total_count":0,"items":[]}`), nil
	case channel.ToolGetFileContents:
		if res, ok := f.files[args["path"].(string)]; ok {
			return res, nil
		}
		return channel.ToolResult{Texts: []string{"404 Not Found"}, IsError: true}, nil
	case channel.ToolSearchRepositories:
		return f.repos, nil
	case channel.ToolCreateIssue:
		return f.issue, nil
	}
	return channel.ToolResult{}, fmt.Errorf("unknown tool %s", name)
}

func (f *fakeChannel) ListTools(context.Context) ([]channel.Tool, error) {
	return []channel.Tool{{Name: channel.ToolSearchCode}, {Name: channel.ToolGetFileContents}}, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func (f *fakeChannel) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Name == channel.ToolSearchCode {
			out = append(out, c.Args["q"].(string))
		}
	}
	return out
}

func (f *fakeChannel) fetchedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Name == channel.ToolGetFileContents {
			out = append(out, c.Args["path"].(string))
		}
	}
	return out
}

func (f *fakeChannel) callsTo(name string) []toolCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []toolCall
	for _, c := range f.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeChannel) addSearch(query string, paths ...string) {
	res := channel.SearchCodeResult{TotalCount: len(paths)}
	for _, p := range paths {
		res.Items = append(res.Items, channel.CodeSearchItem{
			Name:    p,
			Path:    p,
			HTMLURL: "https://github.test/blob/" + p,
		})
	}
	raw, _ := json.Marshal(res)
	f.searches[query] = textResult(string(raw))
}

func (f *fakeChannel) addFile(path, body string) {
	raw, _ := json.Marshal(channel.FileContents{
		Type:     "file",
		Path:     path,
		Encoding: "base64",
		Content:  base64.StdEncoding.EncodeToString([]byte(body)),
	})
	f.files[path] = textResult(string(raw))
}

func textResult(text string) channel.ToolResult {
	return channel.ToolResult{Texts: []string{text}}
}

// fakeGenerator records prompts and answers with a fixed reply or error.
type fakeGenerator struct {
	prompts []string
	reply   string
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}
