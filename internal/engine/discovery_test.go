package engine

import (
	"context"
	"testing"

	"repobrief/internal/channel"
	"repobrief/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestDiscoverer(ch channel.Channel, logger *zap.Logger) *Discoverer {
	return NewDiscoverer(channel.NewGitHubTools(ch, logger), DefaultStrategy(), logger)
}

func paths(files []data.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "repo:o/r", searchQuery("o", "r", "", ""))
	assert.Equal(t, "repo:o/r path:lisp-interpreter", searchQuery("o", "r", "lisp-interpreter", ""))
	assert.Equal(t, "repo:o/r path:src extension:py", searchQuery("o", "r", "src", "py"))
}

func TestDiscover_PrimaryHitsFilteredBySourceExtension(t *testing.T) {
	ch := newFakeChannel()
	ch.addSearch("repo:o/r path:lisp-interpreter",
		"lisp-interpreter/eval.lisp",
		"lisp-interpreter/logo.png",
		"lisp-interpreter/README.md",
	)

	ds, err := newTestDiscoverer(ch, nil).Discover(context.Background(), "o", "r", "lisp-interpreter")
	require.NoError(t, err)

	assert.Equal(t, []string{"repo:o/r path:lisp-interpreter"}, ch.queries())
	assert.Equal(t, []string{"lisp-interpreter/eval.lisp", "lisp-interpreter/README.md"}, paths(ds.Files))
	assert.Equal(t, []string{
		"lisp-interpreter/eval.lisp",
		"lisp-interpreter/logo.png",
		"lisp-interpreter/README.md",
	}, ds.Structure)

	for _, f := range ds.Files {
		assert.True(t, f.NeedsFetch)
		assert.Equal(t, "https://github.test/blob/"+f.Path, f.SourceURL)
	}
}

func TestDiscover_PrimaryHitsWithoutSourceFilesDoNotFallBack(t *testing.T) {
	ch := newFakeChannel()
	ch.addSearch("repo:o/r path:assets", "assets/logo.png")

	ds, err := newTestDiscoverer(ch, nil).Discover(context.Background(), "o", "r", "assets")
	require.NoError(t, err)

	assert.Len(t, ch.queries(), 1)
	assert.Empty(t, ds.Files)
	assert.Equal(t, []string{"assets/logo.png"}, ds.Structure)
}

func TestDiscover_SweepByExtension(t *testing.T) {
	ch := newFakeChannel()
	ch.addSearch("repo:o/r path:lisp extension:py", "lisp/main.py")
	ch.addSearch("repo:o/r path:lisp extension:lisp", "lisp/eval.lisp", "lisp/main.py")
	// A failing extension is skipped.
	ch.searches["repo:o/r path:lisp extension:md"] = channel.ToolResult{Texts: []string{"422"}, IsError: true}

	ds, err := newTestDiscoverer(ch, nil).Discover(context.Background(), "o", "r", "lisp")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"repo:o/r path:lisp",
		"repo:o/r path:lisp extension:js",
		"repo:o/r path:lisp extension:py",
		"repo:o/r path:lisp extension:md",
		"repo:o/r path:lisp extension:json",
		"repo:o/r path:lisp extension:txt",
		"repo:o/r path:lisp extension:lisp",
		"repo:o/r path:lisp extension:cl",
		"repo:o/r path:lisp extension:scm",
	}, ch.queries())
	assert.Equal(t, []string{"lisp/main.py", "lisp/eval.lisp"}, paths(ds.Files))
	assert.Equal(t, []string{"lisp/main.py", "lisp/eval.lisp"}, ds.Structure)
}

func TestDiscover_WellKnownFilesWhenNothingFound(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ch := newFakeChannel()

	ds, err := newTestDiscoverer(ch, zap.New(core)).Discover(context.Background(), "o", "r", "lisp-interpreter")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"lisp-interpreter/README.md",
		"lisp-interpreter/index.js",
		"lisp-interpreter/main.py",
		"lisp-interpreter/app.js",
		"lisp-interpreter/parser.js",
		"lisp-interpreter/evaluator.js",
	}, paths(ds.Files))
	assert.Empty(t, ds.Structure)
	for _, f := range ds.Files {
		assert.Empty(t, f.SourceURL)
		assert.True(t, f.NeedsFetch)
	}
	assert.Equal(t, 1, logs.FilterMessage("extension sweep found nothing, guessing well-known files").Len())
}

func TestDiscover_MalformedPrimaryPayloadCountsAsEmpty(t *testing.T) {
	ch := newFakeChannel()
	ch.searches["repo:o/r"] = textResult("<html>rate limited</html>")

	ds, err := newTestDiscoverer(ch, nil).Discover(context.Background(), "o", "r", "")
	require.NoError(t, err)

	assert.Len(t, ch.queries(), 1+len(DefaultStrategy().SweepExtensions))
	assert.Equal(t, DefaultStrategy().WellKnownFiles, paths(ds.Files))
}

func TestDiscover_TransportFailureUsesReducedList(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ch := newFakeChannel()
	ch.searchErr = errTransport

	ds, err := newTestDiscoverer(ch, zap.New(core)).Discover(context.Background(), "o", "r", "src")
	require.NoError(t, err)

	assert.Len(t, ch.queries(), 1, "no sweep after a failed primary search")
	assert.Equal(t, []string{"src/README.md", "src/index.js", "src/main.py", "src/package.json"}, paths(ds.Files))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "could not discover files, guessing common files", logs.All()[0].Message)
}

func TestDiscover_ToolErrorUsesReducedList(t *testing.T) {
	ch := newFakeChannel()
	ch.searches["repo:o/r"] = channel.ToolResult{Texts: []string{"Bad credentials"}, IsError: true}

	ds, err := newTestDiscoverer(ch, nil).Discover(context.Background(), "o", "r", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultStrategy().FallbackFiles, paths(ds.Files))
}

func TestDiscover_CustomStrategy(t *testing.T) {
	ch := newFakeChannel()
	s := Strategy{SweepExtensions: []string{"go"}, WellKnownFiles: []string{"main.go"}}

	ds, err := NewDiscoverer(channel.NewGitHubTools(ch, nil), s, nil).Discover(context.Background(), "o", "r", "cmd")
	require.NoError(t, err)

	assert.Equal(t, []string{"repo:o/r path:cmd", "repo:o/r path:cmd extension:go"}, ch.queries())
	assert.Equal(t, []string{"cmd/main.go"}, paths(ds.Files))
}

func TestDiscover_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestDiscoverer(newFakeChannel(), nil).Discover(ctx, "o", "r", "")
	assert.ErrorIs(t, err, context.Canceled)
}
