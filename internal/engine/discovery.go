package engine

import (
	"context"
	"fmt"
	"strings"

	"repobrief/internal/channel"
	"repobrief/internal/content"
	"repobrief/internal/data"

	"go.uber.org/zap"
)

// Strategy holds the fallback lists used by discovery.
type Strategy struct {
	// SweepExtensions are searched one by one when the primary search finds nothing.
	SweepExtensions []string

	// WellKnownFiles are guessed when the sweep finds nothing either.
	WellKnownFiles []string

	// FallbackFiles are guessed when the primary search cannot be run at all.
	FallbackFiles []string
}

func DefaultStrategy() Strategy {
	return Strategy{
		SweepExtensions: []string{"js", "py", "md", "json", "txt", "lisp", "cl", "scm"},
		WellKnownFiles:  []string{"README.md", "index.js", "main.py", "app.js", "parser.js", "evaluator.js"},
		FallbackFiles:   []string{"README.md", "index.js", "main.py", "package.json"},
	}
}

// Discoverer finds candidate files in a repository subtree.
type Discoverer struct {
	tools    *channel.GitHubTools
	strategy Strategy
	logger   *zap.Logger
}

func NewDiscoverer(tools *channel.GitHubTools, strategy Strategy, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{tools: tools, strategy: strategy, logger: logger}
}

// Discover runs the search cascade and returns a dataset of candidates.
//
// Tiers run in order, each only when the one before produced nothing usable:
// the primary subtree search, a per-extension sweep, then well-known
// filenames. When the primary search itself fails, the reduced fallback list
// is used instead and the other tiers are skipped. Only context cancellation
// is returned as an error.
func (d *Discoverer) Discover(ctx context.Context, owner, repo, subtree string) (*data.Dataset, error) {
	ds := data.NewDataset()

	query := searchQuery(owner, repo, subtree, "")
	d.logger.Info("searching for files", zap.String("query", query))

	res, err := d.tools.SearchCode(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.logger.Warn("could not discover files, guessing common files", zap.Error(err))
		d.synthesize(ds, subtree, d.strategy.FallbackFiles)
		return ds, nil
	}

	if len(res.Items) > 0 {
		d.logger.Info("found files", zap.Int("count", len(res.Items)))
		d.accumulate(ds, res.Items, true)
		return ds, nil
	}

	d.logger.Warn("no files found in search results, sweeping by extension")
	for _, ext := range d.strategy.SweepExtensions {
		q := searchQuery(owner, repo, subtree, ext)
		res, err := d.tools.SearchCode(ctx, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			d.logger.Debug("extension search failed", zap.String("extension", ext), zap.Error(err))
			continue
		}
		d.logger.Debug("extension search", zap.String("extension", ext), zap.Int("count", len(res.Items)))
		d.accumulate(ds, res.Items, false)
	}

	if len(ds.Files) == 0 {
		d.logger.Warn("extension sweep found nothing, guessing well-known files")
		d.synthesize(ds, subtree, d.strategy.WellKnownFiles)
	}
	return ds, nil
}

// accumulate records every hit in the structure and adds candidates. The
// primary search keeps only source-like names; the sweep already filtered
// by extension.
func (d *Discoverer) accumulate(ds *data.Dataset, items []channel.CodeSearchItem, filter bool) {
	for _, item := range items {
		if item.Path == "" {
			continue
		}
		if !ds.AddStructureLine(item.Path) {
			continue
		}
		if filter && !content.IsSourceLike(data.BaseName(item.Path)) {
			continue
		}
		ds.Add(data.Candidate(item.Path, item.HTMLURL))
	}
}

func (d *Discoverer) synthesize(ds *data.Dataset, subtree string, names []string) {
	for _, name := range names {
		ds.Add(data.Candidate(joinPath(subtree, name), ""))
	}
}

func searchQuery(owner, repo, subtree, ext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "repo:%s/%s", owner, repo)
	if subtree != "" {
		fmt.Fprintf(&b, " path:%s", subtree)
	}
	if ext != "" {
		fmt.Fprintf(&b, " extension:%s", ext)
	}
	return b.String()
}

func joinPath(subtree, name string) string {
	subtree = strings.Trim(subtree, "/")
	if subtree == "" {
		return name
	}
	return subtree + "/" + name
}
