package engine

import (
	"context"

	"repobrief/internal/channel"
	"repobrief/internal/content"
	"repobrief/internal/data"

	"go.uber.org/zap"
)

// Fetcher turns candidates into records, one request at a time.
type Fetcher struct {
	tools  *channel.GitHubTools
	logger *zap.Logger
}

func NewFetcher(tools *channel.GitHubTools, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{tools: tools, logger: logger}
}

// FetchAll fetches every pending candidate of ds at branch. Candidates that
// fail for any reason are dropped; the survivors keep their relative order.
// The only error returned is context cancellation, in which case ds is left
// untouched.
func (f *Fetcher) FetchAll(ctx context.Context, owner, repo, branch string, ds *data.Dataset) error {
	pending := ds.Pending()
	if pending == 0 {
		f.logger.Warn("no files to fetch")
		return nil
	}
	f.logger.Info("fetching files", zap.Int("count", pending))

	kept := make([]data.File, 0, len(ds.Files))
	for _, file := range ds.Files {
		if !file.NeedsFetch {
			kept = append(kept, file)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := f.fetchOne(ctx, owner, repo, branch, file)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			f.logger.Warn("fetch failed", zap.String("path", file.Path), zap.Error(err))
			continue
		}
		f.logger.Info("fetched", zap.String("path", file.Path), zap.Int("size", record.Size))
		kept = append(kept, record)
	}

	ds.ReplaceFiles(kept)
	return nil
}

func (f *Fetcher) fetchOne(ctx context.Context, owner, repo, branch string, file data.File) (data.File, error) {
	payload, err := f.tools.GetFileContents(ctx, owner, repo, file.Path, branch)
	if err != nil {
		return data.File{}, err
	}
	norm, err := content.Normalize(payload, file.Path)
	if err != nil {
		return data.File{}, err
	}
	return data.File{
		Path:      file.Path,
		Name:      file.Name,
		SourceURL: file.SourceURL,
		Content:   norm.Content,
		Size:      norm.Size,
		Language:  norm.Language,
	}, nil
}
