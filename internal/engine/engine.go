// Package engine drives one analysis run: discovery, fetch, prompt
// assembly and generation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"repobrief/internal/channel"
	"repobrief/internal/config"
	"repobrief/internal/content"
	"repobrief/internal/data"
	"repobrief/internal/output"
	"repobrief/internal/prompt"

	"go.uber.org/zap"
)

// Exit codes shared by the CLI commands.
const (
	ExitOK            = 0
	ExitRunFailed     = 1
	ExitConfigInvalid = 3
)

// Generator answers an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Target names the repository subtree under analysis.
type Target struct {
	Owner  string
	Repo   string
	Path   string
	Branch string
}

// TargetFromConfig copies the repository section of cfg.
func TargetFromConfig(cfg *config.Config) Target {
	return Target{
		Owner:  cfg.Repository.Owner,
		Repo:   cfg.Repository.Name,
		Path:   cfg.Repository.Path,
		Branch: cfg.Repository.Branch,
	}
}

// Label renders the target as OWNER/REPO[/PATH].
func (t Target) Label() string {
	label := t.Owner + "/" + t.Repo
	if t.Path != "" {
		label += "/" + t.Path
	}
	return label
}

type Engine struct {
	tools      *channel.GitHubTools
	generator  Generator
	discoverer *Discoverer
	fetcher    *Fetcher
	tokens     prompt.TokenCounter
	logger     *zap.Logger
	stderr     io.Writer

	strategy Strategy
	dataset  *data.Dataset
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithTokenCounter logs a token estimate of every prompt before it is sent.
func WithTokenCounter(tc prompt.TokenCounter) Option {
	return func(e *Engine) { e.tokens = tc }
}

func WithStderr(w io.Writer) Option {
	return func(e *Engine) {
		if w != nil {
			e.stderr = w
		}
	}
}

func New(ch channel.Channel, gen Generator, opts ...Option) *Engine {
	e := &Engine{
		generator: gen,
		logger:    zap.NewNop(),
		stderr:    os.Stderr,
		strategy:  DefaultStrategy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tools = channel.NewGitHubTools(ch, e.logger)
	e.discoverer = NewDiscoverer(e.tools, e.strategy, e.logger)
	e.fetcher = NewFetcher(e.tools, e.logger)
	return e
}

// Dataset returns the dataset of the last Analyze call, or nil.
func (e *Engine) Dataset() *data.Dataset {
	return e.dataset
}

// Analyze summarizes the target subtree.
func (e *Engine) Analyze(ctx context.Context, t Target) (data.Result, error) {
	e.logger.Info("starting repository analysis",
		zap.String("repository", t.Owner+"/"+t.Repo),
		zap.String("path", t.Path),
		zap.String("branch", t.Branch))

	ds, err := e.discoverer.Discover(ctx, t.Owner, t.Repo, t.Path)
	if err != nil {
		return data.Result{}, fmt.Errorf("discover files: %w", err)
	}
	e.dataset = ds

	if err := e.fetcher.FetchAll(ctx, t.Owner, t.Repo, t.Branch, ds); err != nil {
		return data.Result{}, fmt.Errorf("fetch files: %w", err)
	}

	ds.Metadata = e.lookupMetadata(ctx, t)

	analysis, err := e.generate(ctx, prompt.Build(prompt.SummaryInstruction, ds))
	if err != nil {
		return data.Result{}, err
	}
	return data.Result{
		Analysis:      analysis,
		FilesAnalyzed: len(ds.Files),
		Repository:    t.Label(),
	}, nil
}

// Explain fetches one file of the target repository and asks for an
// explanation of it. Unlike Analyze, a failed fetch is an error.
func (e *Engine) Explain(ctx context.Context, t Target, filePath string) (data.Result, error) {
	filePath = strings.Trim(strings.TrimSpace(filePath), "/")
	if filePath == "" {
		return data.Result{}, errors.New("explain: file path is required")
	}

	payload, err := e.tools.GetFileContents(ctx, t.Owner, t.Repo, filePath, t.Branch)
	if err != nil {
		return data.Result{}, fmt.Errorf("fetch %s: %w", filePath, err)
	}
	norm, err := content.Normalize(payload, filePath)
	if err != nil {
		return data.Result{}, err
	}

	ds := data.NewDataset()
	ds.Add(data.File{
		Path:     filePath,
		Name:     data.BaseName(filePath),
		Content:  norm.Content,
		Size:     norm.Size,
		Language: norm.Language,
	})
	e.dataset = ds

	analysis, err := e.generate(ctx, prompt.Build(prompt.ExplainInstruction(filePath), ds))
	if err != nil {
		return data.Result{}, err
	}
	return data.Result{
		Analysis:      analysis,
		FilesAnalyzed: 1,
		Repository:    t.Owner + "/" + t.Repo + "/" + filePath,
	}, nil
}

// CreateIssue files res as an issue on the target repository.
func (e *Engine) CreateIssue(ctx context.Context, t Target, res data.Result) (channel.Issue, error) {
	label := res.Repository
	if label == "" {
		label = t.Label()
	}
	title := "Repository analysis: " + label
	issue, err := e.tools.CreateIssue(ctx, t.Owner, t.Repo, title, res.Analysis)
	if err != nil {
		return channel.Issue{}, fmt.Errorf("create issue: %w", err)
	}
	e.logger.Info("issue created", zap.Int("number", issue.Number), zap.String("url", issue.HTMLURL))
	return issue, nil
}

func (e *Engine) generate(ctx context.Context, text string) (string, error) {
	if e.generator == nil {
		return "", errors.New("no generator configured")
	}
	fields := []zap.Field{zap.Int("chars", len(text))}
	if e.tokens != nil {
		if n, err := e.tokens.CountString(text); err == nil {
			fields = append(fields, zap.Int("tokens", n), zap.String("tokenizer", e.tokens.Name()))
		}
	}
	e.logger.Info("running analysis", fields...)

	analysis, err := e.generator.Generate(ctx, text)
	if err != nil {
		return "", fmt.Errorf("generate analysis: %w", err)
	}
	return analysis, nil
}

// lookupMetadata is best effort: any failure leaves the metadata absent.
func (e *Engine) lookupMetadata(ctx context.Context, t Target) *data.Metadata {
	full := t.Owner + "/" + t.Repo
	res, err := e.tools.SearchRepositories(ctx, "repo:"+full)
	if err != nil {
		e.logger.Debug("repository metadata unavailable", zap.Error(err))
		return nil
	}
	for _, item := range res.Items {
		if strings.EqualFold(item.FullName, full) {
			return metadataFrom(item)
		}
	}
	e.logger.Debug("repository metadata not found", zap.String("repository", full))
	return nil
}

func metadataFrom(item channel.RepositoryItem) *data.Metadata {
	md := &data.Metadata{
		FullName:      item.FullName,
		Description:   item.Description,
		DefaultBranch: item.DefaultBranch,
		Language:      item.Language,
		Topics:        item.Topics,
		Stars:         item.StargazersCount,
		Forks:         item.ForksCount,
		OpenIssues:    item.OpenIssuesCount,
		HTMLURL:       item.HTMLURL,
	}
	if item.License != nil {
		md.License = item.License.SPDXID
		if md.License == "" || md.License == "NOASSERTION" {
			md.License = item.License.Name
		}
	}
	return md
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr := output.NewManager()

	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat)); err != nil {
			_ = outMgr.Close()
			return nil, err
		}
	}

	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			_ = outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			_ = outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// Run analyzes the configured target, optionally files the result as an
// issue, and writes the report to the configured sinks. It returns the
// process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config, stdout io.Writer) int {
	return e.run(ctx, cfg, stdout, e.Analyze)
}

// RunExplain is Run for the explanation of a single file.
func (e *Engine) RunExplain(ctx context.Context, cfg *config.Config, filePath string, stdout io.Writer) int {
	return e.run(ctx, cfg, stdout, func(ctx context.Context, t Target) (data.Result, error) {
		return e.Explain(ctx, t, filePath)
	})
}

func (e *Engine) run(ctx context.Context, cfg *config.Config, stdout io.Writer, produce func(context.Context, Target) (data.Result, error)) int {
	outMgr, err := setupOutputManager(cfg, stdout)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error creating output sinks: %v\n", err)
		return ExitRunFailed
	}

	t := TargetFromConfig(cfg)
	res, err := produce(ctx, t)
	if err != nil {
		_ = outMgr.Close()
		fmt.Fprintf(e.stderr, "\nError: %v\n", err)
		return ExitRunFailed
	}

	report := output.Report{Result: res}
	if ds := e.Dataset(); ds != nil && len(ds.Structure) > 0 {
		report.Structure = append([]string(nil), ds.Structure...)
	}

	code := ExitOK
	if cfg.Runtime.CreateIssue {
		issue, err := e.CreateIssue(ctx, t, res)
		if err != nil {
			fmt.Fprintf(e.stderr, "Error: %v\n", err)
			code = ExitRunFailed
		} else {
			report.IssueURL = issue.HTMLURL
		}
	}

	if err := outMgr.Write(report); err != nil {
		fmt.Fprintf(e.stderr, "Error writing output: %v\n", err)
		code = ExitRunFailed
	}
	if err := outMgr.Close(); err != nil {
		fmt.Fprintf(e.stderr, "Error closing output: %v\n", err)
		code = ExitRunFailed
	}
	return code
}
