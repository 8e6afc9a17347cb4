package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"repobrief/internal/channel"
	"repobrief/internal/config"
	"repobrief/internal/engine"
	"repobrief/internal/flags"
	"repobrief/internal/generate"
	gh "repobrief/internal/github"
	"repobrief/internal/logging"
	"repobrief/internal/prompt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runOptions holds the per-command flag values. A value overrides the loaded
// configuration only when its flag was set on the command line.
type runOptions struct {
	globals *globalOptions

	owner  string
	repo   string
	path   string
	branch string

	transport  string
	mcpCommand string
	model      string

	consoleFormat string
	out           string
	outFormat     string
	noConsole     bool

	timeout     time.Duration
	createIssue bool
}

func newRunOptions(g *globalOptions) *runOptions {
	if g == nil {
		g = &globalOptions{}
	}
	return &runOptions{globals: g}
}

func (o *runOptions) bindTarget(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.owner, flags.FlagOwner, "", "Repository owner (default: REPOSITORY_OWNER)")
	cmd.Flags().StringVar(&o.repo, flags.FlagRepo, "", "Repository name (default: REPOSITORY_NAME)")
	cmd.Flags().StringVar(&o.branch, flags.FlagBranch, "", "Branch or ref to read files from (default: REPOSITORY_BRANCH or main)")
}

func (o *runOptions) bindChannel(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.transport, flags.FlagTransport, "", "Tool channel: mcp|rest (default: REPOBRIEF_TRANSPORT or mcp)")
	cmd.Flags().StringVar(&o.mcpCommand, flags.FlagMCPCommand, "", "Command that starts the GitHub MCP server (default: npx -y @modelcontextprotocol/server-github)")
	cmd.Flags().DurationVar(&o.timeout, flags.FlagTimeout, 0, "Bound the whole run (0 = no limit)")
}

func (o *runOptions) bindGeneration(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.model, flags.FlagModel, "", "Model name (default: GEMINI_MODEL or "+config.DefaultModel+")")
	cmd.Flags().BoolVar(&o.createIssue, flags.FlagCreateIssue, false, "Open an issue on the repository with the result")
}

func (o *runOptions) bindOutput(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.consoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json (default: text)")
	cmd.Flags().StringVar(&o.out, flags.FlagOut, "", "Write the result to this path")
	cmd.Flags().StringVar(&o.outFormat, flags.FlagOutFormat, "", "Format for --out: json|yaml|markdown (default: inferred from file extension)")
	cmd.Flags().BoolVar(&o.noConsole, flags.FlagNoConsole, false, "Suppress console output (use with --out)")
}

func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set(flags.FlagOwner) {
		cfg.Repository.Owner = o.owner
	}
	if set(flags.FlagRepo) {
		cfg.Repository.Name = o.repo
	}
	if set(flags.FlagPath) {
		cfg.Repository.Path = o.path
	}
	if set(flags.FlagBranch) {
		cfg.Repository.Branch = o.branch
	}
	if set(flags.FlagTransport) {
		cfg.Channel.Transport = o.transport
	}
	if set(flags.FlagMCPCommand) {
		cfg.Channel.ServerCommand, cfg.Channel.ServerArgs = config.SplitCommand(o.mcpCommand)
	}
	if set(flags.FlagModel) {
		cfg.Generation.Model = o.model
	}
	if set(flags.FlagConsoleFormat) {
		cfg.Output.ConsoleFormat = o.consoleFormat
	}
	if set(flags.FlagOut) {
		cfg.Output.Out = o.out
	}
	if set(flags.FlagOutFormat) {
		cfg.Output.OutFormat = o.outFormat
	}
	if set(flags.FlagNoConsole) {
		cfg.Output.NoConsole = o.noConsole
	}
	if set(flags.FlagTimeout) {
		cfg.Runtime.Timeout = o.timeout
	}
	if set(flags.FlagCreateIssue) {
		cfg.Runtime.CreateIssue = o.createIssue
	}
	cfg.Runtime.Verbose = o.globals.verbose
}

// loadConfig reads, overrides and validates the configuration. With full
// unset only the settings needed to reach the tool channel are required.
func (o *runOptions) loadConfig(ctx context.Context, cmd *cobra.Command, full bool) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		EnvFile:        o.globals.envFile,
		RequireEnvFile: o.globals.envFile != "",
	})
	if err != nil {
		return nil, err
	}
	o.apply(cmd, cfg)

	token, _, err := gh.ResolveAuthToken(ctx, cfg.GitHub.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve GitHub auth token: %w", err)
	}
	cfg.GitHub.Token = token

	if full {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateChannel()
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func printConfigError(w io.Writer, err error) {
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, "Configuration Errors:")
	for _, p := range verr.Problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}

// newTokenCounter may fetch the encoding on first use.
var newTokenCounter = prompt.NewTokenCounter

// session is the state shared by commands that talk to the tool channel.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *zap.Logger
	ch     channel.Channel
}

// dial opens the configured tool channel.
func dial(ctx context.Context, cfg *config.Config, logger *zap.Logger) (channel.Channel, error) {
	switch cfg.Channel.Transport {
	case config.TransportREST:
		opts := []gh.Option{gh.WithVerbose(cfg.Runtime.Verbose, logger)}
		if cfg.GitHub.APIURL != "" {
			opts = append(opts, gh.WithBaseURL(cfg.GitHub.APIURL))
		}
		client, err := gh.NewClient(ctx, cfg.GitHub.Token, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		ch, err := channel.NewREST(client, logger)
		if err != nil {
			return nil, err
		}
		return ch, nil
	default:
		ch, err := channel.DialStdio(ctx, channel.StdioOptions{
			Command: cfg.Channel.ServerCommand,
			Args:    cfg.Channel.ServerArgs,
			Env:     []string{"GITHUB_PERSONAL_ACCESS_TOKEN=" + cfg.GitHub.Token},
		}, logger)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// open loads the configuration, builds the logger and connects the tool
// channel. The session context carries the configured timeout. A nil
// session comes with the exit code to stop with.
func (o *runOptions) open(ctx context.Context, cmd *cobra.Command, full bool) (*session, int) {
	stderr := cmd.ErrOrStderr()

	cfg, err := o.loadConfig(ctx, cmd, full)
	if err != nil {
		printConfigError(stderr, err)
		return nil, engine.ExitConfigInvalid
	}

	logger, err := logging.NewLogger(cfg.Runtime.Verbose)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create logger: %v\n", err)
		return nil, engine.ExitRunFailed
	}

	cancel := context.CancelFunc(func() {})
	if cfg.Runtime.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Runtime.Timeout)
	}

	ch, err := dial(ctx, cfg, logger)
	if err != nil {
		interrupted := errors.Is(ctx.Err(), context.Canceled)
		cancel()
		_ = logger.Sync()
		if interrupted {
			return nil, engine.ExitOK
		}
		fmt.Fprintf(stderr, "Error: failed to connect to tool channel: %v\n", err)
		return nil, engine.ExitRunFailed
	}
	return &session{ctx: ctx, cancel: cancel, cfg: cfg, logger: logger, ch: ch}, engine.ExitOK
}

func (s *session) close() {
	if err := s.ch.Close(); err != nil {
		s.logger.Debug("closing tool channel", zap.Error(err))
	}
	s.cancel()
	_ = s.logger.Sync()
}

// newEngine builds the pipeline over the session's channel.
func (s *session) newEngine(stderr io.Writer) (*engine.Engine, error) {
	provider, err := generate.NewOpenAIProvider(generate.OpenAIOptions{
		APIKey:  s.cfg.Generation.APIKey,
		Model:   s.cfg.Generation.Model,
		BaseURL: s.cfg.Generation.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{engine.WithLogger(s.logger), engine.WithStderr(stderr)}
	if tc, err := newTokenCounter(s.cfg.Generation.Model); err != nil {
		s.logger.Debug("token counting disabled", zap.Error(err))
	} else {
		opts = append(opts, engine.WithTokenCounter(tc))
	}
	return engine.New(s.ch, generate.NewCaller(provider, s.logger), opts...), nil
}

// interruptible derives a context that is cancelled on SIGINT or SIGTERM.
// The returned func releases the signal handler and reports whether an
// interrupt arrived.
func interruptible(parent context.Context, stderr io.Writer) (context.Context, func() bool) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var interrupted atomic.Bool
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			interrupted.Store(true)
			fmt.Fprintln(stderr, "\nShutting down gracefully...")
			cancel()
		case <-done:
		}
	}()

	return ctx, func() bool {
		signal.Stop(sigCh)
		close(done)
		cancel()
		return interrupted.Load()
	}
}
