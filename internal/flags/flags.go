package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// config. Keeping these as constants avoids drift between Cobra flag wiring
// and the code that checks which flags were set.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&o.owner, flags.FlagOwner, "", "...")
//	arg := "--" + flags.FlagOwner
const (
	// Global
	FlagVerbose = "verbose"
	FlagEnvFile = "env-file"

	// Target
	FlagOwner  = "owner"
	FlagRepo   = "repo"
	FlagPath   = "path"
	FlagBranch = "branch"

	// Channel
	FlagTransport  = "transport"
	FlagMCPCommand = "mcp-command"

	// Generation
	FlagModel = "model"

	// Output
	FlagConsoleFormat = "console-format"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagNoConsole     = "no-console"

	// Runtime
	FlagTimeout     = "timeout"
	FlagCreateIssue = "create-issue"
)
