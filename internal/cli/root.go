package cli

import (
	"fmt"
	"os"

	"repobrief/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	verbose bool
	envFile string
}

var globals globalOptions

var rootCmd = &cobra.Command{
	Use:   "repobrief",
	Short: "Summarize a GitHub repository with a generative model",
	Long: `RepoBrief discovers the files of a GitHub repository (or one of its
subtrees) through a GitHub tool server, fetches them, and asks a generative
model for a structured summary.

Examples:
	# Summarize the subtree configured in .env
	repobrief analyze

	# Summarize a subtree of another repository
	repobrief analyze --owner Mmb0129 --repo Quest1-Internship --path lisp-interpreter

	# Explain a single file
	repobrief explain lisp-interpreter/eval.js

	# List the tools offered by the GitHub tool server
	repobrief tools

	# Print build info
	repobrief version

Configuration:
	Settings are read from a .env file in the working directory (see --env-file)
	and from the process environment, which takes precedence. Flags override both.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&globals.verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every tool call and GitHub API request)")
	rootCmd.PersistentFlags().StringVar(&globals.envFile, flags.FlagEnvFile, "", "Read settings from this dotenv file instead of ./.env")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
