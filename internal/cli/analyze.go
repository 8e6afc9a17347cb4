package cli

import (
	"fmt"
	"os"

	"repobrief/internal/engine"
	"repobrief/internal/flags"

	"github.com/spf13/cobra"
)

const analyzeHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
  Settings are read from ./.env (or --env-file), then the process environment.

    GITHUB_TOKEN          GitHub access token (falls back to gh auth token)
    GITHUB_API_URL        REST API base URL for --transport rest (GitHub Enterprise)
    GEMINI_API_KEY        Model API key (get one at https://makersuite.google.com/app/apikey)
    GEMINI_MODEL          Model name (default: gemini-1.5-flash-latest)
    GEMINI_BASE_URL       OpenAI-compatible endpoint of the model
    REPOSITORY_OWNER      Repository owner
    REPOSITORY_NAME       Repository name
    REPOSITORY_PATH       Subtree to analyze (default: repository root)
    REPOSITORY_BRANCH     Branch files are read from (default: main)
    REPOBRIEF_TRANSPORT   mcp or rest (default: mcp)
    REPOBRIEF_MCP_COMMAND Command line that starts the GitHub MCP server

  Example .env:
    GITHUB_TOKEN=<your_token>
    GEMINI_API_KEY=<your_key>
    REPOSITORY_OWNER=Mmb0129
    REPOSITORY_NAME=Quest1-Internship
    REPOSITORY_PATH=lisp-interpreter
`

func newAnalyzeCommand(o *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize a repository subtree",
		Long: `Discover the files of a repository subtree, fetch them and ask the model
for a structured summary: purpose, architecture, key components,
technologies, code quality and suggested improvements.

Discovery searches the subtree first. When the search finds nothing it
searches once per common extension, and when that finds nothing too it
guesses well-known file names. Files that cannot be fetched are skipped.

Exit codes:
	0 = summary produced (or interrupted)
	1 = run failed (tool channel, model or output error)
	3 = configuration invalid (nothing ran)

Examples:
  repobrief analyze
  repobrief analyze --owner Mmb0129 --repo Quest1-Internship --path lisp-interpreter
  repobrief analyze --transport rest --out report.md --create-issue
`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(o.runAnalyze(cmd))
		},
	}
	cmd.SetHelpTemplate(analyzeHelpTemplate)

	o.bindTarget(cmd)
	cmd.Flags().StringVar(&o.path, flags.FlagPath, "", "Subtree to analyze (default: REPOSITORY_PATH or the repository root)")
	o.bindChannel(cmd)
	o.bindGeneration(cmd)
	o.bindOutput(cmd)
	return cmd
}

func (o *runOptions) runAnalyze(cmd *cobra.Command) int {
	stderr := cmd.ErrOrStderr()
	ctx, stop := interruptible(cmd.Context(), stderr)

	sess, code := o.open(ctx, cmd, true)
	if sess == nil {
		if stop() {
			return engine.ExitOK
		}
		return code
	}
	defer sess.close()

	eng, err := sess.newEngine(stderr)
	if err != nil {
		stop()
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitRunFailed
	}

	code = eng.Run(sess.ctx, sess.cfg, cmd.OutOrStdout())
	if stop() {
		return engine.ExitOK
	}
	return code
}

func init() {
	rootCmd.AddCommand(newAnalyzeCommand(newRunOptions(&globals)))
}
