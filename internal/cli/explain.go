package cli

import (
	"fmt"
	"os"

	"repobrief/internal/engine"

	"github.com/spf13/cobra"
)

func newExplainCommand(o *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain FILE_PATH",
		Short: "Explain a single file of a repository",
		Long: `Fetch one file of the repository and ask the model to explain its purpose
and functionality. FILE_PATH is relative to the repository root.

Unlike analyze, a file that cannot be fetched fails the run.

Examples:
  repobrief explain lisp-interpreter/evaluator.js
  repobrief explain src/main.py --owner acme --repo tools --branch dev
`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(o.runExplain(cmd, args[0]))
		},
	}

	o.bindTarget(cmd)
	o.bindChannel(cmd)
	o.bindGeneration(cmd)
	o.bindOutput(cmd)
	return cmd
}

func (o *runOptions) runExplain(cmd *cobra.Command, filePath string) int {
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

	code = eng.RunExplain(sess.ctx, sess.cfg, filePath, cmd.OutOrStdout())
	if stop() {
		return engine.ExitOK
	}
	return code
}

func init() {
	rootCmd.AddCommand(newExplainCommand(newRunOptions(&globals)))
}
