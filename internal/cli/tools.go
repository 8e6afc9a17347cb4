package cli

import (
	"fmt"
	"io"
	"os"

	"repobrief/internal/channel"
	"repobrief/internal/engine"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newToolsCommand(o *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered by the GitHub tool channel",
		Long: `Connect to the configured tool channel and list the tools it offers.
Only GITHUB_TOKEN (or gh auth) is required.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(o.runTools(cmd))
		},
	}
	o.bindChannel(cmd)
	return cmd
}

func (o *runOptions) runTools(cmd *cobra.Command) int {
	stderr := cmd.ErrOrStderr()
	ctx, stop := interruptible(cmd.Context(), stderr)

	sess, code := o.open(ctx, cmd, false)
	if sess == nil {
		if stop() {
			return engine.ExitOK
		}
		return code
	}
	defer sess.close()

	tools, err := sess.ch.ListTools(sess.ctx)
	if stop() {
		return engine.ExitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to list tools: %v\n", err)
		return engine.ExitRunFailed
	}
	if err := printTools(cmd.OutOrStdout(), tools); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitRunFailed
	}
	return engine.ExitOK
}

func printTools(w io.Writer, tools []channel.Tool) error {
	bold := color.New(color.Bold)
	if _, err := fmt.Fprintf(w, "Available tools (%d):\n", len(tools)); err != nil {
		return err
	}
	for _, t := range tools {
		line := "  " + bold.Sprint(t.Name)
		if t.Description != "" {
			line += " - " + t.Description
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newToolsCommand(newRunOptions(&globals)))
}
