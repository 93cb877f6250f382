// Package cli implements pacectl, the operator tool that runs the pacing core
// on local files.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Main runs pacectl with the process arguments and exits on failure.
func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := NewRootCommand()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the pacectl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pacectl",
		Short:         "Pace meditation speech to a target duration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Log pacing decisions to stderr")

	root.AddCommand(
		newWordsCommand(),
		newMarkupCommand(),
		newPaceCommand(),
		newConcatCommand(),
		newGenerateCommand(),
	)
	return root
}

// commandLogger logs to stderr at debug level with --verbose, warnings otherwise.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// readInput reads a file argument, or stdin for "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
