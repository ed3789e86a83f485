// Package cli provides the piltsim command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/spf13/cobra"
)

// GlobalOpts holds flags shared by every subcommand.
type GlobalOpts struct {
	LogLevel string
}

func NewRootCmd() *cobra.Command {
	opts := &GlobalOpts{}
	rootCmd := &cobra.Command{
		Use:   "piltsim",
		Short: "Simulate and validate PILT trial lists",
		Long: `piltsim - offline runner for probabilistic instrumental learning trials

Trial files are JSON arrays. Each entry holds the trial fields and optionally an
"overrides" object pinning the simulated key, response or reaction time.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(),
	)
	return rootCmd
}

// Execute runs the root command with the given output writers.
func Execute(stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

func commandContext(cmd *cobra.Command, opts *GlobalOpts) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: parseLevel(opts.LogLevel)}))
	return ctxlog.With(ctx, logger)
}

func parseLevel(raw string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelWarn
	}
	return lvl
}
