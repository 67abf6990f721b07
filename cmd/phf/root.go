package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var verbose bool

var red = color.New(color.FgRed, color.Bold)

var rootCmd = &cobra.Command{
	Use:   "phf",
	Short: "phf - provider/hook content pipeline",
	Long: `phf drives content providers and fans every item they acquire out to
the hooks attached to them, collecting the results back in hook order.

Providers and hooks are created by name from the built-in registry, either
declared in a YAML config file or added at runtime through the console or a
Redis command list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		red.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func setVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")
}
