package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/scenariokit"
)

// OsExit allows tests to intercept process exit.
var OsExit = os.Exit

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion prints version information
func PrintVersion() string {
	return fmt.Sprintf("scenariokit v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// NewRootCommand creates the root command for the scenariokit CLI
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenariokit",
		Short: "scenariokit - utilities for behavior-driven browser test suites",
		Long: `scenariokit provides the tooling around a godog browser suite:
placeholder rendering, failure screenshot naming, configuration
inspection and a browser for the screenshots left by failed scenarios.`,
		Version:       PrintVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringP("config", "c", "", "config file (yaml, toml or json)")

	cmd.AddCommand(NewRenderCommand())
	cmd.AddCommand(NewScreenshotNameCommand())
	cmd.AddCommand(NewConfigCommand())
	cmd.AddCommand(NewPruneCommand())
	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	})

	return cmd
}

// loadConfig reads the --config flag and loads the configuration.
func loadConfig(cmd *cobra.Command) (*scenariokit.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := scenariokit.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds a text logger on the command's error stream.
func newLogger(cmd *cobra.Command, level string) scenariokit.Logger {
	h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: scenariokit.ParseLogLevel(level)})
	return scenariokit.NewSlogLogger(slog.New(h))
}
