package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/scenariokit/artifacts"
)

// NewPruneCommand creates the 'prune' command
func NewPruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete failure screenshots older than the configured retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pruner, err := artifacts.NewPruner(cfg.Artifacts.Dir, cfg.Artifacts.Retention.Std(), newLogger(cmd, cfg.LogLevel))
			if err != nil {
				return err
			}
			removed, err := pruner.Prune()
			for _, name := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return err
		},
	}
	return cmd
}
