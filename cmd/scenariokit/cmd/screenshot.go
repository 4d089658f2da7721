package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/scenariokit"
)

// NewScreenshotNameCommand creates the 'screenshot-name' command
func NewScreenshotNameCommand() *cobra.Command {
	var (
		at  string
		dir string
	)

	cmd := &cobra.Command{
		Use:   "screenshot-name",
		Short: "Print the artifact path a failure at the given time would produce",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				t = parsed.Local()
			}
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, scenariokit.ScreenshotName(t)))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "time of failure (RFC3339, default now)")
	cmd.Flags().StringVar(&dir, "dir", scenariokit.DefaultArtifactsDir, "artifacts directory")

	return cmd
}
