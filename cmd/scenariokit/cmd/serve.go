package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/scenariokit/artifacts"
)

// NewServeCommand creates the 'serve' command
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve failure screenshots over HTTP and prune them on schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			logger := newLogger(cmd, cfg.LogLevel)

			if cfg.Artifacts.PruneSchedule != "" && cfg.Artifacts.Retention > 0 {
				pruner, err := artifacts.NewPruner(cfg.Artifacts.Dir, cfg.Artifacts.Retention.Std(), logger)
				if err != nil {
					return err
				}
				scheduler, err := pruner.Schedule(cfg.Artifacts.PruneSchedule)
				if err != nil {
					return err
				}
				defer scheduler.Stop()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           artifacts.NewServer(cfg.Artifacts.Dir, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Serving artifacts", "addr", addr, "dir", cfg.Artifacts.Dir)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}
