package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gmvsync/internal/core"
	"github.com/JonMunkholm/gmvsync/internal/web"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled and watched imports",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			// runs of a previous process that died mid-run stay "running" otherwise
			if n, err := a.history.MarkInterrupted(ctx, time.Now()); err != nil {
				slog.Warn("cannot mark interrupted runs", "error", err)
			} else if n > 0 {
				slog.Warn("marked interrupted runs as failed", "count", n)
			}

			sched := core.NewScheduler(a.service, slog.Default())
			defer sched.Stop()
			if cfg.Schedule.Cron != "" {
				if err := sched.Schedule(ctx, cfg.Schedule.Cron); err != nil {
					return withExit(exitConfig, err)
				}
			}
			if cfg.Schedule.Watch {
				if err := sched.Watch(ctx, cfg.Schedule.WatchDebounce); err != nil {
					return err
				}
			}

			server := web.NewServer(a.service, cfg)
			serveErr := make(chan error, 1)
			go func() {
				serveErr <- server.Start()
			}()

			select {
			case err := <-serveErr:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			sched.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if status := a.service.Status(); status.Running {
				slog.Info("waiting for the active run to complete", "folder", status.Folder)
				if err := a.service.Shutdown(shutdownCtx); err != nil {
					slog.Warn("run did not complete in time", "error", err)
				} else {
					slog.Info("active run completed")
				}
			}

			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
			}
			return nil
		},
	}
}
