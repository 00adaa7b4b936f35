package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/bootstrap"
	"github.com/flume-app/flume-backend/internal/reminders"
)

func serveCmd() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := app.cfg, app.logger
			bootstrap.SetGinMode(cfg.App.Environment)

			ctx, stop := signal.NotifyContext(app.ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.close(log)

			dep, err := b.routerDeps(ctx, cfg, log)
			if err != nil {
				return err
			}

			profiles := bootstrap.NewProfiles(cfg, b.store, b.redis, log)
			sched := reminders.NewScheduler(
				bootstrap.NewProjectService(cfg, b.store, profiles, log),
				cfg.Reminders.Schedule, cfg.Reminders.Lookback, log)
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			srv := newServer(ctx, ":"+cfg.Server.Port, bootstrap.BuildRouter(dep))

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "how long to wait for open requests on shutdown")
	return cmd
}

// newServer ties every request context to ctx, so open SSE streams return
// once ctx ends instead of holding up Shutdown.
func newServer(ctx context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}
