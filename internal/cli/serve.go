package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"readersync/internal/api"
)

func NewServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API together with the background dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Cfg.ListenAddr
			}
			ctx, stop := notifyContext(cmd.Context())
			defer stop()

			d, err := newDaemon(ctx, app)
			if err != nil {
				return err
			}
			defer d.close()

			srv := &http.Server{
				Addr: addr,
				Handler: api.New(api.Options{
					Store:      app.Store,
					Runner:     d.runner,
					Dispatcher: d.disp,
					Notifier:   d.notifier(),
					Metrics:    d.metrics,
					Logger:     app.Log,
				}).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			d.start(gctx, g)
			g.Go(func() error {
				app.Log.Info("server started", zap.String("addr", addr))
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				app.Log.Info("shutting down", zap.Duration("timeout", app.Cfg.ShutdownTimeout))
				shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Cfg.ShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("graceful shutdown: %w", err)
				}
				app.Log.Info("server stopped")
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}
