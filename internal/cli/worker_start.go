package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"readersync/internal/engine"
)

const stopPollInterval = time.Second

func NewWorkerStartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the dispatcher and cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			stopFile := engine.StopFile(app.Cfg.StopFile)
			pidFile := engine.PIDFile(app.Cfg.PIDFile)
			stopFile.Clear()

			ctx, stop := notifyContext(cmd.Context())
			defer stop()

			d, err := newDaemon(ctx, app)
			if err != nil {
				return err
			}
			defer d.close()

			if err := pidFile.Write(os.Getpid()); err != nil {
				return fmt.Errorf("write pid file: %w", err)
			}
			defer pidFile.Remove()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			go stopFile.Watch(ctx, stopPollInterval, cancel)

			fmt.Fprintf(cmd.OutOrStdout(), "Worker started (PID: %d). Use `readersync worker stop` to stop.\n", os.Getpid())

			g, gctx := errgroup.WithContext(ctx)
			d.start(gctx, g)
			err = g.Wait()

			stopFile.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Worker stopped.")
			return err
		},
	}
}

// notifyContext cancels on SIGINT or SIGTERM.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
