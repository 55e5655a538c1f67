package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"readersync/internal/engine"
	"readersync/internal/metrics"
	"readersync/internal/notify"
	"readersync/internal/runner"
)

// daemon is the long-running part shared by `serve` and `worker start`:
// the dispatcher, its cron schedule and, when Redis is configured, the
// subscriber that wakes the dispatcher for jobs enqueued elsewhere.
type daemon struct {
	app     *App
	metrics *metrics.Metrics
	runner  *runner.Runner
	disp    *engine.Dispatcher
	sched   *engine.Schedule
	bus     *notify.Bus
}

func newDaemon(ctx context.Context, app *App) (*daemon, error) {
	cfg := app.Cfg
	m := metrics.New()
	r := app.Runner(m)
	disp := engine.NewDispatcher(r, cfg.BackgroundLimit, app.Log)

	sched, err := engine.NewSchedule(disp, app.Store, engine.ScheduleOptions{
		Timezone:   cfg.CronTimezone,
		CronLimit:  cfg.CronLimit,
		StaleAfter: cfg.StaleAfter,
		Retention:  cfg.Retention,
	}, app.Log)
	if err != nil {
		return nil, err
	}

	d := &daemon{app: app, metrics: m, runner: r, disp: disp, sched: sched}
	if cfg.RedisEnabled() {
		bus, err := notify.Connect(ctx, notify.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RedisChannel,
		}, app.Log)
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		d.bus = bus
	}
	return d, nil
}

func (d *daemon) notifier() notify.Notifier {
	if d.bus == nil {
		return notify.Nop{}
	}
	return d.bus
}

// start launches every loop on g. They all return once ctx is done.
func (d *daemon) start(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return d.disp.Run(ctx) })
	g.Go(func() error { return d.sched.Run(ctx) })
	if d.bus != nil {
		g.Go(func() error {
			return d.bus.Run(ctx, func(ev notify.Event) {
				d.app.Log.Debug("job announced", zap.Int64("job_id", ev.JobID), zap.Int("priority", ev.Priority))
				d.disp.Trigger()
			})
		})
	}
}

func (d *daemon) close() {
	if d.bus != nil {
		if err := d.bus.Close(); err != nil {
			d.app.Log.Warn("closing redis client", zap.Error(err))
		}
	}
}
