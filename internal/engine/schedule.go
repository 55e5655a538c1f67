package engine

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	processSpec = "* * * * *"
	recoverSpec = "*/5 * * * *"
	purgeSpec   = "30 3 * * *"
)

// Maintainer is the store housekeeping the schedule runs.
type Maintainer interface {
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
	PurgeFinished(ctx context.Context, olderThan time.Duration) (int64, error)
}

type ScheduleOptions struct {
	Timezone   string
	CronLimit  int
	StaleAfter time.Duration
	// Retention of done jobs; zero disables the daily purge.
	Retention time.Duration
}

// Schedule wires the periodic work: a batch trigger every minute, stale
// job recovery every five minutes and a nightly purge.
type Schedule struct {
	cron  *cron.Cron
	disp  *Dispatcher
	maint Maintainer
	opts  ScheduleOptions
	log   *zap.Logger
}

func NewSchedule(disp *Dispatcher, maint Maintainer, opts ScheduleOptions, log *zap.Logger) (*Schedule, error) {
	loc := time.UTC
	if opts.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("cron timezone %q: %w", opts.Timezone, err)
		}
	}

	s := &Schedule{
		cron:  cron.New(cron.WithLocation(loc)),
		disp:  disp,
		maint: maint,
		opts:  opts,
		log:   log.Named("schedule"),
	}

	type entry struct {
		spec string
		fn   func()
	}
	entries := []entry{{processSpec, s.triggerProcessing}}
	if opts.StaleAfter > 0 {
		entries = append(entries, entry{recoverSpec, s.recoverStale})
	}
	if opts.Retention > 0 {
		entries = append(entries, entry{purgeSpec, s.purge})
	}
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, e.fn); err != nil {
			return nil, fmt.Errorf("add cron entry %q: %w", e.spec, err)
		}
	}
	return s, nil
}

// Run starts the cron scheduler and blocks until ctx is done, then waits
// for running entries to return.
func (s *Schedule) Run(ctx context.Context) error {
	s.log.Info("schedule started",
		zap.String("timezone", s.cron.Location().String()),
		zap.Int("entries", len(s.cron.Entries())))
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

func (s *Schedule) triggerProcessing() {
	s.disp.TriggerBatch(s.opts.CronLimit)
}

func (s *Schedule) recoverStale() {
	n, err := s.maint.RecoverStale(context.Background(), s.opts.StaleAfter)
	if err != nil {
		s.log.Error("stale job recovery failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Warn("recovered stale jobs", zap.Int64("count", n), zap.Duration("older_than", s.opts.StaleAfter))
	}
}

func (s *Schedule) purge() {
	n, err := s.maint.PurgeFinished(context.Background(), s.opts.Retention)
	if err != nil {
		s.log.Error("purge failed", zap.Error(err))
		return
	}
	s.log.Info("purged finished jobs", zap.Int64("count", n), zap.Duration("older_than", s.opts.Retention))
}
