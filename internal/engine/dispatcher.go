package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"readersync/internal/model"
	"readersync/internal/runner"
)

// Processor is the part of runner.Runner the dispatcher drives.
type Processor interface {
	ProcessPending(ctx context.Context, limit int) (*model.ProcessResult, error)
	ProcessJob(ctx context.Context, jobID int64) (*model.ProcessResult, error)
}

// jobQueueSize bounds TriggerJob requests waiting for the loop; overflow
// degrades to a batch trigger.
const jobQueueSize = 64

// Dispatcher runs the processor in the background on demand. Batch
// triggers coalesce: however many arrive while a run is in flight, at most
// one more run follows, using the largest limit requested.
type Dispatcher struct {
	proc  Processor
	limit int
	log   *zap.Logger

	mu      sync.Mutex
	pending int

	wake chan struct{}
	jobs chan int64
}

func NewDispatcher(proc Processor, limit int, log *zap.Logger) *Dispatcher {
	if limit < 1 {
		limit = runner.DefaultLimit
	}
	return &Dispatcher{
		proc:  proc,
		limit: limit,
		log:   log.Named("dispatcher"),
		wake:  make(chan struct{}, 1),
		jobs:  make(chan int64, jobQueueSize),
	}
}

// Trigger requests a batch run with the dispatcher's default limit.
func (d *Dispatcher) Trigger() {
	d.TriggerBatch(d.limit)
}

// TriggerBatch requests a batch run of up to limit jobs. It never blocks.
func (d *Dispatcher) TriggerBatch(limit int) {
	d.mu.Lock()
	if limit > d.pending {
		d.pending = limit
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// TriggerJob requests that a single job be processed. It never blocks.
func (d *Dispatcher) TriggerJob(jobID int64) {
	select {
	case d.jobs <- jobID:
	default:
		d.log.Warn("job queue full, falling back to batch run", zap.Int64("job_id", jobID))
		d.Trigger()
	}
}

// Run serves triggers until ctx is cancelled. A run in flight when ctx is
// cancelled is allowed to finish; the runner's own timeout still bounds it.
func (d *Dispatcher) Run(ctx context.Context) error {
	runCtx := context.WithoutCancel(ctx)
	d.log.Info("dispatcher started", zap.Int("default_limit", d.limit))
	for ctx.Err() == nil {
		// Single-job requests go first; they come from interactive callers.
		select {
		case id := <-d.jobs:
			d.runJob(runCtx, id)
			continue
		default:
		}

		select {
		case <-ctx.Done():
		case id := <-d.jobs:
			d.runJob(runCtx, id)
		case <-d.wake:
			d.runBatch(runCtx, d.takePending())
		}
	}
	d.log.Info("dispatcher shutting down gracefully")
	return nil
}

func (d *Dispatcher) takePending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	limit := d.pending
	d.pending = 0
	if limit < 1 {
		limit = d.limit
	}
	return limit
}

func (d *Dispatcher) runBatch(ctx context.Context, limit int) {
	res, err := d.proc.ProcessPending(ctx, limit)
	d.report(zap.Int("limit", limit), res, err)
}

func (d *Dispatcher) runJob(ctx context.Context, id int64) {
	res, err := d.proc.ProcessJob(ctx, id)
	d.report(zap.Int64("job_id", id), res, err)
}

func (d *Dispatcher) report(scope zap.Field, res *model.ProcessResult, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		d.log.Info("processor run interrupted", scope)
	case err != nil:
		fields := []zap.Field{scope, zap.Error(err)}
		if res != nil && res.Output != "" {
			fields = append(fields, zap.String("output", res.Output))
		}
		d.log.Error("processor run failed", fields...)
	case !res.Success:
		d.log.Warn("processor reported failure", scope,
			zap.String("message", res.Message), zap.Int("return_code", res.ReturnCode))
	default:
		d.log.Info("processor run finished", scope,
			zap.Int("processed", res.JobsProcessed),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed))
	}
}
