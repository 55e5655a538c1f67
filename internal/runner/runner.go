// Package runner invokes the external sync processor and decodes the JSON
// summary it prints as the last line of its output.
//
// The processor owns every job status transition; this package only starts
// it, bounds its run time and reads back what it reports.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"readersync/internal/model"
)

const (
	KindProcess = "process"
	KindResync  = "resync"

	// DefaultLimit is used when a caller asks for a non-positive batch.
	DefaultLimit = 10

	// waitDelay bounds how long we wait for output pipes after a kill.
	waitDelay = 5 * time.Second
)

var (
	// ErrProcessorUnavailable is returned while the circuit breaker is open.
	ErrProcessorUnavailable = errors.New("processor unavailable")

	errBusy = errors.New("processor busy")
)

type Options struct {
	Bin           string
	ProcessScript string
	ResyncScript  string
	// Timeout caps a single invocation; zero means no cap.
	Timeout time.Duration

	// BusyMarker identifies the answer given when another processor
	// instance holds the lock.
	BusyMarker  string
	BusyRetries uint64
	BusyBackoff time.Duration

	BreakerTrips   uint32
	BreakerCooloff time.Duration
}

// Observer receives run outcomes; the metrics package implements it.
type Observer interface {
	ObserveRun(kind, outcome string, elapsed time.Duration)
	ObserveJobs(succeeded, failed int)
}

type nopObserver struct{}

func (nopObserver) ObserveRun(string, string, time.Duration) {}
func (nopObserver) ObserveJobs(int, int)                     {}

type Runner struct {
	opts     Options
	log      *zap.Logger
	obs      Observer
	breakers map[string]*gobreaker.CircuitBreaker
}

func New(opts Options, log *zap.Logger, obs Observer) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if opts.BreakerTrips == 0 {
		opts.BreakerTrips = 5
	}
	r := &Runner{
		opts:     opts,
		log:      log.Named("runner"),
		obs:      obs,
		breakers: map[string]*gobreaker.CircuitBreaker{},
	}
	for _, kind := range []string{KindProcess, KindResync} {
		r.breakers[kind] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    kind,
			Timeout: opts.BreakerCooloff,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= opts.BreakerTrips
			},
			// A caller walking away says nothing about processor health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.log.Warn("processor breaker state changed",
					zap.String("kind", name), zap.Stringer("from", from), zap.Stringer("to", to))
			},
		})
	}
	return r
}

// ProcessPending asks the processor to work through up to limit pending jobs.
func (r *Runner) ProcessPending(ctx context.Context, limit int) (*model.ProcessResult, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	res, err := invoke[model.ProcessResult](ctx, r, KindProcess, r.opts.ProcessScript,
		[]string{"--limit", strconv.Itoa(limit)})
	if err == nil {
		r.obs.ObserveJobs(res.Succeeded, res.Failed)
	}
	return res, err
}

// ProcessJob asks the processor to handle exactly one job.
func (r *Runner) ProcessJob(ctx context.Context, jobID int64) (*model.ProcessResult, error) {
	res, err := invoke[model.ProcessResult](ctx, r, KindProcess, r.opts.ProcessScript,
		[]string{"--job-id", strconv.FormatInt(jobID, 10)})
	if err == nil {
		r.obs.ObserveJobs(res.Succeeded, res.Failed)
	}
	return res, err
}

// ResyncReader forces a full image resync of one reader.
func (r *Runner) ResyncReader(ctx context.Context, readerID int64) (*model.ResyncResult, error) {
	res, err := invoke[model.ResyncResult](ctx, r, KindResync, r.opts.ResyncScript,
		[]string{strconv.FormatInt(readerID, 10)})
	if res != nil && len(res.Errors) > model.MaxReportedErrors {
		res.Errors = res.Errors[:model.MaxReportedErrors]
	}
	return res, err
}

// invoke runs the processor, retrying while it reports being busy. The
// returned result is non-nil whenever the processor produced output, even
// alongside ErrMalformedOutput.
func invoke[T any, PT interface {
	*T
	model.Report
}](ctx context.Context, r *Runner, kind, script string, args []string) (PT, error) {
	log := r.log.With(
		zap.String("kind", kind),
		zap.String("run_id", uuid.NewString()),
		zap.Strings("args", args),
	)

	var result PT
	attempt := 0
	op := func() error {
		attempt++
		start := time.Now()
		dst := PT(new(T))
		err := r.once(ctx, kind, script, args, dst)
		r.obs.ObserveRun(kind, outcomeOf(dst, err, r.opts.BusyMarker), time.Since(start))

		switch {
		case errors.Is(err, ErrMalformedOutput):
			result = dst
			return backoff.Permanent(err)
		case err != nil:
			return backoff.Permanent(err)
		}
		result = dst
		if isBusy(dst, r.opts.BusyMarker) {
			log.Warn("processor busy", zap.Int("attempt", attempt))
			return errBusy
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	if r.opts.BusyBackoff > 0 {
		bo.InitialInterval = r.opts.BusyBackoff
	}
	bo.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, r.opts.BusyRetries), ctx))
	switch {
	case errors.Is(err, errBusy):
		log.Warn("processor still busy, giving up", zap.Int("attempts", attempt))
		return result, nil
	case err != nil:
		log.Error("processor run failed", zap.Error(err))
		return result, err
	}

	log.Info("processor run finished",
		zap.Bool("success", result.OK()),
		zap.String("message", result.Text()),
		zap.Int("attempts", attempt))
	return result, nil
}

// once performs a single guarded invocation and decodes into dst.
func (r *Runner) once(ctx context.Context, kind, script string, args []string, dst model.Report) error {
	_, err := r.breakers[kind].Execute(func() (interface{}, error) {
		output, code, err := r.exec(ctx, script, args)
		if err != nil {
			return nil, err
		}
		if err := DecodeLastLine(output, dst); err != nil {
			dst.Reject(decodeFailureMessage)
			dst.Attach(code, output)
			return nil, err
		}
		dst.Attach(code, output)
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	return err
}

// exec runs bin [script] args... with stderr merged into stdout. A non-zero
// exit status is reported through the code, not as an error.
func (r *Runner) exec(ctx context.Context, script string, args []string) (string, int, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	argv := args
	if script != "" {
		argv = append([]string{script}, args...)
	}
	cmd := exec.CommandContext(ctx, r.opts.Bin, argv...)
	cmd.WaitDelay = waitDelay

	out, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return string(out), -1, fmt.Errorf("processor interrupted: %w", ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(out), exitErr.ExitCode(), nil
	}
	if err != nil {
		return string(out), -1, fmt.Errorf("start processor: %w", err)
	}
	return string(out), 0, nil
}
