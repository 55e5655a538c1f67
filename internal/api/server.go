// Package api serves the HTTP surface used by the event back office to
// enqueue image syncs and drive the external processor.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"readersync/internal/metrics"
	"readersync/internal/notify"
	"readersync/internal/runner"
	"readersync/internal/store"
)

// maxBodyBytes leaves room for an inline base64 photo.
const maxBodyBytes = 10 << 20

var errBadRequest = errors.New("bad request")

// Trigger is the part of engine.Dispatcher the API uses.
type Trigger interface {
	Trigger()
	TriggerJob(jobID int64)
}

type Options struct {
	Store      *store.Store
	Runner     *runner.Runner
	Dispatcher Trigger
	Notifier   notify.Notifier
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

type Server struct {
	store    *store.Store
	runner   *runner.Runner
	disp     Trigger
	notifier notify.Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		runner:   opts.Runner,
		disp:     opts.Dispatcher,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		log:      opts.Logger,
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("api")
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/jobs", func(jobs chi.Router) {
			jobs.Get("/", s.listJobs)
			jobs.Post("/", s.createJob)
			jobs.Get("/status", s.queueStatus)
			jobs.Post("/process", s.processPending)
			jobs.Post("/{id}/process", s.processJob)
			jobs.Post("/{id}/retry", s.retryJob)
		})
		api.Post("/photos", s.createPhoto)
		api.Post("/readers/{id}/resync", s.resyncReader)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if err := s.store.DB.PingContext(r.Context()); err != nil {
		s.log.Warn("health: db ping failed", zap.Error(err))
		resp = healthResponse{Status: "degraded", DB: "unavailable"}
		code = http.StatusServiceUnavailable
	}
	respondWithJSON(w, code, resp)
}

// announce counts a new job and publishes it to other instances.
func (s *Server) announce(ctx context.Context, jobID int64, priority int) {
	if s.metrics != nil {
		s.metrics.ObserveEnqueued()
	}
	if err := s.notifier.JobEnqueued(ctx, jobID, priority); err != nil {
		s.log.Warn("job notification failed", zap.Int64("job_id", jobID), zap.Error(err))
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}

// queryInt returns def when the parameter is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return n, nil
}
