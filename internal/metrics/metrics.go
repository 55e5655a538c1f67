// Package metrics exposes queue and processor counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "readersync"

// Metrics owns its registry so several instances can live in one process.
type Metrics struct {
	reg *prometheus.Registry

	JobsEnqueued  prometheus.Counter
	ProcessorRuns *prometheus.CounterVec
	RunSeconds    *prometheus.HistogramVec
	JobsProcessed *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		JobsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Image sync jobs added to the queue",
		}),
		ProcessorRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processor_runs_total",
			Help:      "Processor invocations by kind and outcome",
		}, []string{"kind", "outcome"}),
		RunSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processor_run_seconds",
			Help:      "Processor wall time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"kind"}),
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Jobs reported by the processor, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveRun(kind, outcome string, elapsed time.Duration) {
	m.ProcessorRuns.WithLabelValues(kind, outcome).Inc()
	m.RunSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveJobs(succeeded, failed int) {
	if succeeded > 0 {
		m.JobsProcessed.WithLabelValues("success").Add(float64(succeeded))
	}
	if failed > 0 {
		m.JobsProcessed.WithLabelValues("failure").Add(float64(failed))
	}
}

func (m *Metrics) ObserveEnqueued() {
	m.JobsEnqueued.Inc()
}

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
