// Package metrics holds the Prometheus collectors for sweeps and queued jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by sweep items and jobs.
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeInFlight  = "in_flight"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	sweepRuns     *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	sweepItems    *prometheus.CounterVec
	jobs          *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
}

// New registers the collectors with registry. A nil registry yields nil Metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &Metrics{
		sweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chama_sweep_runs_total",
			Help: "Total number of sweep runs by job and result",
		}, []string{"job", "result"}),
		sweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chama_sweep_duration_seconds",
			Help:    "Wall time of a sweep run",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
		sweepItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chama_sweep_items_total",
			Help: "Items handled by sweeps by job and outcome",
		}, []string{"job", "outcome"}),
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chama_jobs_total",
			Help: "Queued jobs handled by kind and outcome",
		}, []string{"kind", "outcome"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chama_job_duration_seconds",
			Help:    "Handler time of a queued job",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}
}

// ObserveSweep records one finished sweep run.
func (m *Metrics) ObserveSweep(job string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := OutcomeSuccess
	if err != nil {
		result = OutcomeFailed
	}
	m.sweepRuns.WithLabelValues(job, result).Inc()
	m.sweepDuration.WithLabelValues(job).Observe(took.Seconds())
}

// SweepItem counts one item handled by a sweep.
func (m *Metrics) SweepItem(job, outcome string) {
	if m == nil {
		return
	}
	m.sweepItems.WithLabelValues(job, outcome).Inc()
}

// Job records one handled queue job.
func (m *Metrics) Job(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeSuccess || outcome == OutcomeFailed {
		m.jobDuration.WithLabelValues(kind).Observe(took.Seconds())
	}
}
