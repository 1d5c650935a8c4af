// Package jobmetrics instruments the ledger background tasks.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of orion_jobs_total.
const (
	OutcomeSuccess  = "success"
	OutcomeRetry    = "retry"
	OutcomeRejected = "rejected"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	findings prometheus.Gauge
	postings *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer, or once against the
// default registerer when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker times a single task execution.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for the given task type.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run and returns err untouched. Errors wrapping
// asynq.SkipRetry count as rejected, anything else as a retry.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	t.metrics.runs.WithLabelValues(t.job, Classify(err)).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Classify maps a handler result onto an outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeRejected
	default:
		return OutcomeRetry
	}
}

// SetIntegrityFindings publishes the size of the latest integrity sweep.
func (m *Metrics) SetIntegrityFindings(count int) {
	if m == nil {
		return
	}
	m.findings.Set(float64(count))
}

// AddPosting counts a journal entry created by an integration task.
func (m *Metrics) AddPosting(task string) {
	if m == nil {
		return
	}
	m.postings.WithLabelValues(task).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_jobs_total",
		Help: "Task executions by task type and outcome (success, retry, rejected).",
	}, []string{"job", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orion_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	findings := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orion_ledger_unbalanced_entries",
		Help: "Unbalanced journal entries found by the latest integrity sweep.",
	})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_integration_postings_total",
		Help: "Journal entries posted from operational events, by task type.",
	}, []string{"task"})
	registerer.MustRegister(runs, duration, findings, postings)
	return &Metrics{runs: runs, duration: duration, findings: findings, postings: postings}
}
