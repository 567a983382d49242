// Package jobmetrics instruments the worker's tasks.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics groups the collectors shared by every job.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	deleted     *prometheus.CounterVec
	warmed      *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on reg. A nil reg selects the process
// wide default registerer, registered once however often it is requested.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg != nil {
		return register(reg)
	}
	defaultOnce.Do(func() { defaultMetrics = register(prometheus.DefaultRegisterer) })
	return defaultMetrics
}

func register(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	byJob := []string{"job"}
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storehq_jobs_total",
			Help: "Job runs by job and status.",
		}, []string{"job", "status"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storehq_jobs_failures_total",
			Help: "Failed job runs.",
		}, byJob),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storehq_job_duration_seconds",
			Help:    "Job run duration.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, byJob),
		lastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storehq_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, byJob),
		deleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storehq_sales_deleted_total",
			Help: "Sale records removed by cleanup runs.",
		}, byJob),
		warmed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storehq_reports_warmed_total",
			Help: "Report scopes computed ahead of requests.",
		}, byJob),
	}
}

// Tracker measures one run of a job.
type Tracker struct {
	m     *Metrics
	job   string
	start time.Time
	now   func() time.Time
}

// Track starts measuring a run of job. It is safe on a nil Metrics.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{m: m, job: job, start: time.Now(), now: time.Now}
}

// End records the outcome of the run and passes err through.
func (t *Tracker) End(err error) error {
	if t == nil || t.m == nil {
		return err
	}
	end := t.now()
	t.m.duration.WithLabelValues(t.job).Observe(end.Sub(t.start).Seconds())
	if err != nil {
		t.m.runs.WithLabelValues(t.job, statusFailure).Inc()
		t.m.failures.WithLabelValues(t.job).Inc()
		return err
	}
	t.m.runs.WithLabelValues(t.job, statusSuccess).Inc()
	t.m.lastSuccess.WithLabelValues(t.job).Set(float64(end.Unix()))
	return nil
}

// AddDeleted counts sale records removed by job.
func (m *Metrics) AddDeleted(job string, n int64) {
	if m != nil && n > 0 {
		m.deleted.WithLabelValues(job).Add(float64(n))
	}
}

// AddWarmed counts report scopes warmed by job.
func (m *Metrics) AddWarmed(job string, n int) {
	if m != nil && n > 0 {
		m.warmed.WithLabelValues(job).Add(float64(n))
	}
}
