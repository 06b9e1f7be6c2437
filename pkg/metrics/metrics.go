// Package metrics tracks Prometheus metrics for the job queue, worker pool
// and upload pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks Prometheus metrics for asynchronous processing.
//
// All metrics use the "mediablob_" prefix. Methods handle nil receiver
// gracefully, so a nil *Metrics acts as a no-op when metrics are disabled.
type Metrics struct {
	// JobsClaimed counts successful job claims by job kind.
	JobsClaimed *prometheus.CounterVec

	// JobsCompleted counts jobs reaching the completed state by kind.
	JobsCompleted *prometheus.CounterVec

	// JobsFailed counts jobs reaching the failed state by kind.
	JobsFailed *prometheus.CounterVec

	// JobsInFlight tracks how many jobs are currently being processed.
	JobsInFlight prometheus.Gauge

	// Uploads counts accepted uploads by class (image, file).
	Uploads *prometheus.CounterVec

	// ProjectsPurged counts projects hard-deleted by the retention purge.
	ProjectsPurged prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// New creates and registers the processing metrics.
//
// If registerer is nil, prometheus.DefaultRegisterer is used. Idempotent:
// repeated calls return the same instance.
func New(registerer prometheus.Registerer) *Metrics {
	metricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}

		m := &Metrics{
			JobsClaimed: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mediablob_jobs_claimed_total",
					Help: "Total jobs claimed from the queue by kind",
				},
				[]string{"kind"},
			),
			JobsCompleted: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mediablob_jobs_completed_total",
					Help: "Total jobs completed by kind",
				},
				[]string{"kind"},
			),
			JobsFailed: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mediablob_jobs_failed_total",
					Help: "Total jobs failed terminally by kind",
				},
				[]string{"kind"},
			),
			JobsInFlight: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "mediablob_jobs_in_flight",
					Help: "Jobs currently being processed by the worker pool",
				},
			),
			Uploads: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mediablob_uploads_total",
					Help: "Total accepted uploads by class",
				},
				[]string{"class"},
			),
			ProjectsPurged: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "mediablob_projects_purged_total",
					Help: "Projects hard-deleted by the retention purge",
				},
			),
		}

		registerer.MustRegister(
			m.JobsClaimed,
			m.JobsCompleted,
			m.JobsFailed,
			m.JobsInFlight,
			m.Uploads,
			m.ProjectsPurged,
		)

		metricsInstance = m
	})

	return metricsInstance
}

// ObserveClaim records a claimed job.
func (m *Metrics) ObserveClaim(kind string) {
	if m == nil {
		return
	}
	m.JobsClaimed.WithLabelValues(kind).Inc()
	m.JobsInFlight.Inc()
}

// ObserveCompletion records a finished job. failed selects which terminal
// counter is bumped.
func (m *Metrics) ObserveCompletion(kind string, failed bool) {
	if m == nil {
		return
	}
	if failed {
		m.JobsFailed.WithLabelValues(kind).Inc()
	} else {
		m.JobsCompleted.WithLabelValues(kind).Inc()
	}
	m.JobsInFlight.Dec()
}

// ObserveUpload records an accepted upload.
func (m *Metrics) ObserveUpload(class string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(class).Inc()
}

// ObservePurge records a purged project.
func (m *Metrics) ObservePurge() {
	if m == nil {
		return
	}
	m.ProjectsPurged.Inc()
}
