package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	submissionsTotal      *prometheus.CounterVec
	gradesRecordedTotal   *prometheus.CounterVec
	appealsTotal          *prometheus.CounterVec
	requestLatencySeconds *prometheus.HistogramVec
	requestErrorsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edura_submissions_total",
			Help: "Total number of submissions accepted, by kind and mode.",
		}, []string{"kind", "mode"})

		gradesRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edura_grades_recorded_total",
			Help: "Total number of grade mutations written, by reason.",
		}, []string{"reason"})

		appealsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edura_appeals_total",
			Help: "Total number of appeal lifecycle events, by event.",
		}, []string{"event"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edura_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		requestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edura_request_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(submissionsTotal, gradesRecordedTotal, appealsTotal, requestLatencySeconds, requestErrorsTotal)
	})
}

// Submissions exposes the counter for accepted submissions.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// GradesRecorded exposes the counter for grade mutations.
func GradesRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return gradesRecordedTotal
}

// Appeals exposes the counter for appeal lifecycle events.
func Appeals() *prometheus.CounterVec {
	RegisterMetrics()
	return appealsTotal
}

// RequestLatency exposes the latency histogram for API requests.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}

// RequestErrors exposes the counter for API error responses.
func RequestErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return requestErrorsTotal
}
