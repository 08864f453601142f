package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmittedTotal counts accepted submissions by kind.
	JobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobdeck_jobs_submitted_total",
			Help: "Total number of accepted job submissions",
		},
		[]string{"kind"},
	)

	// DuplicateSubmissionsTotal counts submissions collapsed into an earlier identical one.
	DuplicateSubmissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobdeck_duplicate_submissions_total",
			Help: "Total number of duplicate submissions collapsed by the dedup window",
		},
	)

	// JobsFinishedTotal counts jobs reaching a terminal status by kind and status.
	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobdeck_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal status",
		},
		[]string{"kind", "status"},
	)

	// ProcessingDuration tracks how long the worker spends on a job.
	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobdeck_processing_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4min
		},
		[]string{"kind"},
	)

	// WorkersActive tracks the number of currently busy workers.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobdeck_workers_active",
			Help: "Number of worker goroutines currently processing a job",
		},
	)

	// PollRequestsTotal counts client status requests by mode (detail/bulk) and result.
	PollRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobdeck_poll_requests_total",
			Help: "Total number of job status polls issued by the client",
		},
		[]string{"mode", "result"},
	)

	// ActiveWatches tracks the number of running per-job poll timers.
	ActiveWatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobdeck_active_watches",
			Help: "Number of jobs currently polled by a detail view",
		},
	)
)
