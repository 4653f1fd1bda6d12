// Package metrics declares the pipeline's Prometheus collectors. They are
// registered once at init and shared by the ingest, storage and pipeline
// packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total pipeline runs by outcome",
		},
		[]string{"status"}, // success, partial, failure
	)

	RunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Duration of complete pipeline runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
		},
	)

	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_fetch_attempts_total",
			Help: "Upstream API fetch attempts by outcome",
		},
		[]string{"status"}, // success, transient, permanent
	)

	RetryWaitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_retry_waits_total",
			Help: "Backoff waits performed before fetch retries",
		},
	)

	StageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_failures_total",
			Help: "Cities dropped from a run, by stage",
		},
		[]string{"stage"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_storage_operations_total",
			Help: "Object storage operations by type and outcome",
		},
		[]string{"operation", "status"}, // operation=put/get, status=success/failure
	)

	RowsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_rows_written_total",
			Help: "Processed rows written to storage by city",
		},
		[]string{"city"},
	)

	CitiesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_cities_processed_total",
			Help: "Cities completing a run by outcome",
		},
		[]string{"status"}, // success, failure
	)
)
