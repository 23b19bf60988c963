// Package metrics provides Prometheus metrics for Tideflow. Metrics are
// registered automatically; the CLI exposes them via promhttp when a
// metrics address is configured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsEmitted counts records handed to the sink.
	// Labels: stream, strategy (windowed/concurrent)
	RecordsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tideflow_records_emitted_total",
			Help: "Total number of records emitted to the sink",
		},
		[]string{"stream", "strategy"},
	)

	// PagesFetched counts successful page fetches.
	// Labels: stream, strategy
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tideflow_pages_fetched_total",
			Help: "Total number of pages fetched from the remote",
		},
		[]string{"stream", "strategy"},
	)

	// Retries counts retry attempts by error class.
	// Labels: stream, class (rate_limit/server/decode)
	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tideflow_retries_total",
			Help: "Total number of retried remote calls",
		},
		[]string{"stream", "class"},
	)

	// RateLimitSleepSeconds accumulates server-dictated 429 wait time.
	// Labels: stream
	RateLimitSleepSeconds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tideflow_rate_limit_sleep_seconds_total",
			Help: "Total seconds slept on server-dictated rate-limit waits",
		},
		[]string{"stream"},
	)

	// WindowsCommitted counts committed extraction windows.
	// Labels: stream, strategy
	WindowsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tideflow_windows_committed_total",
			Help: "Total number of extraction windows committed",
		},
		[]string{"stream", "strategy"},
	)

	// FetchDuration tracks remote call latency.
	// Labels: stream, operation (page/count)
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tideflow_fetch_duration_seconds",
			Help:    "Remote fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stream", "operation"},
	)
)
