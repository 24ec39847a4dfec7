package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcomes.
const (
	OutcomePublished       = "published"
	OutcomeEmpty           = "empty"
	OutcomeSummarizeFailed = "summarize_failed"
	OutcomePublishFailed   = "publish_failed"
)

var (
	// Ingestion metrics
	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_digest_records_ingested_total",
			Help: "Total channel messages stored",
		},
		[]string{"channel"},
	)

	AppendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channel_digest_append_failures_total",
			Help: "Total messages that could not be stored",
		},
	)

	// Cycle metrics
	Cycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_digest_cycles_total",
			Help: "Total summarization cycles by outcome",
		},
		[]string{"outcome"},
	)

	WindowRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "channel_digest_window_records",
			Help:    "Records selected per summarization window",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "channel_digest_cycle_duration_seconds",
			Help:    "Summarization cycle duration",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)
