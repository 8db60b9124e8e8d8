// Package metrics provides Prometheus metrics for tailor: counters and
// histograms for retrieval, index builds, training runs, and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Retrieval ──────────────────────────────────────────────────────────────

// Retrievals tracks retrieval calls by outcome (match, no_match, error).
var Retrievals = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tailor",
	Name:      "retrievals_total",
	Help:      "Total retrieval calls by outcome.",
}, []string{"outcome"})

// RetrievalLatency tracks end-to-end retrieval duration in seconds,
// including query encoding and any index build it triggers.
var RetrievalLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "tailor",
	Name:      "retrieval_latency_seconds",
	Help:      "Retrieval duration in seconds.",
	Buckets:   prometheus.DefBuckets,
})

// ─── Index ──────────────────────────────────────────────────────────────────

// IndexBuilds tracks description index builds (full or incremental).
var IndexBuilds = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tailor",
	Name:      "index_builds_total",
	Help:      "Total description index builds.",
})

// DescriptionsEncoded tracks model descriptions sent to the encoder.
// Rows reused from the cache are not counted.
var DescriptionsEncoded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tailor",
	Name:      "descriptions_encoded_total",
	Help:      "Total model descriptions encoded.",
})

// ─── Training ───────────────────────────────────────────────────────────────

// TrainingRuns tracks training run transitions by status.
var TrainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tailor",
	Name:      "training_runs_total",
	Help:      "Total training run status transitions.",
}, []string{"status"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests tracks API requests by route and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tailor",
	Name:      "http_requests_total",
	Help:      "Total HTTP requests by route and status code.",
}, []string{"route", "code"})
