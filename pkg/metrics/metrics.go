// Package metrics exposes corestore's internal counters as Prometheus
// collectors, adapted from cuemby-warren's pkg/metrics (GaugeVec/CounterVec
// registration style, promhttp.Handler wiring) and re-targeted at getStats()
// (spec §6) instead of cluster node/service/task counts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corestore_records_total",
			Help: "Current number of records per bucket",
		},
		[]string{"bucket"},
	)

	IndexEntriesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corestore_index_entries_total",
			Help: "Current number of distinct values per indexed field",
		},
		[]string{"bucket", "field"},
	)

	SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "corestore_reactive_subscriptions_active",
			Help: "Current number of live reactive subscriptions",
		},
	)

	QueryReexecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestore_reactive_reexecutions_total",
			Help: "Total reactive query re-executions, by whether the callback fired",
		},
		[]string{"query", "notified"},
	)

	TTLPurgedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestore_ttl_purged_total",
			Help: "Total records purged by TTL expiration, by bucket",
		},
		[]string{"bucket"},
	)

	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestore_evictions_total",
			Help: "Total records evicted by the maxSize policy, by bucket",
		},
		[]string{"bucket"},
	)

	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestore_transactions_total",
			Help: "Total transactions, by outcome (committed|conflict|rolled_back)",
		},
		[]string{"outcome"},
	)

	BucketMutationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corestore_bucket_mutation_duration_seconds",
			Help:    "Latency of insert/update/delete mailbox round trips",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"bucket", "op"},
	)
)

func init() {
	prometheus.MustRegister(
		RecordsTotal,
		IndexEntriesTotal,
		SubscriptionsActive,
		QueryReexecutionsTotal,
		TTLPurgedTotal,
		EvictionsTotal,
		TransactionsTotal,
		BucketMutationDuration,
	)
}

// Handler returns the HTTP handler serving metrics in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing an operation and recording it against a
// histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time against a HistogramVec's
// labeled observer.
func (t *Timer) ObserveDuration(histogram *prometheus.HistogramVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time without recording it.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
