// Package metrics provides Prometheus metrics for the idgames client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupStale   = "stale"
	LookupCorrupt = "corrupt"
)

// Task outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

var (
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idgames_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	cacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "idgames_cache_evictions_total",
			Help: "Cache files removed to stay under the size limit",
		},
	)

	cacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "idgames_cache_size_bytes",
			Help: "Total size of cached responses in bytes",
		},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idgames_fetch_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idgames_tasks_total",
			Help: "Finished response tasks by outcome",
		},
		[]string{"outcome"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCacheLookup records the result of a cache lookup.
func RecordCacheLookup(result string) {
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordCacheEviction records one pruned cache file.
func RecordCacheEviction() {
	cacheEvictionsTotal.Inc()
}

// SetCacheSize sets the current cache size.
func SetCacheSize(bytes int64) {
	cacheSizeBytes.Set(float64(bytes))
}

// RecordFetch records an API request. status is the HTTP status code, or 0
// when no response was received.
func RecordFetch(status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	fetchDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordTask records a finished task.
func RecordTask(outcome string) {
	tasksTotal.WithLabelValues(outcome).Inc()
}
