// Package metrics provides Prometheus metrics for the trend ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "audiotrends"

var (
	// CacheRequestsTotal counts response cache lookups by result (hit, miss).
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Total number of trend cache lookups",
		},
		[]string{"result"},
	)

	// UpstreamAttemptsTotal counts HTTP attempts against upstream dependencies.
	UpstreamAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Total number of upstream request attempts",
		},
		[]string{"dependency", "status"},
	)

	// UpstreamItems observes how many items one fetch produced.
	UpstreamItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_items",
			Help:      "Distribution of items returned per upstream fetch",
			Buckets:   []float64{0, 1, 5, 10, 25, 50},
		},
		[]string{"source"},
	)

	// CircuitBreakerState tracks breaker state (0 = closed, 1 = half-open, 2 = open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 = closed, 1 = half-open, 2 = open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts breaker state transitions.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// RateLimitDecisionsTotal counts admission decisions per preset.
	RateLimitDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_decisions_total",
			Help:      "Total number of rate limit decisions",
		},
		[]string{"prefix", "decision"},
	)

	// RateLimitStoreFallbacksTotal counts primary store failures served from memory.
	RateLimitStoreFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_store_fallbacks_total",
			Help:      "Total number of rate limit store operations served by the fallback store",
		},
		[]string{"operation"},
	)

	// RefreshRunsTotal counts scheduled refresh runs by status.
	RefreshRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Total number of trend refresh runs",
		},
		[]string{"status"},
	)

	// RefreshDuration measures refresh run duration.
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of trend refresh runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// RecordCache records a cache lookup.
func RecordCache(hit bool) {
	if hit {
		CacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheRequestsTotal.WithLabelValues("miss").Inc()
}

// RecordAttempt records one upstream attempt.
func RecordAttempt(dependency string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	UpstreamAttemptsTotal.WithLabelValues(dependency, status).Inc()
}

// RecordDecision records a rate limit decision.
func RecordDecision(prefix string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	RateLimitDecisionsTotal.WithLabelValues(prefix, decision).Inc()
}

// RecordRefresh records a completed refresh run.
func RecordRefresh(err error, seconds float64) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	RefreshRunsTotal.WithLabelValues(status).Inc()
	RefreshDuration.Observe(seconds)
}
