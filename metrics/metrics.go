// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts handled chat messages by chosen strategy.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastebuddy_messages_total",
			Help: "Total number of chat messages handled, by strategy",
		},
		[]string{"strategy"},
	)

	HarmonyScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tastebuddy_harmony_score",
			Help:    "Harmony score of the sender after committing their preferences",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// SearchRequestsTotal counts search collaborator calls by outcome
	// (cache_hit, fetched, error).
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastebuddy_search_requests_total",
			Help: "Total number of restaurant searches, by outcome",
		},
		[]string{"outcome"},
	)

	RestaurantsFilteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastebuddy_restaurants_filtered_total",
			Help: "Total number of restaurants removed, by filter",
		},
		[]string{"filter"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tastebuddy_circuit_breaker_state",
			Help: "Circuit breaker state of upstream clients",
		},
		[]string{"name"},
	)
)

func RecordMessage(strategy string) {
	MessagesTotal.WithLabelValues(strategy).Inc()
}

func RecordHarmony(score float64) {
	HarmonyScore.Observe(score)
}

func RecordSearch(outcome string) {
	SearchRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordFiltered adds removed restaurants for filter; zero is ignored.
func RecordFiltered(filter string, removed int) {
	if removed <= 0 {
		return
	}
	RestaurantsFilteredTotal.WithLabelValues(filter).Add(float64(removed))
}
