package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching-engine Prometheus metrics.
var (
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resourcelink",
			Name:      "match_requests_total",
			Help:      "Total match requests by outcome",
		},
		[]string{"outcome"}, // "ok" / "needs_confirmation" / "invalid" / "error"
	)

	ClassifyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resourcelink",
			Name:      "classify_requests_total",
			Help:      "Intent classification attempts by resolution path",
		},
		[]string{"path", "status"}, // path: "llm"/"fallback"; status: "ok"/"miss"/"error"
	)

	ClassifyCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resourcelink",
			Name:      "classify_cache_total",
			Help:      "Classification memo cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	CatalogFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resourcelink",
			Name:      "catalog_fallback_total",
			Help:      "Times tag expansion matched zero resources and the whole catalog was used",
		},
	)

	AvailabilityCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resourcelink",
			Name:      "availability_cache_total",
			Help:      "Availability snapshot cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resourcelink",
			Name:      "embedding_requests_total",
			Help:      "Query embedding requests for hybrid ranking",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

var matchMetricsRegistered bool

// RegisterMatchMetrics registers the matching-engine metrics. Must be called once from main.
func RegisterMatchMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(ClassifyRequestsTotal)
	prometheus.MustRegister(ClassifyCacheTotal)
	prometheus.MustRegister(CatalogFallbackTotal)
	prometheus.MustRegister(AvailabilityCacheTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	matchMetricsRegistered = true
}
