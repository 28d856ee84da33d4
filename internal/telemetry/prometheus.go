// Package telemetry exposes the recommendation service's Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusRecorder struct {
	recommendations *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheSize       prometheus.Gauge
}

// NewPrometheusRecorder registers the service metrics on reg. Tests pass a
// fresh prometheus.NewRegistry() so repeated construction does not collide.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "app_recommendations_total",
				Help: "Total number of products recommended",
			},
			[]string{"recommendation_type"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "app_recommendation_cache_lookups_total",
				Help: "Recommendation cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		cacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "app_recommendation_cache_ids",
				Help: "Number of product ids held by the recommendation cache, duplicates included",
			},
		),
	}
}

func (r *PrometheusRecorder) AddRecommendations(count int, recommendationType string) {
	r.recommendations.WithLabelValues(recommendationType).Add(float64(count))
}

func (r *PrometheusRecorder) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *PrometheusRecorder) CacheSize(size int) {
	r.cacheSize.Set(float64(size))
}

// Noop discards everything.
type Noop struct{}

func (Noop) AddRecommendations(int, string) {}
func (Noop) CacheLookup(bool)               {}
func (Noop) CacheSize(int)                  {}
