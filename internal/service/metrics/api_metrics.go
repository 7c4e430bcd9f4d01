package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "heatdash",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of dashboard endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heatdash",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by dashboard endpoint",
		},
		[]string{"endpoint"},
	)

	APICacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heatdash",
			Subsystem: "api",
			Name:      "cache_hits_total",
			Help:      "Responses served from the response cache",
		},
		[]string{"endpoint"},
	)

	APIThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "heatdash",
			Subsystem: "api",
			Name:      "throttled_total",
			Help:      "Requests rejected by the per-client limiter",
		},
	)
)

// Register adds the API collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, APICacheHits, APIThrottled)
	})
}
