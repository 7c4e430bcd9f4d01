package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchAttempts *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	universeSize  *prometheus.GaugeVec
	breadthPct    *prometheus.GaugeVec
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heatdash_fetch_attempts_total",
				Help: "Bar fetch attempts against an upstream provider",
			},
			[]string{"provider", "symbol"},
		),
		fetchFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heatdash_fetch_failures_total",
				Help: "Failed bar fetch attempts by reason",
			},
			[]string{"provider", "reason"},
		),
		rateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heatdash_fetch_rate_limited_total",
				Help: "Fetch attempts rejected by upstream rate limiting",
			},
			[]string{"provider"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "heatdash_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		universeSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "heatdash_universe_symbols",
				Help: "Symbols retained after alignment for a universe",
			},
			[]string{"universe"},
		),
		breadthPct: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "heatdash_breadth_pct",
				Help: "Latest percent of symbols at a new rolling extreme",
			},
			[]string{"universe", "side"},
		),
	}
}

func (r *Recorder) RecordFetchAttempt(provider, symbol string) {
	r.fetchAttempts.WithLabelValues(provider, symbol).Inc()
}

func (r *Recorder) RecordFetchFailure(provider, reason string) {
	r.fetchFailures.WithLabelValues(provider, reason).Inc()
}

func (r *Recorder) RecordRateLimited(provider string) {
	r.rateLimited.WithLabelValues(provider).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordUniverseSize(universe string, size int) {
	r.universeSize.WithLabelValues(universe).Set(float64(size))
}

func (r *Recorder) RecordBreadth(universe string, pctAtLow, pctAtHigh float64) {
	r.breadthPct.WithLabelValues(universe, "low").Set(pctAtLow)
	r.breadthPct.WithLabelValues(universe, "high").Set(pctAtHigh)
}
