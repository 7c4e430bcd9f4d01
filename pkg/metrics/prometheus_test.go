package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordFetchAttempt("alpaca", "AAPL")
	r.RecordFetchAttempt("alpaca", "AAPL")
	r.RecordFetchFailure("alpaca", "rate_limited")
	r.RecordRateLimited("alpaca")
	r.RecordUniverseSize("mega", 7)
	r.RecordBreadth("mega", 12.5, 40)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetchAttempts.WithLabelValues("alpaca", "AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchFailures.WithLabelValues("alpaca", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rateLimited.WithLabelValues("alpaca")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.universeSize.WithLabelValues("mega")))
	assert.Equal(t, 12.5, testutil.ToFloat64(r.breadthPct.WithLabelValues("mega", "low")))
	assert.Equal(t, 40.0, testutil.ToFloat64(r.breadthPct.WithLabelValues("mega", "high")))
}
