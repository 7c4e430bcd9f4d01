package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingMetric_NonFiniteEncodesAsNull(t *testing.T) {
	b, err := json.Marshal(RollingMetric{Extreme: 0, DistancePct: math.Inf(1), PeriodsSince: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"extreme":0,"distance_pct":null,"periods_since":4}`, string(b))

	b, err = json.Marshal(HeatmapCell{Close: math.NaN(), High: RollingMetric{Extreme: 10, DistancePct: 2.5}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"close":null,
		"high":{"extreme":10,"distance_pct":2.5,"periods_since":0},
		"low":{"extreme":0,"distance_pct":0,"periods_since":0}}`, string(b))
}

func TestRollingMetric_NullDecodesToZero(t *testing.T) {
	var m RollingMetric
	require.NoError(t, json.Unmarshal([]byte(`{"extreme":0,"distance_pct":null,"periods_since":4}`), &m))
	assert.Equal(t, RollingMetric{PeriodsSince: 4}, m)
}
