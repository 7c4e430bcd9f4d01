package models

import (
	"encoding/json"
	"math"
	"time"
)

// Basis selects the price field compared against the rolling extreme.
type Basis string

const (
	BasisClose    Basis = "close"
	BasisIntraday Basis = "intraday"
)

// Side selects whether the rolling extreme is a high or a low.
type Side string

const (
	SideHigh Side = "high"
	SideLow  Side = "low"
)

// IsValidBasis reports whether b is a supported basis.
func IsValidBasis(b Basis) bool {
	return b == BasisClose || b == BasisIntraday
}

// IsValidSide reports whether s is a supported side.
func IsValidSide(s Side) bool {
	return s == SideHigh || s == SideLow
}

// RollingMetric is the per-bar distance-from-extreme reading.
type RollingMetric struct {
	Extreme      float64 `json:"extreme"`
	DistancePct  float64 `json:"distance_pct"`
	PeriodsSince int     `json:"periods_since"`
}

// MarshalJSON writes non-finite readings as null. A zero extreme on the low
// side yields an infinite or NaN distance, which encoding/json rejects.
func (m RollingMetric) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Extreme      *float64 `json:"extreme"`
		DistancePct  *float64 `json:"distance_pct"`
		PeriodsSince int      `json:"periods_since"`
	}{
		Extreme:      finite(m.Extreme),
		DistancePct:  finite(m.DistancePct),
		PeriodsSince: m.PeriodsSince,
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// HighLowMetric pairs the high and low readings of one bar.
type HighLowMetric struct {
	Date time.Time     `json:"date"`
	High RollingMetric `json:"high"`
	Low  RollingMetric `json:"low"`
}
