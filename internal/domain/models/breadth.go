package models

import "time"

// BreadthEntry is the universe-wide new-extreme tally for one date.
type BreadthEntry struct {
	Date          time.Time `json:"date"`
	PctAtLow      float64   `json:"pct_at_low"`
	PctAtHigh     float64   `json:"pct_at_high"`
	CountAtLow    int       `json:"count_at_low"`
	CountAtHigh   int       `json:"count_at_high"`
	CountValid    int       `json:"count_valid"`
	SymbolsAtLow  []string  `json:"symbols_at_low"`
	SymbolsAtHigh []string  `json:"symbols_at_high"`
}

// BreadthMetric names a numeric field of BreadthEntry.
type BreadthMetric string

const (
	MetricPctAtLow    BreadthMetric = "pct_at_low"
	MetricPctAtHigh   BreadthMetric = "pct_at_high"
	MetricCountAtLow  BreadthMetric = "count_at_low"
	MetricCountAtHigh BreadthMetric = "count_at_high"
)

// Value extracts metric m from e. ok is false for an unknown metric.
func (e BreadthEntry) Value(m BreadthMetric) (v float64, ok bool) {
	switch m {
	case MetricPctAtLow:
		return e.PctAtLow, true
	case MetricPctAtHigh:
		return e.PctAtHigh, true
	case MetricCountAtLow:
		return float64(e.CountAtLow), true
	case MetricCountAtHigh:
		return float64(e.CountAtHigh), true
	default:
		return 0, false
	}
}

// PeakResult is a single point of a breadth series.
type PeakResult struct {
	Index int          `json:"index"`
	Value float64      `json:"value"`
	Entry BreadthEntry `json:"entry"`
}

// WindowResult is a slice of a breadth series around a peak.
type WindowResult struct {
	Peak        PeakResult     `json:"peak"`
	StartIndex  int            `json:"start_index"`
	EndIndex    int            `json:"end_index"` // inclusive
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Average     float64        `json:"average"`
	TradingDays int            `json:"trading_days"`
	Entries     []BreadthEntry `json:"entries"`
}

// BreadthReport bundles the derived views over one breadth series.
type BreadthReport struct {
	Universe   string         `json:"universe,omitempty"`
	Lookback   int            `json:"lookback,omitempty"`
	Failed     []string       `json:"failed,omitempty"`
	Dropped    []string       `json:"dropped,omitempty"`
	Entries    []BreadthEntry `json:"entries"`
	PeakLow    *PeakResult    `json:"peak_low,omitempty"`
	PeakHigh   *PeakResult    `json:"peak_high,omitempty"`
	WindowLow  *WindowResult  `json:"window_low,omitempty"`
	WindowHigh *WindowResult  `json:"window_high,omitempty"`
	TopLow     []PeakResult   `json:"top_low"`
	TopHigh    []PeakResult   `json:"top_high"`
}
