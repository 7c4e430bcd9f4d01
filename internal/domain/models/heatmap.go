package models

import (
	"encoding/json"
	"time"
)

// FetchResult is the outcome of a bulk history fetch.
// Note: no transport (json/http) concerns here.
type FetchResult struct {
	PerSymbol   map[string]BarSequence
	Succeeded   []string
	Failed      []string
	RateLimited bool
}

// HeatmapCell is one symbol's reading on one axis date.
type HeatmapCell struct {
	Close float64       `json:"close"`
	High  RollingMetric `json:"high"`
	Low   RollingMetric `json:"low"`
}

func (c HeatmapCell) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Close *float64      `json:"close"`
		High  RollingMetric `json:"high"`
		Low   RollingMetric `json:"low"`
	}{finite(c.Close), c.High, c.Low})
}

// HeatmapRow holds a symbol's cells indexed to Heatmap.Dates; nil where the symbol did not trade.
type HeatmapRow struct {
	Symbol string         `json:"symbol"`
	Cells  []*HeatmapCell `json:"cells"`
}

// Heatmap is the dashboard grid for one universe.
type Heatmap struct {
	Universe    string       `json:"universe"`
	Basis       Basis        `json:"basis"`
	Lookback    int          `json:"lookback"`
	Dates       []time.Time  `json:"dates"`
	Rows        []HeatmapRow `json:"rows"`
	Failed      []string     `json:"failed,omitempty"`
	Dropped     []string     `json:"dropped,omitempty"`
	RateLimited bool         `json:"rate_limited"`
}
