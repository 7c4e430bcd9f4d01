package models

import "time"

// RegimeLabel is the coarse risk state of a universe.
type RegimeLabel string

const (
	RegimeRiskOn      RegimeLabel = "Risk-On"
	RegimeRiskOff     RegimeLabel = "Risk-Off"
	RegimeNarrowMixed RegimeLabel = "Narrow/Mixed"
)

// Confidence tags how decisively a regime was chosen.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

type Regime struct {
	Label      RegimeLabel `json:"label"`
	Confidence Confidence  `json:"confidence"`
	HotRatio   float64     `json:"hot_ratio"`
	ColdRatio  float64     `json:"cold_ratio"`
}

// BreadthSplit buckets symbols by bars since their rolling high.
type BreadthSplit struct {
	Hot     int `json:"hot"`
	Neutral int `json:"neutral"`
	Cold    int `json:"cold"`
	Total   int `json:"total"`
}

// Divergence pairs a symbol near its high with one far from it.
type Divergence struct {
	Leader         string `json:"leader"`
	Laggard        string `json:"laggard"`
	LeaderPeriods  int    `json:"leader_periods"`
	LaggardPeriods int    `json:"laggard_periods"`
}

// SignalSummary is the latest-bar view across a universe.
type SignalSummary struct {
	Universe    string       `json:"universe,omitempty"`
	AsOf        time.Time    `json:"as_of"`
	Confirmed   []string     `json:"confirmed"`
	Rejected    []string     `json:"rejected"`
	Split       BreadthSplit `json:"split"`
	Regime      Regime       `json:"regime"`
	Divergences []Divergence `json:"divergences"`
}
