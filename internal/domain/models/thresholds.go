package models

// Thresholds collects the tunable cutoffs used by alignment, breadth and signals.
type Thresholds struct {
	// AlignCoverage: a symbol is kept only if present on more than this share of axis dates.
	AlignCoverage float64 `yaml:"align_coverage"`
	// BreadthCoverage: minimum share of the lookback window a symbol needs on a date.
	BreadthCoverage float64 `yaml:"breadth_coverage"`
	HotDays         int     `yaml:"hot_days"`
	ColdDays        int     `yaml:"cold_days"`
	RegimeRatio     float64 `yaml:"regime_ratio"`
	// HighConfidenceRatio is the winning ratio at which a regime is tagged high confidence.
	HighConfidenceRatio float64 `yaml:"high_confidence_ratio"`
	MaxDivergences      int     `yaml:"max_divergences"`
}

// DefaultThresholds returns the stock cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AlignCoverage:       0.5,
		BreadthCoverage:     0.5,
		HotDays:             5,
		ColdDays:            15,
		RegimeRatio:         0.6,
		HighConfidenceRatio: 0.75,
		MaxDivergences:      10,
	}
}

// WithDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.AlignCoverage <= 0 {
		t.AlignCoverage = d.AlignCoverage
	}
	if t.BreadthCoverage <= 0 {
		t.BreadthCoverage = d.BreadthCoverage
	}
	if t.HotDays <= 0 {
		t.HotDays = d.HotDays
	}
	if t.ColdDays <= 0 {
		t.ColdDays = d.ColdDays
	}
	if t.RegimeRatio <= 0 {
		t.RegimeRatio = d.RegimeRatio
	}
	if t.HighConfidenceRatio <= 0 {
		t.HighConfidenceRatio = d.HighConfidenceRatio
	}
	if t.MaxDivergences <= 0 {
		t.MaxDivergences = d.MaxDivergences
	}
	return t
}
