package models

import "HeatDash/pkg/util"

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.
// Numeric fields left at zero are filled from RequestDefaults after validation.

type HeatmapRequest struct {
	Universe string `query:"universe" json:"universe" validate:"required"`
	Days     int    `query:"days" json:"days" validate:"omitempty,gte=1,lte=3650"`
	Lookback int    `query:"lookback" json:"lookback" validate:"omitempty,gte=1,lte=1000"`
	Basis    string `query:"basis" json:"basis" default:"close" validate:"oneof=close intraday"`
}

type SignalsRequest struct {
	Universe string `query:"universe" json:"universe" validate:"required"`
	Days     int    `query:"days" json:"days" validate:"omitempty,gte=1,lte=3650"`
	Lookback int    `query:"lookback" json:"lookback" validate:"omitempty,gte=1,lte=1000"`
}

type BreadthRequest struct {
	Universe   string `query:"universe" json:"universe" validate:"required"`
	Days       int    `query:"days" json:"days" validate:"omitempty,gte=1,lte=3650"`
	Lookback   int    `query:"lookback" json:"lookback" validate:"omitempty,gte=1,lte=1000"`
	WindowDays int    `query:"window" json:"window" validate:"omitempty,gte=1,lte=500"`
	TopN       int    `query:"top" json:"top" validate:"omitempty,gte=1,lte=100"`
}

type RefreshRequest struct {
	Universe string `json:"universe" validate:"required"`
	Days     int    `json:"days" validate:"omitempty,gte=1,lte=3650"`
	Lookback int    `json:"lookback" validate:"omitempty,gte=1,lte=1000"`
	Force    bool   `json:"force"`
}

// RequestDefaults holds the configured values for request fields the caller omits.
type RequestDefaults struct {
	Days            int
	Lookback        int
	BreadthDays     int
	BreadthLookback int
	WindowDays      int
	TopN            int
}

func DefaultRequestDefaults() RequestDefaults {
	return RequestDefaults{
		Days:            365,
		Lookback:        252,
		BreadthDays:     730,
		BreadthLookback: 100,
		WindowDays:      20,
		TopN:            5,
	}
}

// WithDefaults fills zero fields from DefaultRequestDefaults.
func (d RequestDefaults) WithDefaults() RequestDefaults {
	def := DefaultRequestDefaults()
	pick := func(v, fallback int) int {
		if v > 0 {
			return v
		}
		return fallback
	}
	return RequestDefaults{
		Days:            pick(d.Days, def.Days),
		Lookback:        pick(d.Lookback, def.Lookback),
		BreadthDays:     pick(d.BreadthDays, def.BreadthDays),
		BreadthLookback: pick(d.BreadthLookback, def.BreadthLookback),
		WindowDays:      pick(d.WindowDays, def.WindowDays),
		TopN:            pick(d.TopN, def.TopN),
	}
}

// HistoryDays returns days when set. Otherwise it returns the configured days,
// widened so that sessions trading days of history fit in the calendar span.
func HistoryDays(days, configured, sessions int) int {
	if days > 0 {
		return days
	}
	if need := util.CalendarDaysFor(sessions); need > configured {
		return need
	}
	return configured
}

func (r *HeatmapRequest) ApplyDefaults(d RequestDefaults) {
	if r.Lookback <= 0 {
		r.Lookback = d.Lookback
	}
	r.Days = HistoryDays(r.Days, d.Days, r.Lookback)
}

func (r *SignalsRequest) ApplyDefaults(d RequestDefaults) {
	if r.Lookback <= 0 {
		r.Lookback = d.Lookback
	}
	r.Days = HistoryDays(r.Days, d.Days, r.Lookback)
}

func (r *BreadthRequest) ApplyDefaults(d RequestDefaults) {
	if r.Lookback <= 0 {
		r.Lookback = d.BreadthLookback
	}
	if r.WindowDays <= 0 {
		r.WindowDays = d.WindowDays
	}
	if r.TopN <= 0 {
		r.TopN = d.TopN
	}
	r.Days = HistoryDays(r.Days, d.BreadthDays, r.Lookback+r.WindowDays)
}

func (r *RefreshRequest) ApplyDefaults(d RequestDefaults) {
	if r.Lookback <= 0 {
		r.Lookback = d.Lookback
	}
	r.Days = HistoryDays(r.Days, d.Days, r.Lookback)
}
