package models

import "time"

// AlignedUniverse places every retained symbol on a shared date axis.
// A nil entry in Bars[symbol] marks a date the symbol did not trade.
type AlignedUniverse struct {
	Dates   []time.Time
	Bars    map[string][]*DailyBar
	Symbols []string // retained symbols, sorted
	Dropped []string // symbols removed by the coverage gate, sorted
}

// Len returns the axis length.
func (u AlignedUniverse) Len() int { return len(u.Dates) }
