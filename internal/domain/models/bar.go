package models

import "time"

// DailyBar is one trading session for one symbol.
// Date is the session's calendar day at 00:00 UTC.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// BarSequence is a symbol's bars in strictly ascending date order.
// Ordering and OHLC consistency are assumed from the source, not validated.
type BarSequence []DailyBar

// SessionDay normalizes t to the UTC calendar day it falls on.
func SessionDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
