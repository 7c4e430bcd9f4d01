package alignment

import (
	"math"
	"sort"
	"time"

	"HeatDash/internal/domain/models"
)

// DefaultCoverage is the share of axis dates a symbol must exceed to be retained.
const DefaultCoverage = 0.5

// Align builds the shared date axis with the default coverage gate.
func Align(barsBySymbol map[string]models.BarSequence) models.AlignedUniverse {
	return AlignWithCoverage(barsBySymbol, DefaultCoverage)
}

// AlignWithCoverage places each symbol's bars on the sorted union of all dates.
// A symbol is kept only when its present count is strictly greater than
// len(axis)*coverage. No values are synthesized for missing dates.
func AlignWithCoverage(barsBySymbol map[string]models.BarSequence, coverage float64) models.AlignedUniverse {
	seen := make(map[time.Time]struct{})
	for _, bars := range barsBySymbol {
		for _, b := range bars {
			seen[models.SessionDay(b.Date)] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	out := models.AlignedUniverse{
		Dates:   dates,
		Bars:    make(map[string][]*models.DailyBar, len(barsBySymbol)),
		Symbols: make([]string, 0, len(barsBySymbol)),
	}
	threshold := float64(len(dates)) * coverage

	for sym, bars := range barsBySymbol {
		row := make([]*models.DailyBar, len(dates))
		valid := 0
		for k := range bars {
			i := index[models.SessionDay(bars[k].Date)]
			if row[i] == nil {
				valid++
			}
			b := bars[k]
			b.Date = dates[i]
			row[i] = &b
		}
		if float64(valid) > threshold {
			out.Bars[sym] = row
			out.Symbols = append(out.Symbols, sym)
		} else {
			out.Dropped = append(out.Dropped, sym)
		}
	}
	sort.Strings(out.Symbols)
	sort.Strings(out.Dropped)
	return out
}

// Closes returns a symbol's close series on the axis, NaN where missing.
func Closes(u models.AlignedUniverse, symbol string) []float64 {
	row, ok := u.Bars[symbol]
	if !ok {
		return nil
	}
	out := make([]float64, len(row))
	for i, b := range row {
		if b == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = b.Close
	}
	return out
}

// Compact returns the symbol's present bars and the axis index of each.
func Compact(u models.AlignedUniverse, symbol string) (models.BarSequence, []int) {
	row, ok := u.Bars[symbol]
	if !ok {
		return nil, nil
	}
	bars := make(models.BarSequence, 0, len(row))
	idx := make([]int, 0, len(row))
	for i, b := range row {
		if b == nil {
			continue
		}
		bars = append(bars, *b)
		idx = append(idx, i)
	}
	return bars, idx
}
