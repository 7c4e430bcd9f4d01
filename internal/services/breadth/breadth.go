package breadth

import (
	"fmt"
	"math"
	"sort"

	"HeatDash/internal/domain/models"
)

// DefaultCoverage is the share of the lookback window a symbol needs to count on a date.
const DefaultCoverage = 0.5

// Compute tallies, for each axis date with lookbackDays of prior history, how many
// symbols close at or beyond the extreme of their prior lookbackDays closes.
//
// Entries start at axis index lookbackDays, so the result is shorter than the axis by
// exactly lookbackDays. The window for date i is [i-lookbackDays, i), excluding i.
// Ties with the window extreme count as new extremes, so a flat symbol counts as both
// at a new low and at a new high.
func Compute(aligned models.AlignedUniverse, lookbackDays int, coverage float64) ([]models.BreadthEntry, error) {
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("breadth: %w", models.ErrInvalidLookback)
	}
	if len(aligned.Symbols) == 0 {
		return nil, fmt.Errorf("breadth: %w", models.ErrEmptyUniverse)
	}
	n := len(aligned.Dates)
	for _, sym := range aligned.Symbols {
		if got := len(aligned.Bars[sym]); got != n {
			return nil, fmt.Errorf("breadth %s: %d bars for %d dates: %w", sym, got, n, models.ErrMisalignedRow)
		}
	}
	minPresent := float64(lookbackDays) * coverage

	if n <= lookbackDays {
		return []models.BreadthEntry{}, nil
	}
	out := make([]models.BreadthEntry, 0, n-lookbackDays)

	for i := lookbackDays; i < n; i++ {
		e := models.BreadthEntry{
			Date:          aligned.Dates[i],
			SymbolsAtLow:  []string{},
			SymbolsAtHigh: []string{},
		}
		for _, sym := range aligned.Symbols {
			row := aligned.Bars[sym]
			if row[i] == nil {
				continue
			}
			lo, hi := math.Inf(1), math.Inf(-1)
			present := 0
			for _, b := range row[i-lookbackDays : i] {
				if b == nil {
					continue
				}
				present++
				lo = math.Min(lo, b.Close)
				hi = math.Max(hi, b.Close)
			}
			if present == 0 || float64(present) < minPresent {
				continue
			}
			e.CountValid++
			cur := row[i].Close
			if cur <= lo {
				e.CountAtLow++
				e.SymbolsAtLow = append(e.SymbolsAtLow, sym)
			}
			if cur >= hi {
				e.CountAtHigh++
				e.SymbolsAtHigh = append(e.SymbolsAtHigh, sym)
			}
		}
		if e.CountValid > 0 {
			e.PctAtLow = float64(e.CountAtLow) / float64(e.CountValid) * 100
			e.PctAtHigh = float64(e.CountAtHigh) / float64(e.CountValid) * 100
		}
		out = append(out, e)
	}
	return out, nil
}

// FindPeakDay returns the first entry holding the maximum of metric, or nil for an empty series.
func FindPeakDay(series []models.BreadthEntry, metric models.BreadthMetric) (*models.PeakResult, error) {
	if _, ok := (models.BreadthEntry{}).Value(metric); !ok {
		return nil, fmt.Errorf("peak %q: %w", metric, models.ErrInvalidMetric)
	}
	if len(series) == 0 {
		return nil, nil
	}
	best := 0
	bestVal, _ := series[0].Value(metric)
	for i := 1; i < len(series); i++ {
		if v, _ := series[i].Value(metric); v > bestVal {
			best, bestVal = i, v
		}
	}
	return &models.PeakResult{Index: best, Value: bestVal, Entry: series[best]}, nil
}

// FindWindowAroundPeak returns a windowDays-wide slice centered on the peak.
// Near either boundary the window slides to stay inside the series; a series
// shorter than windowDays yields the whole series.
func FindWindowAroundPeak(series []models.BreadthEntry, metric models.BreadthMetric, windowDays int) (*models.WindowResult, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("window: %w", models.ErrInvalidWindow)
	}
	peak, err := FindPeakDay(series, metric)
	if err != nil || peak == nil {
		return nil, err
	}

	start, end := 0, len(series)-1
	if len(series) > windowDays {
		start = peak.Index - windowDays/2
		if start < 0 {
			start = 0
		}
		end = start + windowDays - 1
		if end > len(series)-1 {
			end = len(series) - 1
			start = end - windowDays + 1
		}
	}

	entries := series[start : end+1]
	sum := 0.0
	for _, e := range entries {
		v, _ := e.Value(metric)
		sum += v
	}
	return &models.WindowResult{
		Peak:        *peak,
		StartIndex:  start,
		EndIndex:    end,
		Start:       series[start].Date,
		End:         series[end].Date,
		Average:     sum / float64(len(entries)),
		TradingDays: len(entries),
		Entries:     entries,
	}, nil
}

// FindTopPeaks returns the topN entries by metric, highest first. Equal values keep
// chronological order. Adjacent days of one plateau are not merged.
func FindTopPeaks(series []models.BreadthEntry, metric models.BreadthMetric, topN int) ([]models.PeakResult, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("top peaks: %w", models.ErrInvalidTopN)
	}
	if _, ok := (models.BreadthEntry{}).Value(metric); !ok {
		return nil, fmt.Errorf("top peaks %q: %w", metric, models.ErrInvalidMetric)
	}

	all := make([]models.PeakResult, len(series))
	for i, e := range series {
		v, _ := e.Value(metric)
		all[i] = models.PeakResult{Index: i, Value: v, Entry: e}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Value > all[j].Value })
	if len(all) > topN {
		all = all[:topN]
	}
	return all, nil
}

// Summarize builds peaks, peak windows and top-N lists for both new-low and new-high percentages.
func Summarize(series []models.BreadthEntry, windowDays, topN int) (models.BreadthReport, error) {
	rep := models.BreadthReport{Entries: series}
	var err error

	if rep.PeakLow, err = FindPeakDay(series, models.MetricPctAtLow); err != nil {
		return rep, err
	}
	if rep.PeakHigh, err = FindPeakDay(series, models.MetricPctAtHigh); err != nil {
		return rep, err
	}
	if rep.WindowLow, err = FindWindowAroundPeak(series, models.MetricPctAtLow, windowDays); err != nil {
		return rep, err
	}
	if rep.WindowHigh, err = FindWindowAroundPeak(series, models.MetricPctAtHigh, windowDays); err != nil {
		return rep, err
	}
	if rep.TopLow, err = FindTopPeaks(series, models.MetricPctAtLow, topN); err != nil {
		return rep, err
	}
	if rep.TopHigh, err = FindTopPeaks(series, models.MetricPctAtHigh, topN); err != nil {
		return rep, err
	}
	return rep, nil
}
