package breadth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeatDash/internal/domain/models"
	"HeatDash/internal/services/alignment"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func series(closes []float64) models.BarSequence {
	out := make(models.BarSequence, len(closes))
	for i, c := range closes {
		out[i] = models.DailyBar{Date: day0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func drift(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func entriesWith(vals ...float64) []models.BreadthEntry {
	out := make([]models.BreadthEntry, len(vals))
	for i, v := range vals {
		out[i] = models.BreadthEntry{Date: day0.AddDate(0, 0, i), PctAtLow: v, PctAtHigh: 100 - v}
	}
	return out
}

func TestCompute_SingleDropScenario(t *testing.T) {
	dropper := drift(150, 100, 0.01)
	for i := 120; i < 150; i++ {
		dropper[i] = dropper[119] * 0.9
	}
	u := alignment.Align(map[string]models.BarSequence{
		"AAA": series(drift(150, 100, 0.01)),
		"BBB": series(drift(150, 50, 0.02)),
		"CCC": series(dropper),
	})

	out, err := Compute(u, 100, DefaultCoverage)
	require.NoError(t, err)
	require.Len(t, out, 50)

	e := out[120-100]
	assert.Equal(t, day0.AddDate(0, 0, 120), e.Date)
	assert.Equal(t, 3, e.CountValid)
	assert.Equal(t, 1, e.CountAtLow)
	assert.InDelta(t, 33.33, e.PctAtLow, 0.01)
	assert.Equal(t, []string{"CCC"}, e.SymbolsAtLow)
	assert.Equal(t, []string{"AAA", "BBB"}, e.SymbolsAtHigh)
}

func TestCompute_FlatWindowCountsAsBothExtremes(t *testing.T) {
	u := alignment.Align(map[string]models.BarSequence{
		"FLAT": series(drift(30, 100, 0)),
	})
	out, err := Compute(u, 10, DefaultCoverage)
	require.NoError(t, err)
	require.Len(t, out, 20)
	for _, e := range out {
		assert.Equal(t, 1, e.CountAtLow)
		assert.Equal(t, 1, e.CountAtHigh)
		assert.Equal(t, 1, e.CountValid)
		assert.LessOrEqual(t, e.CountAtLow, e.CountValid)
		assert.LessOrEqual(t, e.CountAtHigh, e.CountValid)
	}
}

func TestCompute_PerDateCoverageGate(t *testing.T) {
	// SPARSE trades daily for ten sessions, then every third day. It survives
	// alignment at 0.4 but drops out of breadth once its window thins.
	full := series(drift(40, 100, 0.1))
	sparse := make(models.BarSequence, 0, 40)
	for i := 0; i < 40; i++ {
		if i < 10 || i%3 == 0 {
			sparse = append(sparse, models.DailyBar{Date: day0.AddDate(0, 0, i), Close: 10, High: 10, Low: 10, Open: 10})
		}
	}
	u := alignment.AlignWithCoverage(map[string]models.BarSequence{"FULL": full, "SPARSE": sparse}, 0.4)
	require.Equal(t, []string{"FULL", "SPARSE"}, u.Symbols)

	out, err := Compute(u, 10, DefaultCoverage)
	require.NoError(t, err)

	// day 30: window [20,30) holds SPARSE on 21,24,27 only
	e := out[30-10]
	assert.Equal(t, 1, e.CountValid)
	// day 11: window [1,11) holds nine closes, but no bar on day 11
	assert.Equal(t, 1, out[1].CountValid)
	// day 12: bar present and window [2,12) holds eight closes
	assert.Equal(t, 2, out[2].CountValid)
	// day 18: window [8,18) holds 8,9,12,15 → four closes, below five
	assert.Equal(t, 1, out[8].CountValid)
}

func TestCompute_NoValidSymbolsGivesZeroPct(t *testing.T) {
	// A and B alternate sessions, so neither fills 90% of any window.
	a := make(models.BarSequence, 0)
	b := make(models.BarSequence, 0)
	for i := 0; i < 20; i++ {
		bar := models.DailyBar{Date: day0.AddDate(0, 0, i), Close: 5}
		if i%2 == 0 {
			a = append(a, bar)
		} else {
			b = append(b, bar)
		}
	}
	u := alignment.AlignWithCoverage(map[string]models.BarSequence{"A": a, "B": b}, 0)
	out, err := Compute(u, 5, 0.9)
	require.NoError(t, err)
	require.Len(t, out, 15)
	for _, e := range out {
		assert.Equal(t, 0, e.CountValid)
		assert.Equal(t, 0.0, e.PctAtLow)
		assert.Equal(t, 0.0, e.PctAtHigh)
	}
}

func TestCompute_ShortAxisAndContractViolations(t *testing.T) {
	u := alignment.Align(map[string]models.BarSequence{"A": series(drift(5, 1, 1))})

	out, err := Compute(u, 5, DefaultCoverage)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = Compute(u, 0, DefaultCoverage)
	assert.ErrorIs(t, err, models.ErrInvalidLookback)

	_, err = Compute(models.AlignedUniverse{}, 5, DefaultCoverage)
	assert.ErrorIs(t, err, models.ErrEmptyUniverse)
}

func TestCompute_RejectsRowsOffTheAxis(t *testing.T) {
	u := alignment.Align(map[string]models.BarSequence{
		"A": series(drift(30, 10, 1)),
		"B": series(drift(30, 50, -1)),
	})
	u.Symbols = append(u.Symbols, "GHOST")

	_, err := Compute(u, 10, DefaultCoverage)
	require.ErrorIs(t, err, models.ErrMisalignedRow)
	assert.Contains(t, err.Error(), "GHOST")

	u.Symbols = u.Symbols[:2]
	u.Bars["A"] = u.Bars["A"][:20]
	assert.NotPanics(t, func() {
		_, err = Compute(u, 10, DefaultCoverage)
	})
	assert.ErrorIs(t, err, models.ErrMisalignedRow)
}

func TestFindPeakDay(t *testing.T) {
	s := entriesWith(10, 40, 25, 40, 5)
	p, err := FindPeakDay(s, models.MetricPctAtLow)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Index)
	assert.Equal(t, 40.0, p.Value)

	p, err = FindPeakDay(nil, models.MetricPctAtLow)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = FindPeakDay(s, models.BreadthMetric("volume"))
	assert.ErrorIs(t, err, models.ErrInvalidMetric)
}

func TestFindWindowAroundPeak(t *testing.T) {
	tests := []struct {
		name       string
		vals       []float64
		window     int
		start, end int
	}{
		{name: "centered", vals: []float64{0, 0, 0, 0, 9, 0, 0, 0, 0, 0}, window: 4, start: 2, end: 5},
		{name: "clamped left", vals: []float64{9, 0, 0, 0, 0, 0}, window: 4, start: 0, end: 3},
		{name: "clamped right", vals: []float64{0, 0, 0, 0, 0, 9}, window: 4, start: 2, end: 5},
		{name: "shorter than window", vals: []float64{1, 9, 2}, window: 10, start: 0, end: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, err := FindWindowAroundPeak(entriesWith(tc.vals...), models.MetricPctAtLow, tc.window)
			require.NoError(t, err)
			require.NotNil(t, w)
			assert.Equal(t, tc.start, w.StartIndex)
			assert.Equal(t, tc.end, w.EndIndex)
			assert.Equal(t, tc.end-tc.start+1, w.TradingDays)
			assert.Len(t, w.Entries, w.TradingDays)
			assert.InDelta(t, 9.0/float64(w.TradingDays)+avgExtra(tc.vals, tc.start, tc.end), w.Average, 1e-9)
		})
	}

	w, err := FindWindowAroundPeak(nil, models.MetricPctAtLow, 5)
	require.NoError(t, err)
	assert.Nil(t, w)

	_, err = FindWindowAroundPeak(entriesWith(1), models.MetricPctAtLow, 0)
	assert.ErrorIs(t, err, models.ErrInvalidWindow)
}

// avgExtra is the non-peak contribution to a window average.
func avgExtra(vals []float64, start, end int) float64 {
	sum := 0.0
	for i := start; i <= end; i++ {
		if vals[i] != 9 {
			sum += vals[i]
		}
	}
	return sum / float64(end-start+1)
}

func TestFindTopPeaks_NoPlateauDedup(t *testing.T) {
	s := entriesWith(10, 50, 50, 50, 20, 30)
	top, err := FindTopPeaks(s, models.MetricPctAtLow, 4)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, []int{1, 2, 3, 5}, []int{top[0].Index, top[1].Index, top[2].Index, top[3].Index})

	top, err = FindTopPeaks(s, models.MetricPctAtLow, 100)
	require.NoError(t, err)
	assert.Len(t, top, len(s))

	_, err = FindTopPeaks(s, models.MetricPctAtLow, 0)
	assert.ErrorIs(t, err, models.ErrInvalidTopN)
}

func TestSummarize(t *testing.T) {
	s := entriesWith(10, 70, 20, 5)
	rep, err := Summarize(s, 2, 2)
	require.NoError(t, err)
	require.NotNil(t, rep.PeakLow)
	require.NotNil(t, rep.PeakHigh)
	assert.Equal(t, 1, rep.PeakLow.Index)
	assert.Equal(t, 3, rep.PeakHigh.Index)
	assert.Equal(t, 2, rep.WindowLow.TradingDays)
	assert.Len(t, rep.TopLow, 2)
	assert.Len(t, rep.TopHigh, 2)

	empty, err := Summarize(nil, 2, 2)
	require.NoError(t, err)
	assert.Nil(t, empty.PeakLow)
	assert.Empty(t, empty.TopLow)
}
