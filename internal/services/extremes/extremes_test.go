package extremes

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeatDash/internal/domain/models"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func flatBars(n int, price float64) models.BarSequence {
	out := make(models.BarSequence, n)
	for i := range out {
		out[i] = models.DailyBar{Date: day0.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price, Volume: 1000}
	}
	return out
}

func TestCompute_ShortInputKeepsLength(t *testing.T) {
	for _, n := range []int{0, 1, 2, 9} {
		ms, err := Compute(flatBars(n, 50), 10, models.BasisClose, models.SideHigh)
		require.NoError(t, err)
		assert.Len(t, ms, n)
	}
}

func TestCompute_IdenticalPricesAlwaysAtExtreme(t *testing.T) {
	bars := flatBars(40, 100)
	for _, basis := range []models.Basis{models.BasisClose, models.BasisIntraday} {
		for _, side := range []models.Side{models.SideHigh, models.SideLow} {
			ms, err := Compute(bars, 10, basis, side)
			require.NoError(t, err)
			for i, m := range ms {
				assert.Equal(t, 0, m.PeriodsSince, "basis=%s side=%s i=%d", basis, side, i)
				assert.Equal(t, 0.0, m.DistancePct)
				assert.Equal(t, 100.0, m.Extreme)
			}
		}
	}
}

func TestCompute_SinglePeakCountsThenSaturates(t *testing.T) {
	const lookback, peak = 5, 10
	bars := make(models.BarSequence, 30)
	for i := range bars {
		bars[i] = models.DailyBar{Date: day0.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100}
	}
	bars[peak].High, bars[peak].Close = 150, 150

	ms, err := Compute(bars, lookback, models.BasisClose, models.SideHigh)
	require.NoError(t, err)

	for i := peak; i < len(bars); i++ {
		if i-peak < lookback {
			assert.Equal(t, i-peak, ms[i].PeriodsSince, "i=%d", i)
			assert.Equal(t, 150.0, ms[i].Extreme)
		} else {
			assert.Equal(t, lookback-1, ms[i].PeriodsSince, "i=%d", i)
			assert.Equal(t, 101.0, ms[i].Extreme)
		}
	}
}

func TestCompute_SpikeScenario(t *testing.T) {
	universe := map[string]models.BarSequence{
		"A": flatBars(30, 100),
		"B": flatBars(30, 100),
		"C": flatBars(30, 100),
	}
	universe["A"][20].High, universe["A"][20].Close = 150, 150

	ms, err := Compute(universe["A"], 10, models.BasisClose, models.SideHigh)
	require.NoError(t, err)
	assert.Equal(t, 0, ms[20].PeriodsSince)
	assert.Equal(t, 5, ms[25].PeriodsSince)
	assert.InDelta(t, (150.0-100.0)/150.0*100, ms[25].DistancePct, 1e-9)

	others, err := Compute(universe["B"], 10, models.BasisClose, models.SideHigh)
	require.NoError(t, err)
	assert.Equal(t, 0, others[25].PeriodsSince)
}

func TestCompute_HighDistanceNonNegative(t *testing.T) {
	bars := make(models.BarSequence, 60)
	for i := range bars {
		c := 100 + 10*math.Sin(float64(i)/4)
		bars[i] = models.DailyBar{Date: day0.AddDate(0, 0, i), Open: c, High: c + 1.5, Low: c - 1.5, Close: c}
	}
	for _, basis := range []models.Basis{models.BasisClose, models.BasisIntraday} {
		ms, err := Compute(bars, 20, basis, models.SideHigh)
		require.NoError(t, err)
		for i, m := range ms {
			assert.GreaterOrEqual(t, m.DistancePct, 0.0, "i=%d", i)
		}
		lows, err := Compute(bars, 20, basis, models.SideLow)
		require.NoError(t, err)
		for i, m := range lows {
			assert.GreaterOrEqual(t, m.DistancePct, 0.0, "i=%d", i)
		}
	}
}

func TestCompute_IntradayTouchWithoutCloseHold(t *testing.T) {
	bars := flatBars(12, 100)
	// tags a new high intraday but closes back at 100
	bars[11].High = 110

	intraday, err := Compute(bars, 10, models.BasisIntraday, models.SideHigh)
	require.NoError(t, err)
	closeBasis, err := Compute(bars, 10, models.BasisClose, models.SideHigh)
	require.NoError(t, err)

	assert.Equal(t, 0, intraday[11].PeriodsSince)
	assert.Equal(t, 0.0, intraday[11].DistancePct)
	assert.Equal(t, 9, closeBasis[11].PeriodsSince)
	assert.Equal(t, 110.0, closeBasis[11].Extreme)
}

func TestCompute_LowSide(t *testing.T) {
	bars := flatBars(20, 100)
	bars[15].Low, bars[15].Close = 80, 80

	ms, err := Compute(bars, 10, models.BasisClose, models.SideLow)
	require.NoError(t, err)
	assert.Equal(t, 0, ms[15].PeriodsSince)
	assert.Equal(t, 80.0, ms[15].Extreme)
	assert.Equal(t, 3, ms[18].PeriodsSince)
	assert.InDelta(t, 25.0, ms[18].DistancePct, 1e-9)
}

func TestCompute_SingleBarIsItsOwnExtreme(t *testing.T) {
	bars := models.BarSequence{{Date: day0, Open: 10, High: 12, Low: 9, Close: 11}}
	ms, err := Compute(bars, 5, models.BasisClose, models.SideHigh)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, 0, ms[0].PeriodsSince)
	assert.Equal(t, 0.0, ms[0].DistancePct)
	assert.Equal(t, 11.0, ms[0].Extreme)
}

func TestCompute_NaNPropagates(t *testing.T) {
	bars := flatBars(5, 100)
	bars[4].Close = math.NaN()
	ms, err := Compute(bars, 3, models.BasisClose, models.SideHigh)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ms[4].DistancePct))
}

func TestCompute_ContractViolations(t *testing.T) {
	bars := flatBars(5, 100)

	_, err := Compute(bars, 0, models.BasisClose, models.SideHigh)
	assert.ErrorIs(t, err, models.ErrInvalidLookback)

	_, err = Compute(bars, 3, models.Basis("open"), models.SideHigh)
	assert.ErrorIs(t, err, models.ErrInvalidBasis)

	_, err = Compute(bars, 3, models.BasisClose, models.Side("mid"))
	assert.ErrorIs(t, err, models.ErrInvalidSide)
}

func TestComputeHighLow(t *testing.T) {
	bars := flatBars(8, 100)
	bars[7].High, bars[7].Close = 120, 120

	ms, err := ComputeHighLow(bars, 5, models.BasisClose)
	require.NoError(t, err)
	require.Len(t, ms, 8)
	assert.Equal(t, bars[7].Date, ms[7].Date)
	assert.Equal(t, 0, ms[7].High.PeriodsSince)
	assert.Equal(t, 100.0, ms[7].Low.Extreme)
	assert.InDelta(t, 20.0, ms[7].Low.DistancePct, 1e-9)

	last, ok := Latest([]models.RollingMetric{ms[6].High, ms[7].High})
	assert.True(t, ok)
	assert.Equal(t, ms[7].High, last)

	_, ok = Latest(nil)
	assert.False(t, ok)
}
