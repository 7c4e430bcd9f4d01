package extremes

import (
	"fmt"

	"HeatDash/internal/domain/models"
)

// Compute returns one RollingMetric per bar over a trailing window of lookback bars.
//
// The rolling extreme always comes from the intraday High (SideHigh) or Low (SideLow)
// fields; basis only changes the value compared against it. Sequences shorter than
// lookback are computed on truncated windows, which under-counts true history.
// Bad numeric input (zero, NaN) is not guarded and propagates into the output.
func Compute(bars models.BarSequence, lookback int, basis models.Basis, side models.Side) ([]models.RollingMetric, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("compute %s/%s: %w", basis, side, models.ErrInvalidLookback)
	}
	if !models.IsValidBasis(basis) {
		return nil, fmt.Errorf("compute %q: %w", basis, models.ErrInvalidBasis)
	}
	if !models.IsValidSide(side) {
		return nil, fmt.Errorf("compute %q: %w", side, models.ErrInvalidSide)
	}

	out := make([]models.RollingMetric, len(bars))
	if len(bars) == 1 {
		v := current(bars[0], basis, side)
		out[0] = models.RollingMetric{Extreme: v}
		return out, nil
	}

	for i := range bars {
		start := i - lookback + 1
		if start < 0 {
			start = 0
		}
		ext := extreme(bars[start:i+1], side)
		cur := current(bars[i], basis, side)

		m := models.RollingMetric{Extreme: ext, PeriodsSince: lookback - 1}
		if side == models.SideHigh {
			m.DistancePct = (ext - cur) / ext * 100
		} else {
			m.DistancePct = (cur - ext) / ext * 100
		}
		for j := i; j >= start; j-- {
			if touches(current(bars[j], basis, side), ext, side) {
				m.PeriodsSince = i - j
				break
			}
		}
		out[i] = m
	}
	return out, nil
}

// ComputeHighLow runs Compute for both sides and zips the results with bar dates.
func ComputeHighLow(bars models.BarSequence, lookback int, basis models.Basis) ([]models.HighLowMetric, error) {
	highs, err := Compute(bars, lookback, basis, models.SideHigh)
	if err != nil {
		return nil, err
	}
	lows, err := Compute(bars, lookback, basis, models.SideLow)
	if err != nil {
		return nil, err
	}
	out := make([]models.HighLowMetric, len(bars))
	for i := range bars {
		out[i] = models.HighLowMetric{Date: bars[i].Date, High: highs[i], Low: lows[i]}
	}
	return out, nil
}

// Latest returns the last metric of a series.
func Latest(ms []models.RollingMetric) (models.RollingMetric, bool) {
	if len(ms) == 0 {
		return models.RollingMetric{}, false
	}
	return ms[len(ms)-1], true
}

func extreme(window models.BarSequence, side models.Side) float64 {
	if side == models.SideHigh {
		v := window[0].High
		for _, b := range window[1:] {
			if b.High > v {
				v = b.High
			}
		}
		return v
	}
	v := window[0].Low
	for _, b := range window[1:] {
		if b.Low < v {
			v = b.Low
		}
	}
	return v
}

func current(b models.DailyBar, basis models.Basis, side models.Side) float64 {
	if basis == models.BasisClose {
		return b.Close
	}
	if side == models.SideHigh {
		return b.High
	}
	return b.Low
}

func touches(v, ext float64, side models.Side) bool {
	if side == models.SideHigh {
		return v >= ext
	}
	return v <= ext
}
