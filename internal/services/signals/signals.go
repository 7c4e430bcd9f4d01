package signals

import (
	"sort"

	"HeatDash/internal/domain/models"
)

type latest struct {
	symbol  string
	periods int
}

// Summarize reads each symbol's most recent high metrics and derives confirmation,
// rejection, the hot/neutral/cold split, the regime and leader/laggard divergences.
// Both maps are keyed by symbol and hold rolling-high metrics; closeMetrics on
// close basis, intradayMetrics on intraday basis.
func Summarize(closeMetrics, intradayMetrics map[string][]models.RollingMetric, th models.Thresholds) models.SignalSummary {
	th = th.WithDefaults()
	out := models.SignalSummary{
		Confirmed:   []string{},
		Rejected:    []string{},
		Divergences: []models.Divergence{},
	}

	var hot, cold []latest
	for sym, cm := range closeMetrics {
		if len(cm) == 0 {
			continue
		}
		c := cm[len(cm)-1]

		out.Split.Total++
		switch {
		case c.PeriodsSince <= th.HotDays:
			out.Split.Hot++
			hot = append(hot, latest{sym, c.PeriodsSince})
		case c.PeriodsSince >= th.ColdDays:
			out.Split.Cold++
			cold = append(cold, latest{sym, c.PeriodsSince})
		default:
			out.Split.Neutral++
		}

		im := intradayMetrics[sym]
		if len(im) == 0 {
			continue
		}
		if im[len(im)-1].PeriodsSince == 0 {
			if c.PeriodsSince == 0 {
				out.Confirmed = append(out.Confirmed, sym)
			} else {
				out.Rejected = append(out.Rejected, sym)
			}
		}
	}
	sort.Strings(out.Confirmed)
	sort.Strings(out.Rejected)

	out.Regime = classify(out.Split, th)
	out.Divergences = divergences(hot, cold, th.MaxDivergences)
	return out
}

func classify(s models.BreadthSplit, th models.Thresholds) models.Regime {
	r := models.Regime{Label: models.RegimeNarrowMixed, Confidence: models.ConfidenceLow}
	if s.Total == 0 {
		return r
	}
	r.HotRatio = float64(s.Hot) / float64(s.Total)
	r.ColdRatio = float64(s.Cold) / float64(s.Total)

	switch {
	case r.HotRatio >= th.RegimeRatio:
		r.Label = models.RegimeRiskOn
		if r.HotRatio >= th.HighConfidenceRatio {
			r.Confidence = models.ConfidenceHigh
		}
	case r.ColdRatio >= th.RegimeRatio:
		r.Label = models.RegimeRiskOff
		if r.ColdRatio >= th.HighConfidenceRatio {
			r.Confidence = models.ConfidenceHigh
		}
	default:
		// neither side is close to the cutoff
		if max(r.HotRatio, r.ColdRatio) < 1-th.RegimeRatio {
			r.Confidence = models.ConfidenceHigh
		}
	}
	return r
}

func divergences(hot, cold []latest, limit int) []models.Divergence {
	out := make([]models.Divergence, 0, len(hot)*len(cold))
	for _, l := range hot {
		for _, g := range cold {
			out = append(out, models.Divergence{
				Leader:         l.symbol,
				Laggard:        g.symbol,
				LeaderPeriods:  l.periods,
				LaggardPeriods: g.periods,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		gi := out[i].LaggardPeriods - out[i].LeaderPeriods
		gj := out[j].LaggardPeriods - out[j].LeaderPeriods
		if gi != gj {
			return gi > gj
		}
		if out[i].Leader != out[j].Leader {
			return out[i].Leader < out[j].Leader
		}
		return out[i].Laggard < out[j].Laggard
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
