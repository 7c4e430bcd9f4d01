package usecase

import (
	"context"
	"fmt"
	"time"

	"HeatDash/internal/domain/models"
	"HeatDash/internal/services/breadth"
	"HeatDash/pkg/logger"
)

type BreadthParams struct {
	Universe   string
	Days       int
	Lookback   int
	WindowDays int
	TopN       int
}

// Breadth runs the new-high/new-low aggregation for a universe and
// summarizes its peaks.
func (uc *DashboardUseCase) Breadth(ctx context.Context, p BreadthParams) (*models.BreadthReport, error) {
	switch {
	case p.Lookback <= 0:
		return nil, models.ErrInvalidLookback
	case p.WindowDays <= 0:
		return nil, models.ErrInvalidWindow
	case p.TopN <= 0:
		return nil, models.ErrInvalidTopN
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	start := time.Now()

	ld, err := uc.load(ctx, p.Universe, p.Days)
	if err != nil {
		return nil, err
	}
	series, err := breadth.Compute(ld.aligned, p.Lookback, uc.th.BreadthCoverage)
	if err != nil {
		return nil, fmt.Errorf("breadth %s: %w", p.Universe, err)
	}
	rep, err := breadth.Summarize(series, p.WindowDays, p.TopN)
	if err != nil {
		return nil, err
	}
	rep.Universe = p.Universe
	rep.Lookback = p.Lookback
	rep.Failed = ld.fetch.Failed
	rep.Dropped = ld.aligned.Dropped

	if n := len(series); n > 0 {
		last := series[n-1]
		if uc.metrics != nil {
			uc.metrics.RecordBreadth(p.Universe, last.PctAtLow, last.PctAtHigh)
		}
		uc.log.Debug("breadth computed",
			logger.String("universe", p.Universe),
			logger.Int("entries", n),
			logger.Float64("pct_at_low", last.PctAtLow),
			logger.Float64("pct_at_high", last.PctAtHigh),
		)
	}
	uc.observe("breadth", start)
	return &rep, nil
}
