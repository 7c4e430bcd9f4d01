package usecase

import (
	"context"
	"fmt"
	"time"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
	"HeatDash/internal/services/alignment"
	"HeatDash/internal/services/extremes"
	"HeatDash/internal/services/signals"
	"HeatDash/pkg/logger"
)

// DashboardUseCase turns a named universe into heatmap and signal views.
type DashboardUseCase struct {
	universes domrepo.UniverseResolver
	fetcher   *BulkFetcher
	th        models.Thresholds
	metrics   domrepo.Metrics
	log       *logger.Logger
	timeout   time.Duration
}

type DashboardOption func(*DashboardUseCase)

func WithDashboardMetrics(m domrepo.Metrics) DashboardOption {
	return func(uc *DashboardUseCase) { uc.metrics = m }
}

// WithTimeout bounds a whole fetch-and-compute request.
func WithTimeout(d time.Duration) DashboardOption {
	return func(uc *DashboardUseCase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

func NewDashboardUseCase(universes domrepo.UniverseResolver, fetcher *BulkFetcher, th models.Thresholds, log *logger.Logger, opts ...DashboardOption) *DashboardUseCase {
	if log == nil {
		log = logger.Nop()
	}
	uc := &DashboardUseCase{
		universes: universes,
		fetcher:   fetcher,
		th:        th.WithDefaults(),
		log:       log,
		timeout:   2 * time.Minute,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type HeatmapParams struct {
	Universe string
	Days     int
	Lookback int
	Basis    models.Basis
}

type SignalsParams struct {
	Universe string
	Days     int
	Lookback int
}

// loaded is a fetched and aligned universe.
type loaded struct {
	aligned models.AlignedUniverse
	fetch   *models.FetchResult
}

func (uc *DashboardUseCase) load(ctx context.Context, universe string, days int) (*loaded, error) {
	symbols, err := uc.universes.Resolve(ctx, universe)
	if err != nil {
		return nil, err
	}
	res, err := uc.fetcher.FetchBulk(ctx, symbols, days)
	if err != nil {
		return nil, err
	}
	if len(res.Succeeded) == 0 {
		if res.RateLimited {
			return nil, fmt.Errorf("universe %s: %w", universe, models.ErrRateLimited)
		}
		return nil, fmt.Errorf("universe %s: %w", universe, models.ErrNoData)
	}
	aligned := alignment.AlignWithCoverage(res.PerSymbol, uc.th.AlignCoverage)
	if uc.metrics != nil {
		uc.metrics.RecordUniverseSize(universe, len(aligned.Symbols))
	}
	if len(aligned.Dropped) > 0 {
		uc.log.Info("symbols dropped by coverage gate",
			logger.String("universe", universe),
			logger.Strings("dropped", aligned.Dropped),
		)
	}
	return &loaded{aligned: aligned, fetch: res}, nil
}

// Heatmap computes rolling high/low readings for every retained symbol on the
// shared axis. Metrics run over each symbol's own sessions; gaps stay nil.
func (uc *DashboardUseCase) Heatmap(ctx context.Context, p HeatmapParams) (*models.Heatmap, error) {
	if p.Lookback <= 0 {
		return nil, models.ErrInvalidLookback
	}
	if !models.IsValidBasis(p.Basis) {
		return nil, models.ErrInvalidBasis
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	start := time.Now()

	ld, err := uc.load(ctx, p.Universe, p.Days)
	if err != nil {
		return nil, err
	}
	u := ld.aligned
	hm := &models.Heatmap{
		Universe:    p.Universe,
		Basis:       p.Basis,
		Lookback:    p.Lookback,
		Dates:       u.Dates,
		Rows:        make([]models.HeatmapRow, 0, len(u.Symbols)),
		Failed:      ld.fetch.Failed,
		Dropped:     u.Dropped,
		RateLimited: ld.fetch.RateLimited,
	}
	for _, sym := range u.Symbols {
		bars, idx := alignment.Compact(u, sym)
		hl, err := extremes.ComputeHighLow(bars, p.Lookback, p.Basis)
		if err != nil {
			return nil, fmt.Errorf("heatmap %s: %w", sym, err)
		}
		row := models.HeatmapRow{Symbol: sym, Cells: make([]*models.HeatmapCell, u.Len())}
		for k, m := range hl {
			row.Cells[idx[k]] = &models.HeatmapCell{Close: bars[k].Close, High: m.High, Low: m.Low}
		}
		hm.Rows = append(hm.Rows, row)
	}
	uc.observe("heatmap", start)
	return hm, nil
}

// Signals summarizes the latest bar of every retained symbol.
func (uc *DashboardUseCase) Signals(ctx context.Context, p SignalsParams) (*models.SignalSummary, error) {
	if p.Lookback <= 0 {
		return nil, models.ErrInvalidLookback
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	start := time.Now()

	ld, err := uc.load(ctx, p.Universe, p.Days)
	if err != nil {
		return nil, err
	}
	u := ld.aligned
	closeM := make(map[string][]models.RollingMetric, len(u.Symbols))
	intraM := make(map[string][]models.RollingMetric, len(u.Symbols))
	for _, sym := range u.Symbols {
		bars, _ := alignment.Compact(u, sym)
		if closeM[sym], err = extremes.Compute(bars, p.Lookback, models.BasisClose, models.SideHigh); err != nil {
			return nil, err
		}
		if intraM[sym], err = extremes.Compute(bars, p.Lookback, models.BasisIntraday, models.SideHigh); err != nil {
			return nil, err
		}
	}

	sum := signals.Summarize(closeM, intraM, uc.th)
	sum.Universe = p.Universe
	if n := u.Len(); n > 0 {
		sum.AsOf = u.Dates[n-1]
	}
	uc.log.Debug("signals computed",
		logger.String("universe", p.Universe),
		logger.String("regime", string(sum.Regime.Label)),
		logger.Int("confirmed", len(sum.Confirmed)),
		logger.Int("rejected", len(sum.Rejected)),
	)
	uc.observe("signals", start)
	return &sum, nil
}

// Universes lists the resolvable basket names.
func (uc *DashboardUseCase) Universes() []string { return uc.universes.Names() }

func (uc *DashboardUseCase) observe(op string, start time.Time) {
	if uc.metrics != nil {
		uc.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}
