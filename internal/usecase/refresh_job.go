package usecase

import (
	"context"
	"fmt"
	"time"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
	"HeatDash/pkg/cache"
	"HeatDash/pkg/logger"
	"HeatDash/pkg/queue"
)

const RefreshMessageType = "universe.refresh"

// RefreshPayload asks for a universe's signals to be recomputed and published.
type RefreshPayload struct {
	Universe string `json:"universe"`
	Days     int    `json:"days"`
	Lookback int    `json:"lookback"`
	// Force drops cached bar histories of the universe before recomputing.
	Force bool `json:"force,omitempty"`
}

// BarInvalidator drops cached histories of a symbol.
type BarInvalidator interface {
	Invalidate(ctx context.Context, symbol string) error
}

var _ queue.Job = (*RefreshJob)(nil)

// RefreshJob recomputes signals for one universe and publishes the summary.
// A lock keeps concurrent workers from refreshing the same universe twice.
type RefreshJob struct {
	dash     *DashboardUseCase
	pub      domrepo.SummaryPublisher
	locks    cache.Service
	lockTTL  time.Duration
	defaults RefreshPayload
	bars     BarInvalidator
	log      *logger.Logger
}

type RefreshOption func(*RefreshJob)

// WithBarInvalidator lets forced refreshes bypass the bar cache.
func WithBarInvalidator(inv BarInvalidator) RefreshOption {
	return func(j *RefreshJob) { j.bars = inv }
}

func NewRefreshJob(dash *DashboardUseCase, pub domrepo.SummaryPublisher, locks cache.Service, lockTTL time.Duration, defaults RefreshPayload, log *logger.Logger, opts ...RefreshOption) *RefreshJob {
	if log == nil {
		log = logger.Nop()
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	j := &RefreshJob{dash: dash, pub: pub, locks: locks, lockTTL: lockTTL, defaults: defaults, log: log}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *RefreshJob) Name() string { return "RefreshJob" }
func (j *RefreshJob) Type() string { return RefreshMessageType }

func (j *RefreshJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RefreshPayload](payload)
	if err != nil {
		return err
	}
	_, err = j.Run(ctx, *p)
	return err
}

// Run refreshes one universe. It returns nil, nil when another worker holds the lock.
func (j *RefreshJob) Run(ctx context.Context, p RefreshPayload) (*models.SignalSummary, error) {
	if p.Universe == "" {
		return nil, fmt.Errorf("refresh: %w", models.ErrUnknownUniverse)
	}
	if p.Lookback <= 0 {
		p.Lookback = j.defaults.Lookback
	}
	p.Days = models.HistoryDays(p.Days, j.defaults.Days, p.Lookback)

	if j.locks != nil {
		key := cache.GenerateKeyWithParams("lock", "refresh", p.Universe)
		ok, err := j.locks.TryLock(ctx, key, j.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("refresh lock: %w", err)
		}
		if !ok {
			j.log.Debug("refresh already running", logger.String("universe", p.Universe))
			return nil, nil
		}
		defer func() { _ = j.locks.Unlock(context.WithoutCancel(ctx), key) }()
	}

	if p.Force && j.bars != nil {
		if err := j.invalidate(ctx, p.Universe); err != nil {
			return nil, err
		}
	}

	sum, err := j.dash.Signals(ctx, SignalsParams{Universe: p.Universe, Days: p.Days, Lookback: p.Lookback})
	if err != nil {
		return nil, err
	}
	if err := j.pub.PublishSummary(ctx, sum); err != nil {
		return sum, err
	}
	j.log.Info("universe refreshed",
		logger.String("universe", p.Universe),
		logger.String("regime", string(sum.Regime.Label)),
		logger.Int("total", sum.Split.Total),
	)
	return sum, nil
}

func (j *RefreshJob) invalidate(ctx context.Context, name string) error {
	syms, err := j.dash.universes.Resolve(ctx, name)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", name, err)
	}
	for _, sym := range syms {
		if err := j.bars.Invalidate(ctx, sym); err != nil {
			j.log.Warn("bar cache invalidation failed", logger.String("symbol", sym), logger.Error(err))
		}
	}
	j.log.Debug("bar cache invalidated",
		logger.String("universe", name),
		logger.Int("symbols", len(syms)),
	)
	return nil
}
