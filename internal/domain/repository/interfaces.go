package repository

import (
	"context"

	"HeatDash/internal/domain/models"
)

// BarSource returns daily bars for a symbol in ascending date order.
// Errors wrapping models.ErrRateLimited (or mentioning 429) mark upstream throttling.
type BarSource interface {
	Fetch(ctx context.Context, symbol string, days int) (models.BarSequence, error)
}

// BarSourceFunc adapts a function to BarSource.
type BarSourceFunc func(ctx context.Context, symbol string, days int) (models.BarSequence, error)

func (f BarSourceFunc) Fetch(ctx context.Context, symbol string, days int) (models.BarSequence, error) {
	return f(ctx, symbol, days)
}

type BarStore interface {
	BarSource
	Init(ctx context.Context) error // ensure tables
	SaveBars(ctx context.Context, symbol string, bars models.BarSequence) error
	LoadBars(ctx context.Context, symbol string, days int) (models.BarSequence, error)
	Health(ctx context.Context) error
	Close() error
}

// UniverseResolver maps a basket name to its ordered symbol list.
type UniverseResolver interface {
	Resolve(ctx context.Context, name string) ([]string, error)
	Names() []string
}

type SummaryPublisher interface {
	PublishSummary(ctx context.Context, s *models.SignalSummary) error
	Close() error
}

type Metrics interface {
	RecordFetchAttempt(provider, symbol string)
	RecordFetchFailure(provider, reason string)
	RecordRateLimited(provider string)
	RecordLatency(op string, seconds float64)
	RecordUniverseSize(universe string, size int)
	RecordBreadth(universe string, pctAtLow, pctAtHigh float64)
}
