package repository

import (
	"context"
	"errors"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
	"HeatDash/pkg/breaker"
)

// GuardedSource routes fetches through a circuit breaker so a failing
// provider is shed quickly instead of burning every retry.
type GuardedSource struct {
	next domrepo.BarSource
	cb   *breaker.Breaker
}

func NewGuardedSource(next domrepo.BarSource, cb *breaker.Breaker) *GuardedSource {
	return &GuardedSource{next: next, cb: cb}
}

// CountsAgainstProvider reports whether err should trip the breaker.
// Caller cancellations and empty histories are not the provider's fault.
func CountsAgainstProvider(err error) bool {
	return err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, models.ErrNoData)
}

func (s *GuardedSource) Fetch(ctx context.Context, symbol string, days int) (models.BarSequence, error) {
	v, err := s.cb.Execute(func() (any, error) {
		return s.next.Fetch(ctx, symbol, days)
	})
	if err != nil {
		return nil, err
	}
	bars, _ := v.(models.BarSequence)
	return bars, nil
}
