package repository

import (
	"context"
	"errors"
	"time"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
	"HeatDash/pkg/cache"
	applogger "HeatDash/pkg/logger"
)

// CachedSource memoizes bar histories under bars:SYMBOL:DAYS.
// Cache failures degrade to a direct fetch.
type CachedSource struct {
	next  domrepo.BarSource
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedSource(next domrepo.BarSource, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedSource{next: next, cache: c, ttl: ttl, l: l}
}

func BarsKey(symbol string, days int) string {
	return cache.GenerateKeyWithParams("bars", symbol, days)
}

func (s *CachedSource) Fetch(ctx context.Context, symbol string, days int) (models.BarSequence, error) {
	key := BarsKey(symbol, days)
	var bars models.BarSequence
	err := s.cache.Get(ctx, key, &bars)
	switch {
	case err == nil:
		return bars, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.l.Warn("bar cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	bars, err = s.next.Fetch(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		if err := s.cache.Set(ctx, key, bars, s.ttl); err != nil {
			s.l.Warn("bar cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return bars, nil
}

// Invalidate drops every cached history of symbol.
func (s *CachedSource) Invalidate(ctx context.Context, symbol string) error {
	return s.cache.DeleteByPattern(ctx, cache.BuildPattern(cache.GenerateKeyWithParams("bars", symbol) + ":"))
}
