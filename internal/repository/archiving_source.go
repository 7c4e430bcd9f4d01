package repository

import (
	"context"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
	applogger "HeatDash/pkg/logger"
)

// ArchivingSource copies every successful upstream fetch into a store.
// Archive errors are logged and never fail the fetch.
type ArchivingSource struct {
	next  domrepo.BarSource
	store domrepo.BarStore
	l     *applogger.Logger
}

func NewArchivingSource(next domrepo.BarSource, store domrepo.BarStore, l *applogger.Logger) *ArchivingSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &ArchivingSource{next: next, store: store, l: l}
}

func (s *ArchivingSource) Fetch(ctx context.Context, symbol string, days int) (models.BarSequence, error) {
	bars, err := s.next.Fetch(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveBars(ctx, symbol, bars); err != nil {
		s.l.Warn("archive bars failed",
			applogger.String("symbol", symbol),
			applogger.Int("bars", len(bars)),
			applogger.Error(err),
		)
	}
	return bars, nil
}
