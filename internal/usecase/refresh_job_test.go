package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeatDash/internal/domain/models"
	"HeatDash/pkg/cache"
)

type capturePublisher struct {
	got []*models.SignalSummary
	err error
}

func (c *capturePublisher) PublishSummary(_ context.Context, s *models.SignalSummary) error {
	c.got = append(c.got, s)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }

func newRefreshJob(t *testing.T, pub *capturePublisher, locks cache.Service) *RefreshJob {
	dash := newDashboard(t, fixtureSource(), nil)
	return NewRefreshJob(dash, pub, locks, time.Minute, RefreshPayload{Days: 60, Lookback: 20}, nil)
}

func TestRefreshJob_HandlePublishes(t *testing.T) {
	pub := &capturePublisher{}
	locks := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	job := newRefreshJob(t, pub, locks)

	assert.Equal(t, RefreshMessageType, job.Type())
	// payload as decoded from the Redis envelope
	require.NoError(t, job.Handle(context.Background(), map[string]interface{}{"universe": "mega"}))

	require.Len(t, pub.got, 1)
	assert.Equal(t, "mega", pub.got[0].Universe)
	assert.Equal(t, models.RegimeRiskOff, pub.got[0].Regime.Label)

	ok, _ := locks.TryLock(context.Background(), "lock:refresh:mega", time.Minute)
	assert.True(t, ok, "lock released after run")
}

func TestRefreshJob_SkipsWhenLocked(t *testing.T) {
	pub := &capturePublisher{}
	locks := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	job := newRefreshJob(t, pub, locks)

	held, err := locks.TryLock(context.Background(), "lock:refresh:mega", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	sum, err := job.Run(context.Background(), RefreshPayload{Universe: "mega"})
	assert.NoError(t, err)
	assert.Nil(t, sum)
	assert.Empty(t, pub.got)
}

func TestRefreshJob_Errors(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	job := newRefreshJob(t, pub, nil)

	sum, err := job.Run(context.Background(), RefreshPayload{Universe: "mega"})
	assert.ErrorIs(t, err, pub.err)
	assert.NotNil(t, sum)

	_, err = job.Run(context.Background(), RefreshPayload{})
	assert.ErrorIs(t, err, models.ErrUnknownUniverse)

	assert.Error(t, job.Handle(context.Background(), 42))
}

type invalidations struct{ symbols []string }

func (i *invalidations) Invalidate(_ context.Context, symbol string) error {
	i.symbols = append(i.symbols, symbol)
	if symbol == "GAP" {
		return errors.New("redis down")
	}
	return nil
}

func TestRefreshJob_ForceInvalidatesCachedBars(t *testing.T) {
	pub := &capturePublisher{}
	inv := &invalidations{}
	dash := newDashboard(t, fixtureSource(), nil)
	job := NewRefreshJob(dash, pub, nil, time.Minute, RefreshPayload{Days: 60, Lookback: 20}, nil, WithBarInvalidator(inv))

	_, err := job.Run(context.Background(), RefreshPayload{Universe: "mega"})
	require.NoError(t, err)
	assert.Empty(t, inv.symbols)

	_, err = job.Run(context.Background(), RefreshPayload{Universe: "mega", Force: true})
	require.NoError(t, err, "invalidation failures do not fail the refresh")
	assert.Equal(t, []string{"AAA", "BBB", "CCC", "GAP", "FAIL"}, inv.symbols)
	assert.Len(t, pub.got, 2)

	_, err = job.Run(context.Background(), RefreshPayload{Universe: "nope", Force: true})
	assert.ErrorIs(t, err, models.ErrUnknownUniverse)
}
