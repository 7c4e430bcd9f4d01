package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
	"HeatDash/pkg/breaker"
	"HeatDash/pkg/cache"
)

type countingSource struct {
	calls int
	bars  models.BarSequence
	err   error
}

func (c *countingSource) Fetch(context.Context, string, int) (models.BarSequence, error) {
	c.calls++
	return c.bars, c.err
}

type memStore struct {
	domrepo.BarStore
	saved   map[string]models.BarSequence
	saveErr error
}

func (m *memStore) SaveBars(_ context.Context, symbol string, bars models.BarSequence) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[symbol] = bars
	return nil
}

func sampleBars() models.BarSequence {
	return models.BarSequence{
		{Date: day(0), Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{Date: day(1), Open: 1.5, High: 2.5, Low: 1, Close: 2},
	}
}

func TestCachedSource_ServesRepeatsFromCache(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	up := &countingSource{bars: sampleBars()}
	src := NewCachedSource(up, mc, time.Hour, nil)

	first, err := src.Fetch(ctx, "AAPL", 30)
	require.NoError(t, err)
	second, err := src.Fetch(ctx, "AAPL", 30)
	require.NoError(t, err)

	assert.Equal(t, 1, up.calls)
	require.Len(t, second, len(first))
	assert.Equal(t, first[1].Close, second[1].Close)
	assert.True(t, first[1].Date.Equal(second[1].Date))

	_, _ = src.Fetch(ctx, "AAPL", 60)
	assert.Equal(t, 2, up.calls)

	require.NoError(t, src.Invalidate(ctx, "AAPL"))
	_, _ = src.Fetch(ctx, "AAPL", 30)
	assert.Equal(t, 3, up.calls)
}

func TestCachedSource_DoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	up := &countingSource{err: models.ErrRateLimited}
	src := NewCachedSource(up, mc, time.Hour, nil)

	_, err := src.Fetch(ctx, "AAPL", 30)
	assert.ErrorIs(t, err, models.ErrRateLimited)
	_, _ = src.Fetch(ctx, "AAPL", 30)
	assert.Equal(t, 2, up.calls)
	assert.Equal(t, "bars:AAPL:30", BarsKey("AAPL", 30))
}

func TestArchivingSource(t *testing.T) {
	ctx := context.Background()
	store := &memStore{saved: map[string]models.BarSequence{}}
	src := NewArchivingSource(&countingSource{bars: sampleBars()}, store, nil)

	bars, err := src.Fetch(ctx, "NVDA", 10)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, sampleBars(), store.saved["NVDA"])

	store.saveErr = errors.New("clickhouse down")
	bars, err = src.Fetch(ctx, "AMD", 10)
	assert.NoError(t, err)
	assert.Len(t, bars, 2)

	_, err = NewArchivingSource(&countingSource{err: models.ErrNoData}, store, nil).Fetch(ctx, "X", 1)
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestGuardedSource_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	up := &countingSource{err: fmt.Errorf("status 500")}
	cb := breaker.New(breaker.Config{
		Name:                "alpaca",
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Hour,
		IsSuccessful:        func(err error) bool { return !CountsAgainstProvider(err) },
	})
	src := NewGuardedSource(up, cb)

	for i := 0; i < 2; i++ {
		_, err := src.Fetch(ctx, "AAPL", 5)
		assert.Error(t, err)
	}
	_, err := src.Fetch(ctx, "AAPL", 5)
	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, 2, up.calls)
}

func TestGuardedSource_PassesBarsThrough(t *testing.T) {
	src := NewGuardedSource(&countingSource{bars: sampleBars()}, breaker.New(breaker.Config{Name: "t"}))
	bars, err := src.Fetch(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	assert.Equal(t, sampleBars(), bars)

	assert.False(t, CountsAgainstProvider(nil))
	assert.False(t, CountsAgainstProvider(fmt.Errorf("x: %w", models.ErrNoData)))
	assert.False(t, CountsAgainstProvider(context.Canceled))
	assert.True(t, CountsAgainstProvider(models.ErrRateLimited))
}

type recordingProducer struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (r *recordingProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	r.topic, r.key, r.value = topic, key, value
	return r.err
}

func (r *recordingProducer) Close() error { return nil }

func TestKafkaSummaryPublisher(t *testing.T) {
	p := &recordingProducer{}
	pub := NewKafkaSummaryPublisher(p, "")
	s := &models.SignalSummary{Universe: "mega"}

	require.NoError(t, pub.PublishSummary(context.Background(), s))
	assert.Equal(t, "heatdash.signals", p.topic)
	assert.Equal(t, []byte("mega"), p.key)
	assert.Same(t, s, p.value)

	assert.NoError(t, pub.PublishSummary(context.Background(), nil))

	p.err = errors.New("broker gone")
	assert.ErrorIs(t, pub.PublishSummary(context.Background(), s), p.err)
	assert.NoError(t, NopSummaryPublisher{}.PublishSummary(context.Background(), s))
}
