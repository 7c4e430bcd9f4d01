package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeatDash/internal/domain/models"
	internalrepo "HeatDash/internal/repository"
	"HeatDash/internal/service/universe"
	pkgcache "HeatDash/pkg/cache"
	"HeatDash/pkg/config"
	applogger "HeatDash/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
environment: test
provider:
  type: alpaca
  alpaca: {api_key: k, api_secret: s}
universes:
  mega: [aapl, msft]
engine:
  thresholds:
    hot_days: 3
    regime_ratio: 0.7
`))
	require.NoError(t, err)
	return cfg
}

func TestProvideThresholds_FillsUnsetFromDefaults(t *testing.T) {
	th := ProvideThresholds(testConfig(t))
	d := models.DefaultThresholds()

	assert.Equal(t, 3, th.HotDays)
	assert.Equal(t, 0.7, th.RegimeRatio)
	assert.Equal(t, d.ColdDays, th.ColdDays)
	assert.Equal(t, d.AlignCoverage, th.AlignCoverage)
}

func TestProvideUniverses(t *testing.T) {
	cfg := testConfig(t)

	r := ProvideUniverses(cfg, applogger.Nop())
	_, ok := r.(*universe.Static)
	require.True(t, ok)
	syms, err := r.Resolve(context.Background(), "mega")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, syms)

	cfg.UniverseURL = "http://universes.local"
	_, ok = ProvideUniverses(cfg, applogger.Nop()).(*universe.Remote)
	assert.True(t, ok)
}

func TestDisabledInfrastructureIsNil(t *testing.T) {
	cfg := testConfig(t)

	p, cleanup, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, p)
	cleanup()

	ch, cleanup, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)
	cleanup()

	rc, cleanup, err := ProvideRedisCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, rc)
	cleanup()

	store, err := ProvideBarStore(cfg, nil, applogger.Nop())
	require.NoError(t, err)
	assert.Nil(t, store)

	assert.Nil(t, ProvideQueue(cfg, nil, nil, applogger.Nop()))
	_, isNop := ProvideSummaryPublisher(cfg, nil).(internalrepo.NopSummaryPublisher)
	assert.True(t, isNop)
}

func TestProvideBarSource(t *testing.T) {
	cfg := testConfig(t)
	c, cleanup := ProvideCache(cfg, nil)
	defer cleanup()
	_, isMem := c.(*pkgcache.MemoryCache)
	assert.True(t, isMem)

	src, err := ProvideBarSource(cfg, nil, c, applogger.Nop())
	require.NoError(t, err)
	_, cached := src.(*internalrepo.CachedSource)
	assert.True(t, cached)

	cfg.Provider.Type = config.ProviderClickHouse
	_, err = ProvideBarSource(cfg, nil, c, applogger.Nop())
	assert.Error(t, err)
}

func TestRequestDefaults_FollowConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fetch.Days = 500
	cfg.Engine.Lookback = 120
	cfg.Engine.TopN = 9
	cfg.Engine.WindowDays = 0

	d := RequestDefaults(cfg)
	assert.Equal(t, 500, d.Days)
	assert.Equal(t, 120, d.Lookback)
	assert.Equal(t, 9, d.TopN)
	assert.Equal(t, models.DefaultRequestDefaults().WindowDays, d.WindowDays)
}
