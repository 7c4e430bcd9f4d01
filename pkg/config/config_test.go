package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
provider:
  type: alpaca
  alpaca:
    api_key: k
    api_secret: s
universes:
  mega: [AAPL, MSFT]
`

func TestParse_AppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 5, c.Fetch.BatchSize)
	assert.Equal(t, 3, c.Fetch.MaxAttempts)
	assert.Equal(t, time.Second, c.Fetch.BaseBackoff)
	assert.Equal(t, 252, c.Engine.Lookback)
	assert.Equal(t, 100, c.Engine.BreadthLookback)
	assert.Equal(t, "iex", c.Provider.Alpaca.Feed)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Universes["mega"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing environment", "provider: {type: alpaca, alpaca: {api_key: k, api_secret: s}}\nuniverses: {a: [X]}"},
		{"unknown provider", "environment: t\nprovider: {type: yahoo}\nuniverses: {a: [X]}"},
		{"alpaca without keys", "environment: t\nuniverses: {a: [X]}"},
		{"clickhouse provider disabled", "environment: t\nprovider: {type: clickhouse}\nuniverses: {a: [X]}"},
		{"no universes", "environment: t\nprovider: {type: alpaca, alpaca: {api_key: k, api_secret: s}}"},
		{"empty universe", "environment: t\nprovider: {type: alpaca, alpaca: {api_key: k, api_secret: s}}\nuniverses: {a: []}"},
		{"hot above cold", minimal + "engine: {thresholds: {hot_days: 20, cold_days: 10}}"},
		{"queue without redis", minimal + "queue: {enabled: true}"},
		{"unknown refresh universe", minimal + "refresh: {universes: [nope]}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal+"clickhouse: {enabled: true}\n"), 0o600))

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("PROVIDER", "clickhouse")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", c.Provider.Alpaca.APIKey)
	assert.Equal(t, ProviderClickHouse, c.Provider.Type)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestUniverseNamesSorted(t *testing.T) {
	c := &Config{Universes: map[string][]string{"semis": {"A"}, "mega": {"B"}}}
	assert.Equal(t, []string{"mega", "semis"}, c.UniverseNames())
}
