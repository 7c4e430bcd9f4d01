package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Log         LogConfig      `yaml:"log"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Provider    ProviderConfig `yaml:"provider"`
	Fetch       FetchConfig    `yaml:"fetch"`
	Engine      EngineConfig   `yaml:"engine"`
	// Universes maps a basket name to its ordered symbol list.
	Universes   map[string][]string `yaml:"universes"`
	UniverseURL string              `yaml:"universe_url"`
	Cache       CacheConfig         `yaml:"cache"`
	Redis       RedisConfig         `yaml:"redis"`
	ClickHouse  ClickHouseConfig    `yaml:"clickhouse"`
	Kafka       KafkaConfig         `yaml:"kafka"`
	Queue       QueueConfig         `yaml:"queue"`
	Refresh     RefreshConfig       `yaml:"refresh"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RateLimit       struct {
		RPS     float64       `yaml:"rps"`
		Burst   int           `yaml:"burst"`
		IdleTTL time.Duration `yaml:"idle_ttl"`
	} `yaml:"rate_limit"`
}

type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	Collector struct {
		Enabled   bool          `yaml:"enabled"`
		Interval  time.Duration `yaml:"interval"`
		Threshold int           `yaml:"threshold"`
	} `yaml:"collector"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ProviderConfig struct {
	// Type is alpaca (live upstream) or clickhouse (archived bars only).
	Type   string `yaml:"type"`
	Alpaca struct {
		APIKey    string        `yaml:"api_key"`
		APISecret string        `yaml:"api_secret"`
		BaseURL   string        `yaml:"base_url"`
		Feed      string        `yaml:"feed"`
		RPS       float64       `yaml:"rps"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"alpaca"`
	Breaker struct {
		Enabled             bool          `yaml:"enabled"`
		ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
		OpenTimeout         time.Duration `yaml:"open_timeout"`
	} `yaml:"breaker"`
	// Archive copies every upstream fetch into ClickHouse.
	Archive bool `yaml:"archive"`
}

type FetchConfig struct {
	BatchSize   int           `yaml:"batch_size"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	BatchDelay  time.Duration `yaml:"batch_delay"`
	Days        int           `yaml:"days"`
}

type EngineConfig struct {
	Lookback        int              `yaml:"lookback"`
	BreadthDays     int              `yaml:"breadth_days"`
	BreadthLookback int              `yaml:"breadth_lookback"`
	WindowDays      int              `yaml:"window_days"`
	TopN            int              `yaml:"top_n"`
	Thresholds      ThresholdsConfig `yaml:"thresholds"`
}

type ThresholdsConfig struct {
	AlignCoverage       float64 `yaml:"align_coverage"`
	BreadthCoverage     float64 `yaml:"breadth_coverage"`
	HotDays             int     `yaml:"hot_days"`
	ColdDays            int     `yaml:"cold_days"`
	RegimeRatio         float64 `yaml:"regime_ratio"`
	HighConfidenceRatio float64 `yaml:"high_confidence_ratio"`
	MaxDivergences      int     `yaml:"max_divergences"`
}

type CacheConfig struct {
	BarsTTL     time.Duration `yaml:"bars_ttl"`
	ResponseTTL time.Duration `yaml:"response_ttl"`
	MemorySize  int           `yaml:"memory_size"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	// BarTable overrides the fully qualified daily bars table.
	BarTable         string        `yaml:"bar_table"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	SummaryTopic string   `yaml:"summary_topic"`
	LogTopic     string   `yaml:"log_topic"`
	RequiredAcks int      `yaml:"required_acks"`
	Compression  string   `yaml:"compression"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts"`
		Linger       time.Duration `yaml:"linger"`
		BatchBytes   int           `yaml:"batch_bytes"`
		BatchSize    int           `yaml:"batch_size"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
}

type QueueConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Workers    int           `yaml:"workers"`
	RetryLimit int           `yaml:"retry_limit"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Prefix     string        `yaml:"prefix"`
}

type RefreshConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval"`
	Universes []string      `yaml:"universes"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
}

const (
	ProviderAlpaca     = "alpaca"
	ProviderClickHouse = "clickhouse"
)

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present) and config YAML, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Provider.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		c.Provider.Alpaca.APISecret = v
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider.Type = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 45 * time.Second
	}
	if c.Server.RateLimit.RPS == 0 {
		c.Server.RateLimit.RPS = 2
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Provider.Type == "" {
		c.Provider.Type = ProviderAlpaca
	}
	if c.Provider.Alpaca.Feed == "" {
		c.Provider.Alpaca.Feed = "iex"
	}
	if c.Provider.Alpaca.RPS == 0 {
		c.Provider.Alpaca.RPS = 3
	}
	if c.Provider.Alpaca.Timeout == 0 {
		c.Provider.Alpaca.Timeout = 15 * time.Second
	}
	if c.Fetch.BatchSize == 0 {
		c.Fetch.BatchSize = 5
	}
	if c.Fetch.MaxAttempts == 0 {
		c.Fetch.MaxAttempts = 3
	}
	if c.Fetch.BaseBackoff == 0 {
		c.Fetch.BaseBackoff = time.Second
	}
	if c.Fetch.BatchDelay == 0 {
		c.Fetch.BatchDelay = 250 * time.Millisecond
	}
	if c.Fetch.Days == 0 {
		c.Fetch.Days = 365
	}
	if c.Engine.Lookback == 0 {
		c.Engine.Lookback = 252
	}
	if c.Engine.BreadthDays == 0 {
		c.Engine.BreadthDays = 730
	}
	if c.Engine.BreadthLookback == 0 {
		c.Engine.BreadthLookback = 100
	}
	if c.Engine.WindowDays == 0 {
		c.Engine.WindowDays = 20
	}
	if c.Engine.TopN == 0 {
		c.Engine.TopN = 5
	}
	if c.Cache.BarsTTL == 0 {
		c.Cache.BarsTTL = 15 * time.Minute
	}
	if c.Cache.ResponseTTL == 0 {
		c.Cache.ResponseTTL = time.Minute
	}
	if c.Cache.MemorySize == 0 {
		c.Cache.MemorySize = 2000
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "heatdash"
	}
	if c.Kafka.SummaryTopic == "" {
		c.Kafka.SummaryTopic = "heatdash.signals"
	}
	if c.Kafka.LogTopic == "" {
		c.Kafka.LogTopic = "heatdash.logs"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.RetryDelay == 0 {
		c.Queue.RetryDelay = 30 * time.Second
	}
	if c.Queue.Prefix == "" {
		c.Queue.Prefix = "heatdash:queue"
	}
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = 15 * time.Minute
	}
	if c.Refresh.LockTTL == 0 {
		c.Refresh.LockTTL = 5 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Provider.Type {
	case ProviderAlpaca:
		if c.Provider.Alpaca.APIKey == "" || c.Provider.Alpaca.APISecret == "" {
			return fmt.Errorf("provider.alpaca api_key and api_secret are required")
		}
	case ProviderClickHouse:
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("provider.type clickhouse requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("provider.type must be '%s' or '%s', got '%s'", ProviderAlpaca, ProviderClickHouse, c.Provider.Type)
	}
	if c.Provider.Archive && !c.ClickHouse.Enabled {
		return fmt.Errorf("provider.archive requires clickhouse.enabled")
	}
	if len(c.Universes) == 0 && c.UniverseURL == "" {
		return fmt.Errorf("universes cannot be empty")
	}
	for name, syms := range c.Universes {
		if len(syms) == 0 {
			return fmt.Errorf("universe %q has no symbols", name)
		}
	}
	if c.Engine.Lookback <= 0 || c.Engine.BreadthLookback <= 0 {
		return fmt.Errorf("engine lookbacks must be positive")
	}
	if c.Engine.WindowDays <= 0 || c.Engine.TopN <= 0 {
		return fmt.Errorf("engine.window_days and engine.top_n must be positive")
	}
	if t := c.Engine.Thresholds; t.HotDays > 0 && t.ColdDays > 0 && t.HotDays >= t.ColdDays {
		return fmt.Errorf("engine.thresholds.hot_days must be below cold_days")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue requires redis.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	for _, u := range c.Refresh.Universes {
		if _, ok := c.Universes[u]; !ok && c.UniverseURL == "" {
			return fmt.Errorf("refresh universe %q is not configured", u)
		}
	}
	return nil
}

// UniverseNames returns configured basket names in sorted order.
func (c *Config) UniverseNames() []string {
	names := make([]string, 0, len(c.Universes))
	for n := range c.Universes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
