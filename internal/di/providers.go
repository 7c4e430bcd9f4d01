package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
	"HeatDash/internal/handler/api"
	internalrepo "HeatDash/internal/repository"
	"HeatDash/internal/service/alpaca"
	svccache "HeatDash/internal/service/cache"
	"HeatDash/internal/service/ratelimit"
	"HeatDash/internal/service/universe"
	"HeatDash/internal/usecase"
	"HeatDash/pkg/breaker"
	pkgcache "HeatDash/pkg/cache"
	pkgch "HeatDash/pkg/clickhouse"
	"HeatDash/pkg/config"
	xhttp "HeatDash/pkg/http"
	pkgkafka "HeatDash/pkg/kafka"
	applogger "HeatDash/pkg/logger"
	"HeatDash/pkg/metrics"
	"HeatDash/pkg/queue"
	"HeatDash/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the app logger. Error logs are aggregated to Kafka when the collector is on.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l = l.With(applogger.String("env", cfg.Environment))
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects to ClickHouse, or returns nil when it is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideBarStore prepares the daily_bars table. Nil when ClickHouse is disabled.
func ProvideBarStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (*internalrepo.CHBarStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHBarStore(ch, l, internalrepo.WithBarTable(cfg.ClickHouse.BarTable))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse bar store ready", applogger.String("database", ch.Database()))
	return store, nil
}

// ProvideRedisCache dials Redis, or returns nil when it is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideCache layers an in-process LRU over Redis, or uses memory alone.
func ProvideCache(cfg *config.Config, rc *pkgcache.RedisCache) (pkgcache.Service, func()) {
	var c pkgcache.Service
	if rc != nil {
		c = pkgcache.NewLayeredCache(rc,
			pkgcache.WithLayeredMemorySize(cfg.Cache.MemorySize),
			pkgcache.WithLayeredMemoryTTL(cfg.Cache.BarsTTL),
		)
	} else {
		c = pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MemorySize))
	}
	return c, func() { _ = c.Close() }
}

// ProvideBarSource composes the upstream chain: provider, breaker, archive, cache.
func ProvideBarSource(
	cfg *config.Config,
	store *internalrepo.CHBarStore,
	c pkgcache.Service,
	l *applogger.Logger,
) (domrepo.BarSource, error) {
	var src domrepo.BarSource
	switch cfg.Provider.Type {
	case config.ProviderClickHouse:
		if store == nil {
			return nil, fmt.Errorf("provider clickhouse requires a bar store")
		}
		src = store
	default:
		a := cfg.Provider.Alpaca
		src = alpaca.New(alpaca.Config{
			APIKey:    a.APIKey,
			APISecret: a.APISecret,
			BaseURL:   a.BaseURL,
			Feed:      a.Feed,
			RPS:       a.RPS,
			Timeout:   a.Timeout,
		})
		if b := cfg.Provider.Breaker; b.Enabled {
			src = internalrepo.NewGuardedSource(src, breaker.New(breaker.Config{
				Name:                cfg.Provider.Type,
				ConsecutiveFailures: b.ConsecutiveFailures,
				OpenTimeout:         b.OpenTimeout,
				IsSuccessful:        func(err error) bool { return !internalrepo.CountsAgainstProvider(err) },
				OnStateChange: func(name, from, to string) {
					l.Warn("provider breaker state changed",
						applogger.String("provider", name),
						applogger.String("from", from),
						applogger.String("to", to))
				},
			}))
		}
		if cfg.Provider.Archive && store != nil {
			src = internalrepo.NewArchivingSource(src, store, l)
		}
	}
	return internalrepo.NewCachedSource(src, c, cfg.Cache.BarsTTL, l), nil
}

func ProvideBulkFetcher(cfg *config.Config, src domrepo.BarSource, m domrepo.Metrics, l *applogger.Logger) *usecase.BulkFetcher {
	return usecase.NewBulkFetcher(src, l,
		usecase.WithBatchSize(cfg.Fetch.BatchSize),
		usecase.WithMaxAttempts(cfg.Fetch.MaxAttempts),
		usecase.WithBackoff(cfg.Fetch.BaseBackoff),
		usecase.WithBatchDelay(cfg.Fetch.BatchDelay),
		usecase.WithFetchMetrics(m),
		usecase.WithProvider(cfg.Provider.Type),
	)
}

// ProvideUniverses serves configured baskets, consulting the remote service first when set.
func ProvideUniverses(cfg *config.Config, l *applogger.Logger) domrepo.UniverseResolver {
	static := universe.NewStatic(cfg.Universes)
	if cfg.UniverseURL == "" {
		return static
	}
	return universe.NewRemote(cfg.UniverseURL, static, l)
}

func ProvideThresholds(cfg *config.Config) models.Thresholds {
	t := cfg.Engine.Thresholds
	return models.Thresholds{
		AlignCoverage:       t.AlignCoverage,
		BreadthCoverage:     t.BreadthCoverage,
		HotDays:             t.HotDays,
		ColdDays:            t.ColdDays,
		RegimeRatio:         t.RegimeRatio,
		HighConfidenceRatio: t.HighConfidenceRatio,
		MaxDivergences:      t.MaxDivergences,
	}.WithDefaults()
}

func ProvideDashboard(
	cfg *config.Config,
	universes domrepo.UniverseResolver,
	fetcher *usecase.BulkFetcher,
	th models.Thresholds,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.DashboardUseCase {
	return usecase.NewDashboardUseCase(universes, fetcher, th, l,
		usecase.WithDashboardMetrics(m),
		usecase.WithTimeout(cfg.Server.RequestTimeout),
	)
}

// ProvideSummaryPublisher emits refreshed summaries to Kafka when a producer exists.
func ProvideSummaryPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.SummaryPublisher {
	if producer == nil {
		return internalrepo.NopSummaryPublisher{}
	}
	return internalrepo.NewKafkaSummaryPublisher(producer, cfg.Kafka.SummaryTopic)
}

func ProvideRefreshJob(
	cfg *config.Config,
	dash *usecase.DashboardUseCase,
	pub domrepo.SummaryPublisher,
	c pkgcache.Service,
	src domrepo.BarSource,
	l *applogger.Logger,
) *usecase.RefreshJob {
	var opts []usecase.RefreshOption
	if inv, ok := src.(usecase.BarInvalidator); ok {
		opts = append(opts, usecase.WithBarInvalidator(inv))
	}
	d := RequestDefaults(cfg)
	return usecase.NewRefreshJob(dash, pub, c, cfg.Refresh.LockTTL, usecase.RefreshPayload{
		Days:     d.Days,
		Lookback: d.Lookback,
	}, l, opts...)
}

// RequestDefaults maps the configured history and engine settings onto omitted request fields.
func RequestDefaults(cfg *config.Config) models.RequestDefaults {
	return models.RequestDefaults{
		Days:            cfg.Fetch.Days,
		Lookback:        cfg.Engine.Lookback,
		BreadthDays:     cfg.Engine.BreadthDays,
		BreadthLookback: cfg.Engine.BreadthLookback,
		WindowDays:      cfg.Engine.WindowDays,
		TopN:            cfg.Engine.TopN,
	}.WithDefaults()
}

// ProvideQueue runs refresh jobs on Redis workers. Nil when the queue is disabled.
func ProvideQueue(cfg *config.Config, rc *pkgcache.RedisCache, job *usecase.RefreshJob, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		MaxDelay:   10 * cfg.Queue.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix(cfg.Queue.Prefix))
	q.RegisterJob(job)
	return q
}

// ProvideResponseCache stores rendered API payloads in Redis, or in process.
func ProvideResponseCache(cfg *config.Config, rc *pkgcache.RedisCache) (svccache.BytesCache, func()) {
	if rc != nil {
		return svccache.NewRedisCache(rc.Client(), cfg.Redis.Prefix+":resp"), func() {}
	}
	ttl := svccache.NewTTLCache(time.Minute)
	return ttl, func() { _ = ttl.Close() }
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	rl := cfg.Server.RateLimit
	lim := ratelimit.New(rl.RPS, rl.Burst, ratelimit.WithIdleTTL(rl.IdleTTL))
	lim.StartJanitor(time.Minute)
	return lim
}

func ProvideHandler(
	cfg *config.Config,
	l *applogger.Logger,
	dash *usecase.DashboardUseCase,
	job *usecase.RefreshJob,
	q *queue.RedisQueue,
	respCache svccache.BytesCache,
	lim *ratelimit.Limiter,
	ch *pkgch.Client,
	rc *pkgcache.RedisCache,
) *api.DashboardHandler {
	opts := []api.Option{
		api.WithLimiter(lim),
		api.WithResponseCache(respCache, cfg.Cache.ResponseTTL),
		api.WithDefaults(RequestDefaults(cfg)),
	}
	var qs queue.QueueService
	if q != nil {
		qs = q
	}
	opts = append(opts, api.WithRefresh(qs, job))
	if ch != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", ch.Health))
	}
	if rc != nil {
		opts = append(opts, api.WithHealthCheck("redis", func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		}))
	}
	return api.NewDashboardHandler(l, dash, opts...)
}

func ProvideHTTPServer(cfg *config.Config, h *api.DashboardHandler, l *applogger.Logger) *xhttp.Server {
	path := cfg.Metrics.Path
	if !cfg.Metrics.Enabled {
		path = ""
	}
	return xhttp.NewServer(h, l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(path),
	)
}

// ProvideApp assembles the server with the queue consumer and the periodic refresher.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	q *queue.RedisQueue,
	job *usecase.RefreshJob,
	lim *ratelimit.Limiter,
) *server.App {
	opts := []server.AppOption{
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithCloser("rate limiter", func() error {
			lim.Close()
			return nil
		}),
	}
	if q != nil {
		opts = append(opts, server.WithWorker(q))
	}
	if cfg.Refresh.Enabled && len(cfg.Refresh.Universes) > 0 {
		opts = append(opts, server.WithPeriodic("refresh", cfg.Refresh.Interval, refreshTask(cfg.Refresh.Universes, q, job)))
	}
	return server.New(l, srv, opts...)
}

// refreshTask enqueues one forced refresh per universe, or runs them inline without a queue.
func refreshTask(universes []string, q *queue.RedisQueue, job *usecase.RefreshJob) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var firstErr error
		for _, u := range universes {
			p := usecase.RefreshPayload{Universe: u, Force: true}
			var err error
			if q != nil {
				err = q.Enqueue(ctx, usecase.RefreshMessageType, p)
			} else {
				_, err = job.Run(ctx, p)
			}
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("refresh %s: %w", u, err)
			}
		}
		return firstErr
	}
}
