package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
	"HeatDash/pkg/logger"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BulkFetcher pulls histories for many symbols in sequential batches, retrying each
// symbol independently. Partial failure is reported, never returned as an error.
type BulkFetcher struct {
	source      domrepo.BarSource
	provider    string
	metrics     domrepo.Metrics
	log         *logger.Logger
	sleep       Sleeper
	batchSize   int
	maxAttempts int
	baseBackoff time.Duration
	batchDelay  time.Duration
}

type FetcherOption func(*BulkFetcher)

func WithBatchSize(n int) FetcherOption {
	return func(f *BulkFetcher) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

func WithMaxAttempts(n int) FetcherOption {
	return func(f *BulkFetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithBackoff sets the unit for retry waits.
func WithBackoff(base time.Duration) FetcherOption {
	return func(f *BulkFetcher) {
		if base >= 0 {
			f.baseBackoff = base
		}
	}
}

func WithBatchDelay(d time.Duration) FetcherOption {
	return func(f *BulkFetcher) {
		if d >= 0 {
			f.batchDelay = d
		}
	}
}

func WithSleeper(s Sleeper) FetcherOption {
	return func(f *BulkFetcher) {
		if s != nil {
			f.sleep = s
		}
	}
}

func WithFetchMetrics(m domrepo.Metrics) FetcherOption {
	return func(f *BulkFetcher) { f.metrics = m }
}

// WithProvider labels metrics and logs.
func WithProvider(name string) FetcherOption {
	return func(f *BulkFetcher) { f.provider = name }
}

func NewBulkFetcher(source domrepo.BarSource, log *logger.Logger, opts ...FetcherOption) *BulkFetcher {
	f := &BulkFetcher{
		source:      source,
		provider:    "default",
		log:         log,
		sleep:       SleepContext,
		batchSize:   5,
		maxAttempts: 3,
		baseBackoff: time.Second,
		batchDelay:  250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	return f
}

type symbolOutcome struct {
	bars        models.BarSequence
	err         error
	rateLimited bool
}

// FetchBulk returns whatever histories could be fetched. Succeeded and Failed keep
// input order; a repeated symbol is fetched once.
func (f *BulkFetcher) FetchBulk(ctx context.Context, symbols []string, days int) (*models.FetchResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("fetch bulk: %w", models.ErrEmptyUniverse)
	}
	if days <= 0 {
		return nil, fmt.Errorf("fetch bulk: %w", models.ErrInvalidDays)
	}
	start := time.Now()

	unique := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}

	outcomes := make([]symbolOutcome, len(unique))
	done := 0
	for b := 0; b < len(unique); b += f.batchSize {
		if b > 0 {
			if err := f.sleep(ctx, f.batchDelay); err != nil {
				break
			}
		}
		end := min(b+f.batchSize, len(unique))

		var wg sync.WaitGroup
		for i := b; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = f.fetchOne(ctx, unique[i], days)
			}(i)
		}
		wg.Wait()
		done = end
	}

	res := &models.FetchResult{
		PerSymbol: make(map[string]models.BarSequence, len(unique)),
		Succeeded: make([]string, 0, len(unique)),
		Failed:    []string{},
	}
	for i, sym := range unique {
		o := outcomes[i]
		if o.rateLimited {
			res.RateLimited = true
		}
		if i >= done {
			res.Failed = append(res.Failed, sym)
			continue
		}
		if o.err != nil {
			res.Failed = append(res.Failed, sym)
			continue
		}
		res.PerSymbol[sym] = o.bars
		res.Succeeded = append(res.Succeeded, sym)
	}

	if f.metrics != nil {
		f.metrics.RecordLatency("fetch_bulk", time.Since(start).Seconds())
	}
	fields := []logger.Field{
		logger.String("provider", f.provider),
		logger.Int("requested", len(unique)),
		logger.Int("succeeded", len(res.Succeeded)),
		logger.Duration("took", time.Since(start)),
		logger.Bool("rate_limited", res.RateLimited),
	}
	if len(res.Failed) > 0 {
		f.log.Warn("bulk fetch partial", append(fields, logger.Strings("failed", res.Failed))...)
	} else {
		f.log.Debug("bulk fetch complete", fields...)
	}
	return res, nil
}

// fetchOne runs the retry loop for one symbol:
// attempt -> success | retryable failure (wait, attempt again) | exhausted.
func (f *BulkFetcher) fetchOne(ctx context.Context, symbol string, days int) symbolOutcome {
	var out symbolOutcome
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if f.metrics != nil {
			f.metrics.RecordFetchAttempt(f.provider, symbol)
		}
		bars, err := f.source.Fetch(ctx, symbol, days)
		if err == nil {
			out.bars, out.err = bars, nil
			return out
		}
		out.err = err

		limited := IsRateLimited(err)
		if limited {
			out.rateLimited = true
		}
		if f.metrics != nil {
			if limited {
				f.metrics.RecordRateLimited(f.provider)
				f.metrics.RecordFetchFailure(f.provider, "rate_limited")
			} else {
				f.metrics.RecordFetchFailure(f.provider, "error")
			}
		}
		if attempt == f.maxAttempts {
			break
		}

		wait := f.baseBackoff * time.Duration(attempt)
		if limited {
			wait = f.baseBackoff * time.Duration(1<<(attempt-1))
		}
		f.log.Debug("fetch retry",
			logger.String("symbol", symbol),
			logger.Int("attempt", attempt),
			logger.Bool("rate_limited", limited),
			logger.Duration("wait", wait),
			logger.Error(err),
		)
		if serr := f.sleep(ctx, wait); serr != nil {
			out.err = fmt.Errorf("fetch %s: %w", symbol, serr)
			return out
		}
	}
	f.log.Warn("fetch exhausted",
		logger.String("symbol", symbol),
		logger.Int("attempts", f.maxAttempts),
		logger.Error(out.err),
	)
	return out
}

// IsRateLimited reports whether err signals upstream throttling.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, models.ErrRateLimited) || strings.Contains(err.Error(), "429")
}
