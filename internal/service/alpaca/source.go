package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/time/rate"

	"HeatDash/internal/domain/models"
	drepo "HeatDash/internal/domain/repository"
)

var _ drepo.BarSource = (*Source)(nil)

type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Feed      string
	RPS       float64
	Timeout   time.Duration
	// HTTPClient overrides the transport; its RoundTripper is still wrapped.
	HTTPClient *http.Client
	Clock      func() time.Time
}

// Source fetches daily bars from the Alpaca market data API.
type Source struct {
	md      *marketdata.Client
	limiter *rate.Limiter
	feed    string
	now     func() time.Time
}

func New(cfg Config) *Source {
	if cfg.RPS <= 0 {
		cfg.RPS = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}
	hc := &http.Client{Timeout: cfg.Timeout, Transport: rateLimitTransport{base: base}}

	md := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		BaseURL:    cfg.BaseURL,
		Feed:       marketdata.Feed(cfg.Feed),
		HTTPClient: hc,
	})
	return &Source{
		md:      md,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		feed:    cfg.Feed,
		now:     cfg.Clock,
	}
}

// Fetch returns split-adjusted daily bars covering the last days calendar days.
func (s *Source) Fetch(ctx context.Context, symbol string, days int) (models.BarSequence, error) {
	if days <= 0 {
		return nil, models.ErrInvalidDays
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	end := s.now().UTC()
	raw, err := s.md.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Split,
		Start:      models.SessionDay(end).AddDate(0, 0, -days),
		End:        end,
		Feed:       marketdata.Feed(s.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, models.ErrNoData)
	}
	return toBars(raw), nil
}

func toBars(raw []marketdata.Bar) models.BarSequence {
	out := make(models.BarSequence, 0, len(raw))
	for _, b := range raw {
		out = append(out, models.DailyBar{
			Date:   models.SessionDay(b.Timestamp),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	return out
}

// rateLimitTransport surfaces HTTP 429 as models.ErrRateLimited so the
// orchestrator can back off instead of the client retrying internally.
type rateLimitTransport struct{ base http.RoundTripper }

func (t rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		_ = resp.Body.Close()
		return nil, models.ErrRateLimited
	}
	return resp, nil
}
