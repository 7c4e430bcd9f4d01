package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
	pkgch "HeatDash/pkg/clickhouse"
	applogger "HeatDash/pkg/logger"
)

var _ domrepo.BarStore = (*CHBarStore)(nil)

// CHBarStore archives daily bars in ClickHouse and serves them back as a BarSource.
type CHBarStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

type CHBarStoreOption func(*CHBarStore)

func WithBarTable(table string) CHBarStoreOption {
	return func(s *CHBarStore) {
		if table != "" {
			s.table = table
		}
	}
}

func WithStoreClock(now func() time.Time) CHBarStoreOption {
	return func(s *CHBarStore) { s.now = now }
}

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger, opts ...CHBarStoreOption) *CHBarStore {
	if l == nil {
		l = applogger.Nop()
	}
	s := &CHBarStore{
		ch:    ch,
		db:    ch.DB(),
		table: ch.Database() + ".daily_bars",
		l:     l,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CHBarStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.ch.Database()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            date Date,
            symbol LowCardinality(String),
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            volume Float64,
            updated_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (symbol, date)`, s.table),
	})
}

// SaveBars upserts bars; ReplacingMergeTree collapses re-fetched days.
func (s *CHBarStore) SaveBars(ctx context.Context, symbol string, bars models.BarSequence) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (date, symbol, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, models.SessionDay(b.Date), symbol, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			_ = tx.Rollback()
			s.l.Error("clickhouse save_bars exec error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
			return fmt.Errorf("insert bar: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.l.Debug("clickhouse save_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// LoadBars returns the bars of the last days calendar days, oldest first.
func (s *CHBarStore) LoadBars(ctx context.Context, symbol string, days int) (models.BarSequence, error) {
	if days <= 0 {
		return nil, models.ErrInvalidDays
	}
	from := models.SessionDay(s.now()).AddDate(0, 0, -days)
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND date >= ?
        ORDER BY date ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, from)
	if err != nil {
		s.l.Error("clickhouse load_bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	out := make(models.BarSequence, 0, days)
	for rows.Next() {
		var b models.DailyBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = models.SessionDay(b.Date)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Fetch serves archived bars; an empty result counts as a failure.
func (s *CHBarStore) Fetch(ctx context.Context, symbol string, days int) (models.BarSequence, error) {
	bars, err := s.LoadBars(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrNoData)
	}
	return bars, nil
}

func (s *CHBarStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

func (s *CHBarStore) Close() error { return s.ch.Close() }
