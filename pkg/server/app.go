package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	xhttp "HeatDash/pkg/http"
	applogger "HeatDash/pkg/logger"
)

// Worker is a background component started before the HTTP server and
// stopped after it, such as the Redis queue consumer.
type Worker interface {
	Start() error
	Stop(ctx context.Context) error
}

type periodicTask struct {
	name  string
	every time.Duration
	fn    func(ctx context.Context) error
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	log             *applogger.Logger
	http            *xhttp.Server
	workers         []Worker
	tasks           []periodicTask
	closers         []closer
	shutdownTimeout time.Duration
	signals         []os.Signal
	wg              sync.WaitGroup
}

type AppOption func(*App)

func WithWorker(w Worker) AppOption {
	return func(a *App) {
		if w != nil {
			a.workers = append(a.workers, w)
		}
	}
}

// WithPeriodic runs fn once at startup and then every interval until shutdown.
func WithPeriodic(name string, every time.Duration, fn func(ctx context.Context) error) AppOption {
	return func(a *App) {
		if every > 0 && fn != nil {
			a.tasks = append(a.tasks, periodicTask{name: name, every: every, fn: fn})
		}
	}
}

// WithCloser registers a resource to release on shutdown. Closers run in reverse order.
func WithCloser(name string, fn func() error) AppOption {
	return func(a *App) {
		if fn != nil {
			a.closers = append(a.closers, closer{name: name, fn: fn})
		}
	}
}

func WithShutdownTimeout(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// WithSignals replaces the signals that trigger shutdown. No signals means
// only context cancellation or a listener failure stops Run.
func WithSignals(sigs ...os.Signal) AppOption {
	return func(a *App) { a.signals = sigs }
}

func New(l *applogger.Logger, srv *xhttp.Server, opts ...AppOption) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{
		log:             l,
		http:            srv,
		shutdownTimeout: 10 * time.Second,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts workers, periodic tasks and the HTTP server, then blocks until
// ctx is cancelled, a shutdown signal arrives or the listener fails.
func (a *App) Run(ctx context.Context) error {
	if len(a.signals) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, a.signals...)
		defer stop()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, w := range a.workers {
		if err := w.Start(); err != nil {
			a.stopWorkers(a.workers[:i])
			a.close()
			return fmt.Errorf("start worker: %w", err)
		}
	}

	for _, t := range a.tasks {
		a.wg.Add(1)
		go a.loop(runCtx, t)
	}

	var httpErrs <-chan error
	if a.http != nil {
		if err := a.http.Start(); err != nil {
			cancel()
			a.wg.Wait()
			a.stopWorkers(a.workers)
			a.close()
			return fmt.Errorf("start http: %w", err)
		}
		httpErrs = a.http.Errors()
	}
	a.log.Info("application started",
		applogger.Int("workers", len(a.workers)),
		applogger.Int("periodic_tasks", len(a.tasks)))

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-httpErrs:
		runErr = err
	}
	cancel()

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *App) loop(ctx context.Context, t periodicTask) {
	defer a.wg.Done()
	run := func() {
		start := time.Now()
		if err := t.fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("periodic task failed", applogger.String("task", t.name), applogger.Error(err))
			return
		}
		a.log.Debug("periodic task done", applogger.String("task", t.name), applogger.Duration("took", time.Since(start)))
	}

	run()
	ticker := time.NewTicker(t.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// shutdown stops the HTTP server first so no new work arrives, then workers, then closers.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var firstErr error
	if a.http != nil {
		if err := a.http.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			firstErr = err
		}
	}
	a.wg.Wait()
	a.stopWorkersCtx(ctx, a.workers)
	a.close()
	a.log.Info("application stopped")
	return firstErr
}

func (a *App) stopWorkers(ws []Worker) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	a.stopWorkersCtx(ctx, ws)
}

func (a *App) stopWorkersCtx(ctx context.Context, ws []Worker) {
	for i := len(ws) - 1; i >= 0; i-- {
		if err := ws[i].Stop(ctx); err != nil {
			a.log.Warn("worker stop error", applogger.Error(err))
		}
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}
}
