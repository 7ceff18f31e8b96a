package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/estudiomd/backoffice/internal/application/dashboard"
	"go.uber.org/zap"
)

// Refresher recomputes and caches the dashboard snapshot of a year
type Refresher interface {
	Refresh(ctx context.Context, year int) (*dashboard.Snapshot, error)
}

// WarmerConfig holds warmer configuration
type WarmerConfig struct {
	Interval      time.Duration
	RunTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultWarmerConfig returns default warmer configuration
func DefaultWarmerConfig() WarmerConfig {
	return WarmerConfig{
		Interval:      5 * time.Minute,
		RunTimeout:    2 * time.Minute,
		RetryAttempts: 2,
		RetryDelay:    5 * time.Second,
	}
}

// RunStatus describes the latest warmup
type RunStatus struct {
	Year          int
	StartedAt     time.Time
	Took          time.Duration
	FailedClients int
	Attempts      int
	Error         string
}

// Warmer keeps the current year's dashboard snapshot fresh so that page loads
// hit the cache. It runs once on Start and then every Interval.
type Warmer struct {
	config    WarmerConfig
	refresher Refresher
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	last      *RunStatus
}

// NewWarmer creates a warmer
func NewWarmer(config WarmerConfig, refresher Refresher, logger *zap.Logger) (*Warmer, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	def := DefaultWarmerConfig()
	if config.RunTimeout <= 0 {
		config.RunTimeout = def.RunTimeout
	}
	if config.RetryAttempts < 0 {
		config.RetryAttempts = 0
	}
	return &Warmer{
		config:    config,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start launches the background loop
func (w *Warmer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return nil
	}
	w.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("Dashboard warmer started", zap.Duration("interval", w.config.Interval))
	return nil
}

// Stop cancels the loop and waits for an in-flight run, bounded by ctx
func (w *Warmer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.cancel()
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Dashboard warmer stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Dashboard warmer stop timed out")
		return ctx.Err()
	}
}

// Last returns the status of the latest run, nil before the first one
func (w *Warmer) Last() *RunStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return nil
	}
	s := *w.last
	return &s
}

func (w *Warmer) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		_ = w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce refreshes the current year, retrying up to RetryAttempts times
func (w *Warmer) RunOnce(ctx context.Context) error {
	status := RunStatus{Year: w.now().Year(), StartedAt: w.now()}

	var err error
attempts:
	for {
		status.Attempts++
		var snap *dashboard.Snapshot
		snap, err = w.refresh(ctx, status.Year)
		if err == nil {
			status.FailedClients = len(snap.FailedClients)
			break
		}
		w.logger.Warn("Dashboard warmup attempt failed",
			zap.Int("year", status.Year),
			zap.Int("attempt", status.Attempts),
			zap.Error(err),
		)
		if status.Attempts > w.config.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break attempts
		case <-time.After(w.config.RetryDelay):
		}
	}
	status.Took = w.now().Sub(status.StartedAt)

	if err != nil {
		status.Error = err.Error()
		err = fmt.Errorf("%w: %w", ErrWarmupFailed, err)
	} else {
		w.logger.Debug("Dashboard snapshot warmed",
			zap.Int("year", status.Year),
			zap.Duration("took", status.Took),
			zap.Int("failed_clients", status.FailedClients),
		)
	}

	w.mu.Lock()
	w.last = &status
	w.mu.Unlock()
	return err
}

func (w *Warmer) refresh(ctx context.Context, year int) (*dashboard.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
	defer cancel()
	return w.refresher.Refresh(ctx, year)
}
