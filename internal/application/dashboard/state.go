package dashboard

import (
	"context"
	"strconv"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/estudiomd/backoffice/internal/domain/task"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SnapshotCache stores encoded snapshots. Get reports a miss with found=false.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// TaskStatsReader counts tasks, scoped to an assignee when one is given
type TaskStatsReader interface {
	Stats(ctx context.Context, assignee *uuid.UUID, now time.Time) (task.Stats, error)
}

// RefreshMetrics records aggregation runs
type RefreshMetrics interface {
	RecordDashboardRefresh(ctx context.Context, year int, took time.Duration, failedClients int)
}

// Viewer is the user looking at the dashboard
type Viewer struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Response is the dashboard payload: the cached fiscal-year snapshot plus
// live task counts for the viewer
type Response struct {
	Year int `json:"year"`
	*Snapshot
	TaskStats task.Stats `json:"task_stats"`
}

// StateOption configures a State
type StateOption func(*State)

// WithTaskStats adds task counts to dashboard responses
func WithTaskStats(tasks TaskStatsReader) StateOption {
	return func(s *State) { s.tasks = tasks }
}

// WithRefreshMetrics records every aggregation run
func WithRefreshMetrics(m RefreshMetrics) StateOption {
	return func(s *State) { s.metrics = m }
}

// State owns the latest dashboard snapshot of each fiscal year. Snapshots are
// read through the cache and recomputed on a miss or an explicit refresh.
// Events that change totals invalidate the affected year, client events
// invalidate every year.
type State struct {
	aggregator *Aggregator
	cache      SnapshotCache
	ttl        time.Duration
	tasks      TaskStatsReader
	metrics    RefreshMetrics
	flight     singleflight.Group
	logger     *zap.Logger
	now        func() time.Time
}

// NewState creates the dashboard state
func NewState(aggregator *Aggregator, cache SnapshotCache, ttl time.Duration, logger *zap.Logger, opts ...StateOption) *State {
	s := &State{
		aggregator: aggregator,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func snapshotKey(year int) string {
	return "dashboard:snapshot:" + strconv.Itoa(year)
}

// Current returns the cached snapshot of year, computing it on a miss
func (s *State) Current(ctx context.Context, year int) (*Snapshot, error) {
	var snap Snapshot
	found, err := s.cache.Get(ctx, snapshotKey(year), &snap)
	if err != nil {
		s.logger.Warn("Dashboard cache read failed", zap.Int("year", year), zap.Error(err))
	}
	if found {
		return &snap, nil
	}
	return s.Refresh(ctx, year)
}

// Refresh recomputes the snapshot of year and replaces the cached one.
// Concurrent refreshes of the same year share one aggregation run.
func (s *State) Refresh(ctx context.Context, year int) (*Snapshot, error) {
	v, err, _ := s.flight.Do(snapshotKey(year), func() (any, error) {
		started := s.now()
		snap, err := s.aggregator.Snapshot(ctx, Query{Years: []int{year}, Now: started})
		if err != nil {
			return nil, err
		}
		took := s.now().Sub(started)
		if s.metrics != nil {
			s.metrics.RecordDashboardRefresh(ctx, year, took, len(snap.FailedClients))
		}
		if err := s.cache.Set(ctx, snapshotKey(year), snap, s.ttl); err != nil {
			s.logger.Warn("Dashboard cache write failed", zap.Int("year", year), zap.Error(err))
		}
		s.logger.Debug("Dashboard refreshed",
			zap.Int("year", year),
			zap.Int("clients", snap.Stats.TotalClients),
			zap.Int("failed_clients", len(snap.FailedClients)),
			zap.Duration("took", took))
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the cached snapshot of year
func (s *State) Invalidate(ctx context.Context, year int) error {
	return s.cache.Delete(ctx, snapshotKey(year))
}

// View assembles the dashboard for viewer. Workers get counts of their own tasks.
func (s *State) View(ctx context.Context, year int, viewer Viewer, refresh bool) (*Response, error) {
	var (
		snap *Snapshot
		err  error
	)
	if refresh {
		snap, err = s.Refresh(ctx, year)
	} else {
		snap, err = s.Current(ctx, year)
	}
	if err != nil {
		return nil, err
	}

	resp := &Response{Year: year, Snapshot: snap}
	if s.tasks != nil {
		var assignee *uuid.UUID
		if !viewer.IsAdmin {
			assignee = &viewer.UserID
		}
		if resp.TaskStats, err = s.tasks.Stats(ctx, assignee, s.now()); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Handle invalidates the year touched by a finance or operational event.
// Client events can change every year, so they drop all snapshots.
func (s *State) Handle(ctx context.Context, event shared.DomainEvent) error {
	if year, ok := finance.YearOf(event); ok {
		return s.Invalidate(ctx, year)
	}
	if year, ok := operational.YearOf(event); ok {
		return s.Invalidate(ctx, year)
	}
	switch event.EventType() {
	case client.EventTypeClientCreated, client.EventTypeClientUpdated, client.EventTypeClientDeleted:
		return s.InvalidateAll(ctx)
	}
	return nil
}

// InvalidateAll drops the cached snapshot of every fiscal year. Keys are
// derived from the year range rather than tracked, since other instances
// may have filled a shared cache.
func (s *State) InvalidateAll(ctx context.Context) error {
	keys := make([]string, 0, valueobject.MaxFiscalYear-valueobject.MinFiscalYear+1)
	for year := valueobject.MinFiscalYear; year <= valueobject.MaxFiscalYear; year++ {
		keys = append(keys, snapshotKey(year))
	}
	return s.cache.Delete(ctx, keys...)
}

func (s *State) EventTypes() []string {
	return []string{
		client.EventTypeClientCreated,
		client.EventTypeClientUpdated,
		client.EventTypeClientDeleted,
		finance.EventTypeFinanceOpened,
		finance.EventTypePaymentRecorded,
		finance.EventTypeFeesUpdated,
		operational.EventTypeControlOpened,
		operational.EventTypeTaxDeclarationFiled,
		operational.EventTypeTaxDeclarationRemoved,
	}
}

var _ shared.EventHandler = (*State)(nil)
