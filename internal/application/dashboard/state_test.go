package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/task"
	"github.com/estudiomd/backoffice/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockTaskStats struct {
	mock.Mock
}

func (m *MockTaskStats) Stats(ctx context.Context, assignee *uuid.UUID, now time.Time) (task.Stats, error) {
	args := m.Called(ctx, assignee, now)
	return args.Get(0).(task.Stats), args.Error(1)
}

type refreshRecorder struct {
	years  []int
	failed []int
}

func (r *refreshRecorder) RecordDashboardRefresh(_ context.Context, year int, _ time.Duration, failedClients int) {
	r.years = append(r.years, year)
	r.failed = append(r.failed, failedClients)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("redis unavailable")
}
func (brokenCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("redis unavailable")
}
func (brokenCache) Delete(context.Context, ...string) error { return nil }

func newTestState(t *testing.T, fx *aggFixture, c SnapshotCache, opts ...StateOption) *State {
	t.Helper()
	s := NewState(fx.aggregator(DefaultAggregatorConfig(), nil), c, time.Minute, zap.NewNop(), opts...)
	s.now = func() time.Time { return testNow }
	return s
}

func TestState_CurrentReadsThrough(t *testing.T) {
	ctx := context.Background()
	c := ref("Bodega Rosa")
	fx := newAggFixture(c)
	fx.finances.records[c.ID] = financeWithBalances(t, c.ID, 2024, decimal.NewFromInt(250), nil)
	metrics := &refreshRecorder{}
	s := newTestState(t, fx, cache.NewMemoryCache(time.Minute), WithRefreshMetrics(metrics))

	first, err := s.Current(ctx, 2024)
	require.NoError(t, err)
	second, err := s.Current(ctx, 2024)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fx.clients.calls.Load())
	assert.Equal(t, first.Stats.TotalRevenue.Decimal().String(), second.Stats.TotalRevenue.Decimal().String())
	assert.Equal(t, "250", second.Stats.TotalRevenue.Decimal().String())
	assert.Equal(t, []int{2024}, metrics.years)
}

func TestState_RefreshBypassesCache(t *testing.T) {
	ctx := context.Background()
	fx := newAggFixture(ref("Bodega Rosa"))
	s := newTestState(t, fx, cache.NewMemoryCache(time.Minute))

	_, err := s.Current(ctx, 2024)
	require.NoError(t, err)
	_, err = s.Refresh(ctx, 2024)
	require.NoError(t, err)

	assert.Equal(t, int32(2), fx.clients.calls.Load())
}

func TestState_InvalidatedByEvents(t *testing.T) {
	ctx := context.Background()
	c := ref("Bodega Rosa")
	fx := newAggFixture(c)
	f := financeWithBalances(t, c.ID, 2024, decimal.Zero, nil)
	fx.finances.records[c.ID] = f
	s := newTestState(t, fx, cache.NewMemoryCache(time.Minute))

	aggregations := func(t *testing.T) int32 {
		t.Helper()
		_, err := s.Current(ctx, 2024)
		require.NoError(t, err)
		return fx.clients.calls.Load()
	}
	require.Equal(t, int32(1), aggregations(t))

	// an event for another year leaves 2024 cached
	require.NoError(t, s.Handle(ctx, finance.NewFeesUpdatedEvent(&finance.ClientFinance{ClientID: c.ID, Year: 2023})))
	assert.Equal(t, int32(1), aggregations(t))

	control, err := operational.NewOperationalControl(c.ID, 2024)
	require.NoError(t, err)
	d := control.Declarations[0]
	td := &operational.TaxDeclaration{BaseEntity: shared.NewBaseEntity(), PDTType: operational.PDT601}
	customer, err := client.NewClient(client.Details{Name: "Bodega Rosa", Email: "rosa@bodega.pe"})
	require.NoError(t, err)
	tx := finance.PaymentTransaction{ID: uuid.New(), Amount: decimal.NewFromInt(10)}

	events := []shared.DomainEvent{
		finance.NewFinanceOpenedEvent(f),
		finance.NewFeesUpdatedEvent(f),
		finance.NewPaymentRecordedEvent(f, f.Payments[0], tx),
		operational.NewControlOpenedEvent(control),
		operational.NewTaxDeclarationFiledEvent(control, d, td),
		operational.NewTaxDeclarationRemovedEvent(control, d, td),
		client.NewClientCreatedEvent(customer),
		client.NewClientUpdatedEvent(customer),
		client.NewClientDeletedEvent(customer),
	}
	for i, ev := range events {
		require.NoError(t, s.Handle(ctx, ev))
		assert.Equal(t, int32(i+2), aggregations(t), ev.EventType())
	}
}

func TestState_ClientEventsDropEveryYear(t *testing.T) {
	ctx := context.Background()
	fx := newAggFixture(ref("Bodega Rosa"))
	s := newTestState(t, fx, cache.NewMemoryCache(time.Minute))

	for _, year := range []int{2023, 2024} {
		_, err := s.Current(ctx, year)
		require.NoError(t, err)
	}
	require.Equal(t, int32(2), fx.clients.calls.Load())

	customer, err := client.NewClient(client.Details{Name: "Ferreteria Sol", Email: "ventas@sol.pe"})
	require.NoError(t, err)
	require.NoError(t, s.Handle(ctx, client.NewClientDeletedEvent(customer)))

	for _, year := range []int{2023, 2024} {
		_, err := s.Current(ctx, year)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(4), fx.clients.calls.Load())
}

func TestState_IgnoresUnrelatedEvents(t *testing.T) {
	s := newTestState(t, newAggFixture(), cache.NewMemoryCache(time.Minute))
	ev := shared.NewBaseDomainEvent("task.created", "Task", uuid.New())

	assert.NoError(t, s.Handle(context.Background(), &ev))
	assert.ElementsMatch(t, []string{
		client.EventTypeClientCreated,
		client.EventTypeClientUpdated,
		client.EventTypeClientDeleted,
		finance.EventTypeFinanceOpened,
		finance.EventTypePaymentRecorded,
		finance.EventTypeFeesUpdated,
		operational.EventTypeControlOpened,
		operational.EventTypeTaxDeclarationFiled,
		operational.EventTypeTaxDeclarationRemoved,
	}, s.EventTypes())
}

func TestState_CacheFailureStillServes(t *testing.T) {
	c := ref("Bodega Rosa")
	fx := newAggFixture(c)
	fx.finances.records[c.ID] = financeWithBalances(t, c.ID, 2024, decimal.NewFromInt(75), nil)
	s := newTestState(t, fx, brokenCache{})

	snap, err := s.Current(context.Background(), 2024)

	require.NoError(t, err)
	assert.Equal(t, "75", snap.Stats.TotalRevenue.Decimal().String())
}

func TestState_View(t *testing.T) {
	ctx := context.Background()

	t.Run("worker sees own task stats", func(t *testing.T) {
		tasks := new(MockTaskStats)
		s := newTestState(t, newAggFixture(), cache.NewMemoryCache(time.Minute), WithTaskStats(tasks))
		worker := uuid.New()
		tasks.On("Stats", ctx, &worker, testNow).Return(task.Stats{Total: 3, Pending: 2, Completed: 1}, nil)

		resp, err := s.View(ctx, 2024, Viewer{UserID: worker}, false)

		require.NoError(t, err)
		assert.Equal(t, 2024, resp.Year)
		assert.Equal(t, int64(3), resp.TaskStats.Total)
		tasks.AssertExpectations(t)
	})

	t.Run("admin sees every task", func(t *testing.T) {
		tasks := new(MockTaskStats)
		s := newTestState(t, newAggFixture(), cache.NewMemoryCache(time.Minute), WithTaskStats(tasks))
		tasks.On("Stats", ctx, (*uuid.UUID)(nil), testNow).Return(task.Stats{Total: 9}, nil)

		resp, err := s.View(ctx, 2024, Viewer{UserID: uuid.New(), IsAdmin: true}, true)

		require.NoError(t, err)
		assert.Equal(t, int64(9), resp.TaskStats.Total)
	})

	t.Run("aggregation failure", func(t *testing.T) {
		fx := newAggFixture()
		fx.clients.err = errors.New("db down")
		s := newTestState(t, fx, cache.NewMemoryCache(time.Minute))

		_, err := s.View(ctx, 2024, Viewer{IsAdmin: true}, false)

		assert.Error(t, err)
	})
}
