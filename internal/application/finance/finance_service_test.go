package finance

import (
	"context"
	"testing"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockClientFinanceRepository is a mock implementation of ClientFinanceRepository.
// UpdateLocked runs fn on the aggregate configured for the call, or on the last
// saved one when the call returns nil without error.
type MockClientFinanceRepository struct {
	mock.Mock
	saved *finance.ClientFinance
}

func (m *MockClientFinanceRepository) FindByClientAndYear(ctx context.Context, clientID uuid.UUID, year int) (*finance.ClientFinance, error) {
	args := m.Called(ctx, clientID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ClientFinance), args.Error(1)
}

func (m *MockClientFinanceRepository) FindByPayment(ctx context.Context, clientID, paymentID uuid.UUID) (*finance.ClientFinance, error) {
	args := m.Called(ctx, clientID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ClientFinance), args.Error(1)
}

func (m *MockClientFinanceRepository) Save(ctx context.Context, f *finance.ClientFinance) error {
	err := m.Called(ctx, f).Error(0)
	if err == nil {
		m.saved = f
	}
	return err
}

func (m *MockClientFinanceRepository) UpdateLocked(ctx context.Context, financeID uuid.UUID, fn func(f *finance.ClientFinance) error) (*finance.ClientFinance, error) {
	args := m.Called(ctx, financeID)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	f := m.saved
	if args.Get(0) != nil {
		f = args.Get(0).(*finance.ClientFinance)
	}
	if err := fn(f); err != nil {
		return nil, err
	}
	return f, args.Error(1)
}

func (m *MockClientFinanceRepository) ListYears(ctx context.Context, clientID uuid.UUID) ([]int, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]int), args.Error(1)
}

type MockClientReader struct {
	mock.Mock
}

func (m *MockClientReader) FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

type stubYears []int

func (s stubYears) ListYears(ctx context.Context, clientID uuid.UUID) ([]int, error) {
	return s, nil
}

type stubUsers map[uuid.UUID]string

func (s stubUsers) NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return s, nil
}

type rejectedCounter struct{ codes []string }

func (r *rejectedCounter) RecordPaymentRejected(ctx context.Context, code string) {
	r.codes = append(r.codes, code)
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type financeFixture struct {
	repo    *MockClientFinanceRepository
	clients *MockClientReader
	pub     *recordingPublisher
	metrics *rejectedCounter
	client  *client.Client
	actor   Actor
	svc     *FinanceService
}

func newFinanceFixture(t *testing.T, opts ...FinanceServiceOption) *financeFixture {
	t.Helper()
	c, err := client.NewClient(client.Details{Name: "Ana Torres", Email: "ana@torres.pe"})
	require.NoError(t, err)
	c.PullDomainEvents()

	fx := &financeFixture{
		repo:    new(MockClientFinanceRepository),
		clients: new(MockClientReader),
		pub:     &recordingPublisher{},
		metrics: &rejectedCounter{},
		client:  c,
		actor:   Actor{UserID: uuid.New()},
	}
	opts = append([]FinanceServiceOption{
		WithPaymentMetrics(fx.metrics),
		WithUserDirectory(stubUsers{fx.actor.UserID: "Luis Quispe"}),
	}, opts...)
	fx.svc = NewFinanceService(fx.repo, fx.clients, fx.pub, zap.NewNop(), opts...)
	fx.svc.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	fx.clients.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	return fx
}

// paidYear opens 2024 with monthly 100 and annual 200, and books 100 on
// January to September
func paidYear(t *testing.T, clientID uuid.UUID) *finance.ClientFinance {
	t.Helper()
	f, err := finance.NewClientFinance(clientID, 2024)
	require.NoError(t, err)
	require.NoError(t, f.UpdateFees(decimal.NewFromInt(200), decimal.NewFromInt(100)))
	for m := valueobject.January; m <= valueobject.September; m++ {
		_, err := f.RecordPayment(f.PaymentByMonth(m).ID, finance.TransactionInput{Amount: decimal.NewFromInt(100)}, finance.Actor{})
		require.NoError(t, err)
	}
	f.PullDomainEvents()
	return f
}

func TestFinanceService_GetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the existing year", func(t *testing.T) {
		fx := newFinanceFixture(t)
		f := paidYear(t, fx.client.ID)
		fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2024).Return(f, nil)

		resp, err := fx.svc.GetOrCreate(ctx, fx.client.ID, 2024)

		require.NoError(t, err)
		assert.Equal(t, f.ID, resp.ID)
		assert.Len(t, resp.MonthlyPayments, 13)
		assert.True(t, resp.TotalPaid.Decimal().Equal(decimal.NewFromInt(900)))
		assert.Empty(t, fx.pub.events)
		fx.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("opens a missing year", func(t *testing.T) {
		fx := newFinanceFixture(t)
		fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2025).Return(nil, shared.ErrNotFound)
		fx.repo.On("Save", ctx, mock.AnythingOfType("*finance.ClientFinance")).Return(nil)

		resp, err := fx.svc.GetOrCreate(ctx, fx.client.ID, 2025)

		require.NoError(t, err)
		assert.Equal(t, 2025, resp.Year)
		assert.True(t, resp.AnnualFee.Decimal().IsZero())
		assert.Equal(t, []string{finance.EventTypeFinanceOpened}, fx.pub.types())
	})

	t.Run("concurrent open reloads", func(t *testing.T) {
		fx := newFinanceFixture(t)
		winner, err := finance.NewClientFinance(fx.client.ID, 2025)
		require.NoError(t, err)
		fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2025).Return(nil, shared.ErrNotFound).Once()
		fx.repo.On("Save", ctx, mock.Anything).Return(shared.ErrAlreadyExists)
		fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2025).Return(winner, nil).Once()

		resp, err := fx.svc.GetOrCreate(ctx, fx.client.ID, 2025)

		require.NoError(t, err)
		assert.Equal(t, winner.ID, resp.ID)
		assert.Empty(t, fx.pub.events)
	})

	t.Run("unknown client", func(t *testing.T) {
		fx := newFinanceFixture(t)
		ghost := uuid.New()
		fx.clients.On("FindByID", ctx, ghost).Return(nil, shared.ErrNotFound)

		_, err := fx.svc.GetOrCreate(ctx, ghost, 2024)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("year out of range", func(t *testing.T) {
		fx := newFinanceFixture(t)
		_, err := fx.svc.GetOrCreate(ctx, fx.client.ID, 1999)

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "year")
	})
}

func TestFinanceService_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("negative fees are rejected", func(t *testing.T) {
		fx := newFinanceFixture(t)
		_, _, err := fx.svc.Configure(ctx, fx.client.ID, ConfigureFinanceRequest{
			Year:       2024,
			AnnualFee:  decimal.NewFromInt(-1),
			MonthlyFee: decimal.NewFromInt(100),
		})

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "annual_fee")
		assert.NotContains(t, verr.Fields, "monthly_fee")
		fx.repo.AssertNotCalled(t, "UpdateLocked", mock.Anything, mock.Anything)
	})

	t.Run("updates fees of an existing year", func(t *testing.T) {
		fx := newFinanceFixture(t)
		f, err := finance.NewClientFinance(fx.client.ID, 2024)
		require.NoError(t, err)
		f.PullDomainEvents()
		fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2024).Return(f, nil)
		fx.repo.On("UpdateLocked", ctx, f.ID).Return(f, nil)

		resp, created, err := fx.svc.Configure(ctx, fx.client.ID, ConfigureFinanceRequest{
			Year:       2024,
			AnnualFee:  decimal.NewFromInt(200),
			MonthlyFee: decimal.NewFromInt(100),
		})

		require.NoError(t, err)
		assert.False(t, created)
		assert.True(t, resp.TotalDue.Decimal().Equal(decimal.NewFromInt(1400)))
		assert.Equal(t, []string{finance.EventTypeFeesUpdated}, fx.pub.types())
	})

	t.Run("opens the year first", func(t *testing.T) {
		fx := newFinanceFixture(t)
		fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2025).Return(nil, shared.ErrNotFound)
		fx.repo.On("Save", ctx, mock.Anything).Return(nil)
		fx.repo.On("UpdateLocked", ctx, mock.Anything).Return(nil, nil)

		resp, created, err := fx.svc.Configure(ctx, fx.client.ID, ConfigureFinanceRequest{
			Year:       2025,
			MonthlyFee: decimal.NewFromInt(50),
		})

		require.NoError(t, err)
		assert.True(t, created)
		assert.True(t, resp.MonthlyFee.Decimal().Equal(decimal.NewFromInt(50)))
		assert.Equal(t, []string{finance.EventTypeFinanceOpened, finance.EventTypeFeesUpdated}, fx.pub.types())
	})
}

func TestFinanceService_RecordPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("books up to the ceiling", func(t *testing.T) {
		fx := newFinanceFixture(t)
		f := paidYear(t, fx.client.ID)
		october := f.PaymentByMonth(valueobject.October)
		fx.repo.On("FindByPayment", ctx, fx.client.ID, october.ID).Return(f, nil)
		fx.repo.On("UpdateLocked", ctx, f.ID).Return(f, nil)

		date := valueobject.NewDate(time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC))
		resp, err := fx.svc.RecordPayment(ctx, fx.actor, fx.client.ID, october.ID, RecordPaymentRequest{
			Amount:        decimal.NewFromInt(500),
			PaymentDate:   &date,
			PaymentMethod: "transferencia",
			Reference:     "<script>x</script>OP-991",
		})

		require.NoError(t, err)
		assert.True(t, resp.Transaction.Amount.Decimal().Equal(decimal.NewFromInt(500)))
		assert.Equal(t, "OP-991", resp.Transaction.Reference)
		assert.Equal(t, "Luis Quispe", resp.Transaction.CreatedByName)
		assert.Equal(t, "2024-10-03", resp.Transaction.PaymentDate.String())
		assert.True(t, resp.MonthlyPayment.AmountPaid.Decimal().Equal(decimal.NewFromInt(500)))
		assert.Equal(t, []string{finance.EventTypePaymentRecorded}, fx.pub.types())
		assert.Empty(t, fx.metrics.codes)
	})

	t.Run("rejects one cent over the ceiling", func(t *testing.T) {
		fx := newFinanceFixture(t)
		f := paidYear(t, fx.client.ID)
		october := f.PaymentByMonth(valueobject.October)
		fx.repo.On("FindByPayment", ctx, fx.client.ID, october.ID).Return(f, nil)
		fx.repo.On("UpdateLocked", ctx, f.ID).Return(f, nil)

		_, err := fx.svc.RecordPayment(ctx, fx.actor, fx.client.ID, october.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("500.01"),
		})

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, finance.CodePaymentExceedsAnnual, verr.Code)
		assert.Contains(t, verr.Fields, "amount")
		assert.Equal(t, []string{finance.CodePaymentExceedsAnnual}, fx.metrics.codes)
		assert.Empty(t, fx.pub.events)
		assert.True(t, october.AmountPaid.IsZero())
	})

	t.Run("zero amount", func(t *testing.T) {
		fx := newFinanceFixture(t)
		f := paidYear(t, fx.client.ID)
		october := f.PaymentByMonth(valueobject.October)
		fx.repo.On("FindByPayment", ctx, fx.client.ID, october.ID).Return(f, nil)
		fx.repo.On("UpdateLocked", ctx, f.ID).Return(f, nil)

		_, err := fx.svc.RecordPayment(ctx, fx.actor, fx.client.ID, october.ID, RecordPaymentRequest{})

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, finance.CodeInvalidAmount, verr.Code)
		assert.Equal(t, []string{finance.CodeInvalidAmount}, fx.metrics.codes)
	})

	t.Run("version conflict is surfaced", func(t *testing.T) {
		fx := newFinanceFixture(t)
		f := paidYear(t, fx.client.ID)
		october := f.PaymentByMonth(valueobject.October)
		fx.repo.On("FindByPayment", ctx, fx.client.ID, october.ID).Return(f, nil)
		fx.repo.On("UpdateLocked", ctx, f.ID).Return(nil, shared.ErrConcurrencyConflict)

		_, err := fx.svc.RecordPayment(ctx, fx.actor, fx.client.ID, october.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(10)})

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Empty(t, fx.metrics.codes)
	})
}

func TestFinanceService_CheckAllocation(t *testing.T) {
	ctx := context.Background()

	t.Run("existing year", func(t *testing.T) {
		fx := newFinanceFixture(t)
		fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2024).Return(paidYear(t, fx.client.ID), nil)

		resp, err := fx.svc.CheckAllocation(ctx, fx.client.ID, AllocationCheckRequest{Year: 2024, Amount: decimal.NewFromInt(500)})

		require.NoError(t, err)
		assert.True(t, resp.Accepted)
		assert.True(t, resp.TotalAnnualAmount.Decimal().Equal(decimal.NewFromInt(1400)))
		assert.True(t, resp.TotalPaidThisYear.Decimal().Equal(decimal.NewFromInt(900)))
		assert.True(t, resp.MaxAllowed.Decimal().Equal(decimal.NewFromInt(500)))
	})

	t.Run("year never opened", func(t *testing.T) {
		fx := newFinanceFixture(t)
		fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2030).Return(nil, shared.ErrNotFound)

		resp, err := fx.svc.CheckAllocation(ctx, fx.client.ID, AllocationCheckRequest{Year: 2030, Amount: decimal.NewFromInt(1)})

		require.NoError(t, err)
		assert.False(t, resp.Accepted)
		assert.True(t, resp.MaxAllowed.Decimal().IsZero())
	})
}

func TestFinanceService_AvailableYears(t *testing.T) {
	ctx := context.Background()
	fx := newFinanceFixture(t, WithOperationalYears(stubYears{2023, 2025}))
	fx.repo.On("ListYears", ctx, fx.client.ID).Return([]int{2024, 2023}, nil)

	resp, err := fx.svc.AvailableYears(ctx, fx.client.ID)

	require.NoError(t, err)
	assert.Equal(t, "Ana Torres", resp.ClientName)
	assert.Equal(t, []int{2025, 2024, 2023}, resp.AvailableYears)
	assert.Equal(t, 2024, resp.CurrentYear)
}

func TestFinanceService_Summary(t *testing.T) {
	ctx := context.Background()
	fx := newFinanceFixture(t)
	fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2024).Return(paidYear(t, fx.client.ID), nil)
	fx.repo.On("FindByClientAndYear", ctx, fx.client.ID, 2022).Return(nil, shared.ErrNotFound)

	resp, err := fx.svc.Summary(ctx, fx.client.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, 9, resp.PaymentsCompleted)
	assert.Equal(t, 4, resp.PaymentsPending)
	assert.True(t, resp.TotalBalance.Decimal().Equal(decimal.NewFromInt(500)))

	_, err = fx.svc.Summary(ctx, fx.client.ID, 2022)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFinanceService_UpdateMonthlyPayment(t *testing.T) {
	ctx := context.Background()
	fx := newFinanceFixture(t)
	f := paidYear(t, fx.client.ID)
	march := f.PaymentByMonth(valueobject.March)
	fx.repo.On("FindByPayment", ctx, fx.client.ID, march.ID).Return(f, nil)
	fx.repo.On("Save", ctx, f).Return(nil)

	resp, err := fx.svc.UpdateMonthlyPayment(ctx, fx.client.ID, march.ID, UpdateMonthlyPaymentRequest{Notes: "<b>Pagó</b> en efectivo"})

	require.NoError(t, err)
	assert.Equal(t, "Pagó en efectivo", resp.Notes)
	assert.Equal(t, "Marzo", resp.MonthName)
	fx.repo.AssertExpectations(t)
}
