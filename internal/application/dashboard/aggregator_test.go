package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type stubClients struct {
	refs  []client.Ref
	err   error
	calls atomic.Int32
}

func (s *stubClients) ListRefs(context.Context) ([]client.Ref, error) {
	s.calls.Add(1)
	return s.refs, s.err
}

type stubFinances struct {
	records  map[uuid.UUID]*finance.ClientFinance
	errs     map[uuid.UUID]error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *stubFinances) FindByClientAndYear(_ context.Context, clientID uuid.UUID, year int) (*finance.ClientFinance, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err := s.errs[clientID]; err != nil {
		return nil, err
	}
	f, ok := s.records[clientID]
	if !ok || f.Year != year {
		return nil, shared.ErrNotFound
	}
	return f, nil
}

type stubControls struct {
	records map[uuid.UUID]*operational.OperationalControl
}

func (s *stubControls) FindByClientAndYear(_ context.Context, clientID uuid.UUID, year int) (*operational.OperationalControl, error) {
	c, ok := s.records[clientID]
	if !ok || c.Year != year {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

type stubUsers struct {
	mu    sync.Mutex
	names map[uuid.UUID]string
}

func (s *stubUsers) NamesByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		if n, ok := s.names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type aggFixture struct {
	clients  *stubClients
	finances *stubFinances
	controls *stubControls
}

func newAggFixture(refs ...client.Ref) *aggFixture {
	return &aggFixture{
		clients:  &stubClients{refs: refs},
		finances: &stubFinances{records: map[uuid.UUID]*finance.ClientFinance{}, errs: map[uuid.UUID]error{}},
		controls: &stubControls{records: map[uuid.UUID]*operational.OperationalControl{}},
	}
}

func (fx *aggFixture) aggregator(cfg AggregatorConfig, users UserDirectory) *Aggregator {
	return NewAggregator(fx.clients, fx.finances, fx.controls, users, cfg, zap.NewNop())
}

func ref(name string) client.Ref {
	return client.Ref{ID: uuid.New(), Name: name}
}

// financeWithBalances opens a year and sets month balances directly
func financeWithBalances(t *testing.T, clientID uuid.UUID, year int, paid decimal.Decimal, balances map[int]int64) *finance.ClientFinance {
	t.Helper()
	f, err := finance.NewClientFinance(clientID, year)
	require.NoError(t, err)
	for _, p := range f.Payments {
		p.AmountPaid = decimal.Zero
		p.Balance = decimal.NewFromInt(balances[p.Month.Int()])
	}
	f.Payments[0].AmountPaid = paid
	return f
}

func addTransaction(f *finance.ClientFinance, month int, amount int64, date time.Time, actor uuid.UUID) {
	p := f.PaymentByMonth(valueobject.Month(month))
	p.Transactions = append(p.Transactions, finance.PaymentTransaction{
		ID:          uuid.New(),
		PaymentID:   p.ID,
		Amount:      decimal.NewFromInt(amount),
		PaymentDate: date,
		CreatedBy:   actor,
	})
}

func TestAggregator_ExcludesFailingClient(t *testing.T) {
	ok, broken := ref("Bodega Rosa"), ref("Ferretería Sol")
	fx := newAggFixture(ok, broken)
	fx.finances.records[ok.ID] = financeWithBalances(t, ok.ID, 2024, decimal.NewFromInt(300), map[int]int64{7: 120})
	fx.finances.errs[broken.ID] = errors.New("connection reset")

	snap, err := fx.aggregator(DefaultAggregatorConfig(), nil).Snapshot(context.Background(), Query{Years: []int{2024}, Now: testNow})

	require.NoError(t, err)
	assert.Equal(t, 2, snap.Stats.TotalClients)
	assert.Equal(t, "300", snap.Stats.TotalRevenue.Decimal().String())
	assert.Equal(t, "120", snap.Stats.PendingPayments.Decimal().String())
	require.Len(t, snap.FailedClients, 1)
	assert.Equal(t, broken.ID, snap.FailedClients[0].ID)
	assert.Contains(t, snap.FailedClients[0].Error, "connection reset")
}

func TestAggregator_FailedClientContributesNoDeclarations(t *testing.T) {
	c := ref("Bodega Rosa")
	fx := newAggFixture(c)
	fx.finances.errs[c.ID] = errors.New("timeout")
	control, err := operational.NewOperationalControl(c.ID, 2024)
	require.NoError(t, err)
	fx.controls.records[c.ID] = control

	snap, err := fx.aggregator(DefaultAggregatorConfig(), nil).Snapshot(context.Background(), Query{Years: []int{2024}, Now: testNow})

	require.NoError(t, err)
	assert.Zero(t, snap.Stats.MonthlyDeclarations)
	assert.Zero(t, snap.Stats.PendingDeclarations)
}

func TestAggregator_Overdue(t *testing.T) {
	t.Run("current year counts months before the current month", func(t *testing.T) {
		c := ref("Bodega Rosa")
		fx := newAggFixture(c)
		fx.finances.records[c.ID] = financeWithBalances(t, c.ID, 2024, decimal.Zero, map[int]int64{3: 50, 6: 70, 8: 50, 13: 200})

		snap, err := fx.aggregator(DefaultAggregatorConfig(), nil).Snapshot(context.Background(), Query{Years: []int{2024}, Now: testNow})

		require.NoError(t, err)
		assert.Equal(t, "50", snap.Stats.OverduePayments.Decimal().String())
		assert.Equal(t, "370", snap.Stats.PendingPayments.Decimal().String())
	})

	t.Run("past year counts every slot", func(t *testing.T) {
		c := ref("Bodega Rosa")
		fx := newAggFixture(c)
		fx.finances.records[c.ID] = financeWithBalances(t, c.ID, 2023, decimal.Zero, map[int]int64{3: 50, 8: 50, 13: 200})

		snap, err := fx.aggregator(DefaultAggregatorConfig(), nil).Snapshot(context.Background(), Query{Years: []int{2023}, Now: testNow})

		require.NoError(t, err)
		assert.Equal(t, "300", snap.Stats.OverduePayments.Decimal().String())
	})
}

func TestAggregator_MissingYearContributesZero(t *testing.T) {
	c := ref("Bodega Rosa")
	fx := newAggFixture(c)

	snap, err := fx.aggregator(DefaultAggregatorConfig(), nil).Snapshot(context.Background(), Query{Years: []int{2024}, Now: testNow})

	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stats.TotalClients)
	assert.True(t, snap.Stats.TotalRevenue.Decimal().IsZero())
	assert.Empty(t, snap.FailedClients)
	assert.Empty(t, snap.Activities)
}

func TestAggregator_Declarations(t *testing.T) {
	c := ref("Bodega Rosa")
	fx := newAggFixture(c)
	control, err := operational.NewOperationalControl(c.ID, 2024)
	require.NoError(t, err)
	march := control.DeclarationByMonth(valueobject.Month(3))
	td, err := control.FileTaxDeclaration(march.ID, operational.TaxInput{PDTType: operational.PDT621}, uuid.New())
	require.NoError(t, err)
	td.CreatedAt = testNow.Add(-24 * time.Hour)
	fx.controls.records[c.ID] = control

	snap, err := fx.aggregator(DefaultAggregatorConfig(), nil).Snapshot(context.Background(), Query{Years: []int{2024}, Now: testNow})

	require.NoError(t, err)
	assert.Equal(t, 13, snap.Stats.MonthlyDeclarations)
	assert.Equal(t, 12, snap.Stats.PendingDeclarations)
	require.Len(t, snap.Activities, 1)
	assert.Equal(t, ActivityDeclaration, snap.Activities[0].Kind)
	assert.Equal(t, "PDT 621 registrado para Marzo", snap.Activities[0].Description)
	assert.Equal(t, "pending", snap.Activities[0].Status)
	assert.Nil(t, snap.Activities[0].Amount)
}

func TestAggregator_ActivityWindow(t *testing.T) {
	c := ref("Bodega Rosa")
	fx := newAggFixture(c)
	actor := uuid.New()
	f := financeWithBalances(t, c.ID, 2024, decimal.Zero, nil)
	addTransaction(f, 4, 80, testNow.Add(-10*24*time.Hour), actor)
	addTransaction(f, 5, 90, testNow.Add(-2*24*time.Hour), actor)
	addTransaction(f, 6, 95, testNow.Add(-1*24*time.Hour), actor)
	fx.finances.records[c.ID] = f
	users := &stubUsers{names: map[uuid.UUID]string{actor: "Ana Torres"}}

	snap, err := fx.aggregator(DefaultAggregatorConfig(), users).Snapshot(context.Background(), Query{Years: []int{2024}, Now: testNow})

	require.NoError(t, err)
	require.Len(t, snap.Activities, 2)
	assert.Equal(t, "Pago registrado para Junio", snap.Activities[0].Description)
	assert.Equal(t, "Pago registrado para Mayo", snap.Activities[1].Description)
	assert.Equal(t, "90.00", mustJSON(t, snap.Activities[1].Amount))
	assert.Equal(t, "Ana Torres", snap.Activities[0].Actor)
	assert.Equal(t, "Bodega Rosa", snap.Activities[0].ClientName)
}

func TestAggregator_UnresolvedActor(t *testing.T) {
	c := ref("Bodega Rosa")
	known, gone := uuid.New(), uuid.New()
	f := financeWithBalances(t, c.ID, 2024, decimal.Zero, nil)
	addTransaction(f, 4, 80, testNow.Add(-3*time.Hour), known)
	addTransaction(f, 5, 90, testNow.Add(-2*time.Hour), gone)
	addTransaction(f, 6, 95, testNow.Add(-1*time.Hour), uuid.Nil)
	users := &stubUsers{names: map[uuid.UUID]string{known: "Ana Torres"}}

	for name, dir := range map[string]UserDirectory{"with directory": users, "without directory": nil} {
		t.Run(name, func(t *testing.T) {
			fx := newAggFixture(c)
			fx.finances.records[c.ID] = f

			snap, err := fx.aggregator(DefaultAggregatorConfig(), dir).Snapshot(context.Background(), Query{Years: []int{2024}, Now: testNow})

			require.NoError(t, err)
			require.Len(t, snap.Activities, 3)
			actors := make(map[string]string)
			for _, act := range snap.Activities {
				actors[act.Description] = act.Actor
			}
			assert.Equal(t, "Usuario", actors["Pago registrado para Junio"])
			assert.Equal(t, "Usuario", actors["Pago registrado para Mayo"])
			if dir != nil {
				assert.Equal(t, "Ana Torres", actors["Pago registrado para Abril"])
			} else {
				assert.Equal(t, "Usuario", actors["Pago registrado para Abril"])
			}
		})
	}
}

func TestAggregator_ActivityLimit(t *testing.T) {
	a, b := ref("Bodega Rosa"), ref("Ferretería Sol")
	fx := newAggFixture(a, b)
	for _, r := range []client.Ref{a, b} {
		f := financeWithBalances(t, r.ID, 2024, decimal.Zero, nil)
		for i := 0; i < 8; i++ {
			addTransaction(f, 1+i, 10, testNow.Add(-time.Duration(i)*time.Hour), uuid.Nil)
		}
		fx.finances.records[r.ID] = f
	}

	snap, err := fx.aggregator(DefaultAggregatorConfig(), nil).Snapshot(context.Background(), Query{Years: []int{2024}, Now: testNow})

	require.NoError(t, err)
	require.Len(t, snap.Activities, 10)
	for i := 1; i < len(snap.Activities); i++ {
		assert.False(t, snap.Activities[i].Date.After(snap.Activities[i-1].Date))
	}
}

func TestAggregator_BoundedConcurrency(t *testing.T) {
	refs := make([]client.Ref, 12)
	for i := range refs {
		refs[i] = ref("client")
	}
	fx := newAggFixture(refs...)
	fx.finances.delay = 5 * time.Millisecond

	snap, err := fx.aggregator(AggregatorConfig{Concurrency: 3}, nil).Snapshot(context.Background(), Query{Years: []int{2024}, Now: testNow})

	require.NoError(t, err)
	assert.Equal(t, 12, snap.Stats.TotalClients)
	assert.LessOrEqual(t, fx.finances.peak.Load(), int32(3))
}

func TestAggregator_ListFailure(t *testing.T) {
	fx := newAggFixture()
	fx.clients.err = errors.New("db down")

	_, err := fx.aggregator(DefaultAggregatorConfig(), nil).Snapshot(context.Background(), Query{Now: testNow})

	assert.ErrorContains(t, err, "db down")
}

func TestAggregator_DefaultsToCurrentYear(t *testing.T) {
	c := ref("Bodega Rosa")
	fx := newAggFixture(c)
	fx.finances.records[c.ID] = financeWithBalances(t, c.ID, 2024, decimal.NewFromInt(40), nil)

	snap, err := fx.aggregator(DefaultAggregatorConfig(), nil).Snapshot(context.Background(), Query{Now: testNow})

	require.NoError(t, err)
	assert.Equal(t, []int{2024}, snap.Years)
	assert.Equal(t, "40", snap.Stats.TotalRevenue.Decimal().String())
}

func mustJSON(t *testing.T, a *valueobject.Amount) string {
	t.Helper()
	require.NotNil(t, a)
	b, err := a.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}
