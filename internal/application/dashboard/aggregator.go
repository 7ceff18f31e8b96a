// Package dashboard builds the executive summary shown on the back-office
// home screen: fiscal-year totals across every client plus a feed of recent
// payments and filings.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ClientLister lists every client that takes part in the summary
type ClientLister interface {
	ListRefs(ctx context.Context) ([]client.Ref, error)
}

// FinanceReader loads a client's finance year. shared.ErrNotFound means the
// year was never opened.
type FinanceReader interface {
	FindByClientAndYear(ctx context.Context, clientID uuid.UUID, year int) (*finance.ClientFinance, error)
}

// OperationalReader loads a client's operational control for a year
type OperationalReader interface {
	FindByClientAndYear(ctx context.Context, clientID uuid.UUID, year int) (*operational.OperationalControl, error)
}

// UserDirectory resolves actor names for the activity feed
type UserDirectory interface {
	NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// Activity kinds
const (
	ActivityPayment     = "payment"
	ActivityDeclaration = "declaration"
)

// Activity is one entry of the recent activity feed
type Activity struct {
	Kind        string              `json:"type"`
	Description string              `json:"description"`
	Amount      *valueobject.Amount `json:"amount,omitempty"`
	ClientID    uuid.UUID           `json:"client_id"`
	ClientName  string              `json:"client_name"`
	ActorID     uuid.UUID           `json:"actor_id"`
	Actor       string              `json:"actor"`
	Status      string              `json:"status"`
	Date        time.Time           `json:"date"`
}

// FinanceStats are the fiscal-year totals across clients
type FinanceStats struct {
	TotalClients        int                `json:"total_clients"`
	TotalRevenue        valueobject.Amount `json:"total_revenue"`
	PendingPayments     valueobject.Amount `json:"pending_payments"`
	OverduePayments     valueobject.Amount `json:"overdue_payments"`
	MonthlyDeclarations int                `json:"monthly_declarations"`
	PendingDeclarations int                `json:"pending_declarations"`
}

// FailedClient is a client left out of the totals because its data could not be loaded
type FailedClient struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Error string    `json:"error"`
}

// Snapshot is the result of one aggregation run
type Snapshot struct {
	Years         []int          `json:"years"`
	Stats         FinanceStats   `json:"stats"`
	Activities    []Activity     `json:"recent_activities"`
	FailedClients []FailedClient `json:"failed_clients"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// Query selects the fiscal years to summarize and the reference time used for
// overdue months and the activity window
type Query struct {
	Years []int
	Now   time.Time
}

// AggregatorConfig tunes the fan-out and the activity feed
type AggregatorConfig struct {
	Concurrency    int
	ActivityWindow time.Duration
	ActivityLimit  int
	// FetchTimeout bounds the loading of a single client, zero disables it
	FetchTimeout time.Duration
}

// DefaultAggregatorConfig returns default configuration
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Concurrency:    8,
		ActivityWindow: 7 * 24 * time.Hour,
		ActivityLimit:  10,
	}
}

// Aggregator reduces the finance and operational records of every client into
// a Snapshot. Clients are loaded with bounded concurrency; a client whose
// records fail to load is logged and contributes nothing.
type Aggregator struct {
	clients     ClientLister
	finances    FinanceReader
	operational OperationalReader
	users       UserDirectory
	config      AggregatorConfig
	logger      *zap.Logger
}

// NewAggregator creates an aggregator. users may be nil, actors are then left unnamed.
func NewAggregator(
	clients ClientLister,
	finances FinanceReader,
	operational OperationalReader,
	users UserDirectory,
	config AggregatorConfig,
	logger *zap.Logger,
) *Aggregator {
	def := DefaultAggregatorConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.ActivityWindow <= 0 {
		config.ActivityWindow = def.ActivityWindow
	}
	if config.ActivityLimit <= 0 {
		config.ActivityLimit = def.ActivityLimit
	}
	return &Aggregator{
		clients:     clients,
		finances:    finances,
		operational: operational,
		users:       users,
		config:      config,
		logger:      logger,
	}
}

// clientResult is what one client contributes to the snapshot
type clientResult struct {
	revenue             decimal.Decimal
	pending             decimal.Decimal
	overdue             decimal.Decimal
	monthlyDeclarations int
	pendingDeclarations int
	activities          []Activity
	err                 error
}

// Snapshot aggregates the requested years. It only fails when the client list
// itself cannot be loaded.
func (a *Aggregator) Snapshot(ctx context.Context, q Query) (*Snapshot, error) {
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	if len(q.Years) == 0 {
		q.Years = []int{q.Now.Year()}
	}

	refs, err := a.clients.ListRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	results := make([]clientResult, len(refs))
	g := new(errgroup.Group)
	g.SetLimit(a.config.Concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			results[i] = a.loadClient(ctx, ref, q)
			// per-client failures are recorded on the result, never returned
			return nil
		})
	}
	_ = g.Wait()

	snap := &Snapshot{
		Years:         q.Years,
		Activities:    []Activity{},
		FailedClients: []FailedClient{},
		GeneratedAt:   q.Now,
	}
	revenue, pending, overdue := decimal.Zero, decimal.Zero, decimal.Zero
	for i, r := range results {
		if r.err != nil {
			a.logger.Warn("Excluding client from dashboard",
				zap.String("client_id", refs[i].ID.String()),
				zap.String("client_name", refs[i].Name),
				zap.Error(r.err))
			snap.FailedClients = append(snap.FailedClients, FailedClient{
				ID: refs[i].ID, Name: refs[i].Name, Error: r.err.Error(),
			})
			continue
		}
		revenue = revenue.Add(r.revenue)
		pending = pending.Add(r.pending)
		overdue = overdue.Add(r.overdue)
		snap.Stats.MonthlyDeclarations += r.monthlyDeclarations
		snap.Stats.PendingDeclarations += r.pendingDeclarations
		snap.Activities = append(snap.Activities, r.activities...)
	}

	snap.Stats.TotalClients = len(refs)
	snap.Stats.TotalRevenue = valueobject.NewAmount(revenue)
	snap.Stats.PendingPayments = valueobject.NewAmount(pending)
	snap.Stats.OverduePayments = valueobject.NewAmount(overdue)

	sort.SliceStable(snap.Activities, func(i, j int) bool {
		return snap.Activities[i].Date.After(snap.Activities[j].Date)
	})
	if len(snap.Activities) > a.config.ActivityLimit {
		snap.Activities = snap.Activities[:a.config.ActivityLimit]
	}
	a.nameActors(ctx, snap.Activities)

	return snap, nil
}

func (a *Aggregator) loadClient(ctx context.Context, ref client.Ref, q Query) (r clientResult) {
	if a.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.FetchTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			r = clientResult{err: fmt.Errorf("panic while loading client: %v", p)}
		}
	}()

	since := q.Now.Add(-a.config.ActivityWindow)
	r.revenue, r.pending, r.overdue = decimal.Zero, decimal.Zero, decimal.Zero

	for _, year := range q.Years {
		f, err := a.finances.FindByClientAndYear(ctx, ref.ID, year)
		switch {
		case errors.Is(err, shared.ErrNotFound):
		case err != nil:
			return clientResult{err: fmt.Errorf("finance %d: %w", year, err)}
		default:
			addFinance(&r, f, ref, q.Now, since)
		}

		c, err := a.operational.FindByClientAndYear(ctx, ref.ID, year)
		switch {
		case errors.Is(err, shared.ErrNotFound):
		case err != nil:
			return clientResult{err: fmt.Errorf("operational %d: %w", year, err)}
		default:
			addOperational(&r, c, ref, since)
		}
	}
	return r
}

func addFinance(r *clientResult, f *finance.ClientFinance, ref client.Ref, now, since time.Time) {
	r.revenue = r.revenue.Add(f.TotalPaid())
	r.pending = r.pending.Add(f.TotalBalance())

	for _, p := range f.Payments {
		if p.Balance.IsPositive() && p.Month.IsOverdueAt(f.Year, now) {
			r.overdue = r.overdue.Add(p.Balance)
		}
		for _, tx := range p.Transactions {
			if tx.PaymentDate.Before(since) {
				continue
			}
			amount := valueobject.NewAmount(tx.Amount)
			r.activities = append(r.activities, Activity{
				Kind:        ActivityPayment,
				Description: "Pago registrado para " + p.Month.Name(),
				Amount:      &amount,
				ClientID:    ref.ID,
				ClientName:  ref.Name,
				ActorID:     tx.CreatedBy,
				Actor:       tx.CreatedByName,
				Status:      "completed",
				Date:        tx.PaymentDate,
			})
		}
	}
}

func addOperational(r *clientResult, c *operational.OperationalControl, ref client.Ref, since time.Time) {
	r.monthlyDeclarations += len(c.Declarations)
	r.pendingDeclarations += c.PendingDeclarations()

	for _, d := range c.Declarations {
		for _, td := range d.TaxDeclarations {
			if td.CreatedAt.Before(since) {
				continue
			}
			r.activities = append(r.activities, Activity{
				Kind:        ActivityDeclaration,
				Description: td.PDTType.Display() + " registrado para " + d.Month.Name(),
				ClientID:    ref.ID,
				ClientName:  ref.Name,
				ActorID:     td.CreatedBy,
				Status:      string(td.Status),
				Date:        td.CreatedAt,
			})
		}
	}
}

// unknownActor labels activities whose author cannot be resolved
const unknownActor = "Usuario"

// nameActors fills in actor names the repositories did not provide. Actors
// that stay unresolved are shown as unknownActor.
func (a *Aggregator) nameActors(ctx context.Context, activities []Activity) {
	names := a.actorNames(ctx, activities)
	for i := range activities {
		if activities[i].Actor != "" {
			continue
		}
		if name := names[activities[i].ActorID]; name != "" {
			activities[i].Actor = name
		} else {
			activities[i].Actor = unknownActor
		}
	}
}

func (a *Aggregator) actorNames(ctx context.Context, activities []Activity) map[uuid.UUID]string {
	if a.users == nil {
		return nil
	}
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, act := range activities {
		if act.Actor == "" && act.ActorID != uuid.Nil && !seen[act.ActorID] {
			seen[act.ActorID] = true
			ids = append(ids, act.ActorID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	names, err := a.users.NamesByIDs(ctx, ids)
	if err != nil {
		a.logger.Warn("Failed to resolve activity actors", zap.Error(err))
		return nil
	}
	return names
}
