package finance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/estudiomd/backoffice/internal/application/sanitize"
	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ClientReader loads clients
type ClientReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error)
}

// YearLister lists the fiscal years opened for a client in another module
type YearLister interface {
	ListYears(ctx context.Context, clientID uuid.UUID) ([]int, error)
}

// UserDirectory resolves user display names
type UserDirectory interface {
	NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// PaymentMetrics records rejected payments
type PaymentMetrics interface {
	RecordPaymentRejected(ctx context.Context, code string)
}

// FinanceService provides fiscal year fee and payment operations
type FinanceService struct {
	repo        finance.ClientFinanceRepository
	clients     ClientReader
	operational YearLister
	users       UserDirectory
	events      shared.EventPublisher
	metrics     PaymentMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// FinanceServiceOption is a functional option for configuring FinanceService
type FinanceServiceOption func(*FinanceService)

// WithOperationalYears merges operational control years into AvailableYears
func WithOperationalYears(l YearLister) FinanceServiceOption {
	return func(s *FinanceService) {
		s.operational = l
	}
}

// WithUserDirectory resolves the name stamped on booked transactions
func WithUserDirectory(d UserDirectory) FinanceServiceOption {
	return func(s *FinanceService) {
		s.users = d
	}
}

// WithPaymentMetrics counts payments refused by the ceiling rule
func WithPaymentMetrics(m PaymentMetrics) FinanceServiceOption {
	return func(s *FinanceService) {
		s.metrics = m
	}
}

// NewFinanceService creates a new FinanceService
func NewFinanceService(
	repo finance.ClientFinanceRepository,
	clients ClientReader,
	events shared.EventPublisher,
	logger *zap.Logger,
	opts ...FinanceServiceOption,
) *FinanceService {
	s := &FinanceService{
		repo:    repo,
		clients: clients,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the fiscal year of a client, opening it with zero fees
// on first access
func (s *FinanceService) GetOrCreate(ctx context.Context, clientID uuid.UUID, year int) (*FinanceResponse, error) {
	f, _, err := s.getOrCreate(ctx, clientID, year)
	if err != nil {
		return nil, err
	}
	resp := ToFinanceResponse(f)
	return &resp, nil
}

// Configure sets the fees of a fiscal year, opening it if needed. created
// reports whether the year did not exist before.
func (s *FinanceService) Configure(ctx context.Context, clientID uuid.UUID, req ConfigureFinanceRequest) (resp *FinanceResponse, created bool, err error) {
	if err := finance.ValidateFees(req.AnnualFee, req.MonthlyFee); err != nil {
		return nil, false, err
	}
	f, created, err := s.getOrCreate(ctx, clientID, req.Year)
	if err != nil {
		return nil, false, err
	}

	f, err = s.repo.UpdateLocked(ctx, f.ID, func(locked *finance.ClientFinance) error {
		return locked.UpdateFees(req.AnnualFee, req.MonthlyFee)
	})
	if err != nil {
		return nil, false, err
	}
	s.publish(ctx, f)

	s.logger.Info("Finance fees configured",
		zap.String("client_id", clientID.String()),
		zap.Int("year", req.Year),
		zap.String("annual_fee", req.AnnualFee.String()),
		zap.String("monthly_fee", req.MonthlyFee.String()))
	out := ToFinanceResponse(f)
	return &out, created, nil
}

// Summary returns the headline figures of an existing fiscal year
func (s *FinanceService) Summary(ctx context.Context, clientID uuid.UUID, year int) (*SummaryResponse, error) {
	if err := valueobject.ValidateFiscalYear(year); err != nil {
		return nil, err
	}
	f, err := s.repo.FindByClientAndYear(ctx, clientID, year)
	if err != nil {
		return nil, err
	}
	resp := ToSummaryResponse(f.Summary())
	return &resp, nil
}

// AvailableYears lists every fiscal year with finance or operational records,
// newest first
func (s *FinanceService) AvailableYears(ctx context.Context, clientID uuid.UUID) (*AvailableYearsResponse, error) {
	c, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	years, err := s.repo.ListYears(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing finance years: %w", err)
	}
	if s.operational != nil {
		opYears, err := s.operational.ListYears(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("listing operational years: %w", err)
		}
		years = append(years, opYears...)
	}

	return &AvailableYearsResponse{
		ClientName:     c.DisplayName(),
		AvailableYears: uniqueDesc(years),
		CurrentYear:    s.now().Year(),
	}, nil
}

// GetMonthlyPayment returns one payment slot of a client
func (s *FinanceService) GetMonthlyPayment(ctx context.Context, clientID, paymentID uuid.UUID) (*MonthlyPaymentResponse, error) {
	f, err := s.repo.FindByPayment(ctx, clientID, paymentID)
	if err != nil {
		return nil, err
	}
	p, err := f.PaymentByID(paymentID)
	if err != nil {
		return nil, err
	}
	resp := ToMonthlyPaymentResponse(p)
	return &resp, nil
}

// UpdateMonthlyPayment replaces the notes of a payment slot
func (s *FinanceService) UpdateMonthlyPayment(ctx context.Context, clientID, paymentID uuid.UUID, req UpdateMonthlyPaymentRequest) (*MonthlyPaymentResponse, error) {
	f, err := s.repo.FindByPayment(ctx, clientID, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := f.UpdatePaymentNotes(paymentID, sanitize.Text(req.Notes)); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	p, _ := f.PaymentByID(paymentID)
	resp := ToMonthlyPaymentResponse(p)
	return &resp, nil
}

// RecordPayment books a transaction on a payment slot. The ceiling check and
// the insert run under the fiscal year's row lock.
func (s *FinanceService) RecordPayment(ctx context.Context, actor Actor, clientID, paymentID uuid.UUID, req RecordPaymentRequest) (*PaymentRecordedResponse, error) {
	f, err := s.repo.FindByPayment(ctx, clientID, paymentID)
	if err != nil {
		return nil, err
	}

	in := finance.TransactionInput{
		Amount:        req.Amount,
		PaymentMethod: sanitize.Text(req.PaymentMethod),
		Reference:     sanitize.Text(req.Reference),
		Notes:         sanitize.Text(req.Notes),
	}
	if req.PaymentDate != nil {
		in.PaymentDate = req.PaymentDate.Time
	} else {
		in.PaymentDate = s.now()
	}
	who := finance.Actor{ID: actor.UserID, Name: s.userName(ctx, actor.UserID)}

	var tx *finance.PaymentTransaction
	f, err = s.repo.UpdateLocked(ctx, f.ID, func(locked *finance.ClientFinance) error {
		booked, err := locked.RecordPayment(paymentID, in, who)
		if err != nil {
			return err
		}
		tx = booked
		return nil
	})
	if err != nil {
		s.recordRejection(ctx, err)
		return nil, err
	}
	s.publish(ctx, f)

	p, _ := f.PaymentByID(paymentID)
	s.logger.Info("Payment recorded",
		zap.String("client_id", clientID.String()),
		zap.Int("year", f.Year),
		zap.Int("month", p.Month.Int()),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("amount", tx.Amount.StringFixed(2)))

	return &PaymentRecordedResponse{
		Transaction:    ToTransactionResponse(*tx),
		MonthlyPayment: ToMonthlyPaymentResponse(p),
	}, nil
}

// CheckAllocation evaluates a proposed amount against the current state of a
// fiscal year without booking anything. A year never opened has no fees.
func (s *FinanceService) CheckAllocation(ctx context.Context, clientID uuid.UUID, req AllocationCheckRequest) (*AllocationResponse, error) {
	if err := valueobject.ValidateFiscalYear(req.Year); err != nil {
		return nil, err
	}
	var result finance.AllocationResult
	f, err := s.repo.FindByClientAndYear(ctx, clientID, req.Year)
	switch {
	case err == nil:
		result = f.CheckAllocation(req.Amount)
	case errors.Is(err, shared.ErrNotFound):
		result = finance.Allocate(decimal.Zero, decimal.Zero, nil, req.Amount)
	default:
		return nil, err
	}
	resp := ToAllocationResponse(result)
	return &resp, nil
}

func (s *FinanceService) getOrCreate(ctx context.Context, clientID uuid.UUID, year int) (*finance.ClientFinance, bool, error) {
	if err := valueobject.ValidateFiscalYear(year); err != nil {
		return nil, false, err
	}
	if _, err := s.clients.FindByID(ctx, clientID); err != nil {
		return nil, false, err
	}

	f, err := s.repo.FindByClientAndYear(ctx, clientID, year)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	f, err = finance.NewClientFinance(clientID, year)
	if err != nil {
		return nil, false, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		// another request opened the same year first
		if errors.Is(err, shared.ErrAlreadyExists) {
			f, err = s.repo.FindByClientAndYear(ctx, clientID, year)
			return f, false, err
		}
		return nil, false, err
	}
	s.publish(ctx, f)

	s.logger.Info("Fiscal year opened",
		zap.String("client_id", clientID.String()),
		zap.Int("year", year))
	return f, true, nil
}

func (s *FinanceService) userName(ctx context.Context, id uuid.UUID) string {
	if s.users == nil {
		return ""
	}
	names, err := s.users.NamesByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		s.logger.Warn("Failed to resolve user name", zap.String("user_id", id.String()), zap.Error(err))
		return ""
	}
	return names[id]
}

func (s *FinanceService) recordRejection(ctx context.Context, err error) {
	if s.metrics == nil {
		return
	}
	var verr *shared.ValidationError
	if errors.As(err, &verr) && (verr.Code == finance.CodePaymentExceedsAnnual || verr.Code == finance.CodeInvalidAmount) {
		s.metrics.RecordPaymentRejected(ctx, verr.Code)
	}
}

func (s *FinanceService) publish(ctx context.Context, f *finance.ClientFinance) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, f.PullDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish finance events", zap.String("finance_id", f.ID.String()), zap.Error(err))
	}
}

func uniqueDesc(years []int) []int {
	seen := make(map[int]struct{}, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
