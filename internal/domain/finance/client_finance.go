package finance

import (
	"time"
	"unicode/utf8"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientFinance is the fee configuration and receivables of one client for one
// fiscal year. It owns exactly one MonthlyPayment per fiscal month slot.
type ClientFinance struct {
	shared.BaseAggregateRoot
	ClientID   uuid.UUID
	Year       int
	AnnualFee  decimal.Decimal
	MonthlyFee decimal.Decimal
	Payments   []*MonthlyPayment
}

// ValidateFees rejects negative fee configuration
func ValidateFees(annualFee, monthlyFee decimal.Decimal) error {
	verr := shared.NewValidationError()
	if annualFee.IsNegative() {
		verr.Add("annual_fee", "Ensure this value is greater than or equal to 0.")
	}
	if monthlyFee.IsNegative() {
		verr.Add("monthly_fee", "Ensure this value is greater than or equal to 0.")
	}
	return verr.Err()
}

// NewClientFinance opens a fiscal year with zero fees and its 13 payment slots
func NewClientFinance(clientID uuid.UUID, year int) (*ClientFinance, error) {
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if err := valueobject.ValidateFiscalYear(year); err != nil {
		return nil, err
	}

	f := &ClientFinance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		Year:              year,
		AnnualFee:         decimal.Zero,
		MonthlyFee:        decimal.Zero,
	}
	for _, m := range valueobject.AllMonths() {
		f.Payments = append(f.Payments, newMonthlyPayment(f.ID, m))
	}
	f.AddDomainEvent(NewFinanceOpenedEvent(f))
	return f, nil
}

// UpdateFees sets the fee configuration. Slots with nothing paid get their
// base amount back before every slot is recalculated.
func (f *ClientFinance) UpdateFees(annualFee, monthlyFee decimal.Decimal) error {
	if err := ValidateFees(annualFee, monthlyFee); err != nil {
		return err
	}

	f.AnnualFee = annualFee
	f.MonthlyFee = monthlyFee
	for _, p := range f.Payments {
		if p.AmountPaid.IsZero() {
			p.AmountDue = f.baseDue(p.Month)
		}
	}
	f.Recalculate()
	f.Touch()
	f.IncrementVersion()
	f.AddDomainEvent(NewFeesUpdatedEvent(f))
	return nil
}

func (f *ClientFinance) baseDue(m valueobject.Month) decimal.Decimal {
	if m.IsAnnual() {
		return f.AnnualFee
	}
	return f.MonthlyFee
}

// Recalculate derives amount_due, balance and is_paid for every slot.
// The annual slot is due the annual fee and January the monthly fee. Any other
// month adds the unpaid part of the previous month's base fee, but only when
// that month has at least one transaction. Carries never chain.
func (f *ClientFinance) Recalculate() {
	for _, p := range f.Payments {
		due := f.baseDue(p.Month)
		if prevMonth, ok := p.Month.Previous(); ok {
			if prev := f.PaymentByMonth(prevMonth); prev != nil && prev.HasTransactions() {
				unpaid := f.MonthlyFee.Sub(prev.AmountPaid)
				if unpaid.IsPositive() {
					due = due.Add(unpaid)
				}
			}
		}
		p.AmountDue = due
		p.refreshBalance()
	}
}

// PaymentByMonth returns the slot for m or nil
func (f *ClientFinance) PaymentByMonth(m valueobject.Month) *MonthlyPayment {
	for _, p := range f.Payments {
		if p.Month == m {
			return p
		}
	}
	return nil
}

// PaymentByID returns the slot with id or ErrNotFound
func (f *ClientFinance) PaymentByID(id uuid.UUID) (*MonthlyPayment, error) {
	for _, p := range f.Payments {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *ClientFinance) TotalDue() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range f.Payments {
		sum = sum.Add(p.AmountDue)
	}
	return sum
}

func (f *ClientFinance) TotalPaid() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range f.Payments {
		sum = sum.Add(p.AmountPaid)
	}
	return sum
}

func (f *ClientFinance) TotalBalance() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range f.Payments {
		sum = sum.Add(p.Balance)
	}
	return sum
}

// CheckAllocation runs the payment ceiling rule against the current state
func (f *ClientFinance) CheckAllocation(amount decimal.Decimal) AllocationResult {
	paid := make([]decimal.Decimal, len(f.Payments))
	for i, p := range f.Payments {
		paid[i] = p.AmountPaid
	}
	return Allocate(f.MonthlyFee, f.AnnualFee, paid, amount)
}

// TransactionInput is the user supplied part of a payment transaction
type TransactionInput struct {
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PaymentMethod string
	Reference     string
	Notes         string
}

// Actor identifies who books a transaction
type Actor struct {
	ID   uuid.UUID
	Name string
}

// RecordPayment books a transaction on the slot paymentID. The amount must be
// positive and must fit under the yearly ceiling.
func (f *ClientFinance) RecordPayment(paymentID uuid.UUID, in TransactionInput, actor Actor) (*PaymentTransaction, error) {
	p, err := f.PaymentByID(paymentID)
	if err != nil {
		return nil, err
	}

	verr := shared.NewValidationError()
	if utf8.RuneCountInString(in.PaymentMethod) > 50 {
		verr.Add("payment_method", "Ensure this field has no more than 50 characters.")
	}
	if utf8.RuneCountInString(in.Reference) > 100 {
		verr.Add("reference", "Ensure this field has no more than 100 characters.")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	if err := f.CheckAllocation(in.Amount).Err(); err != nil {
		return nil, err
	}

	if in.PaymentDate.IsZero() {
		in.PaymentDate = time.Now()
	}
	tx := PaymentTransaction{
		ID:            uuid.New(),
		PaymentID:     p.ID,
		Amount:        in.Amount,
		PaymentDate:   in.PaymentDate,
		PaymentMethod: in.PaymentMethod,
		Reference:     in.Reference,
		Notes:         in.Notes,
		CreatedBy:     actor.ID,
		CreatedByName: actor.Name,
		CreatedAt:     shared.Now(),
	}
	p.addTransaction(tx)
	f.Recalculate()
	f.Touch()
	f.IncrementVersion()
	f.AddDomainEvent(NewPaymentRecordedEvent(f, p, tx))
	return &tx, nil
}

// UpdatePaymentNotes replaces the free text notes of a slot
func (f *ClientFinance) UpdatePaymentNotes(paymentID uuid.UUID, notes string) (*MonthlyPayment, error) {
	p, err := f.PaymentByID(paymentID)
	if err != nil {
		return nil, err
	}
	p.Notes = notes
	p.Touch()
	return p, nil
}

// Summary is the headline figures of a fiscal year
type Summary struct {
	Year              int
	TotalAnnualFee    decimal.Decimal
	MonthlyFee        decimal.Decimal
	TotalDue          decimal.Decimal
	TotalPaid         decimal.Decimal
	TotalBalance      decimal.Decimal
	PaymentsCompleted int
	PaymentsPending   int
}

func (f *ClientFinance) Summary() Summary {
	s := Summary{
		Year:           f.Year,
		TotalAnnualFee: f.AnnualFee,
		MonthlyFee:     f.MonthlyFee,
		TotalDue:       f.TotalDue(),
		TotalPaid:      f.TotalPaid(),
		TotalBalance:   f.TotalBalance(),
	}
	for _, p := range f.Payments {
		if p.IsPaid {
			s.PaymentsCompleted++
		} else {
			s.PaymentsPending++
		}
	}
	return s
}
