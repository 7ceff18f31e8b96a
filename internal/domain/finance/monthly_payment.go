package finance

import (
	"time"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlyPayment is the receivable for one fiscal month slot
type MonthlyPayment struct {
	shared.BaseEntity
	FinanceID   uuid.UUID
	Month       valueobject.Month
	AmountDue   decimal.Decimal
	AmountPaid  decimal.Decimal
	Balance     decimal.Decimal
	IsPaid      bool
	PaymentDate *time.Time
	Notes       string
	// Transactions are kept newest first
	Transactions []PaymentTransaction
}

func newMonthlyPayment(financeID uuid.UUID, m valueobject.Month) *MonthlyPayment {
	p := &MonthlyPayment{
		BaseEntity: shared.NewBaseEntity(),
		FinanceID:  financeID,
		Month:      m,
		AmountDue:  decimal.Zero,
		AmountPaid: decimal.Zero,
	}
	p.refreshBalance()
	return p
}

func (p *MonthlyPayment) refreshBalance() {
	p.Balance = p.AmountDue.Sub(p.AmountPaid)
	p.IsPaid = !p.Balance.IsPositive()
}

// HasTransactions reports whether at least one transaction was booked
func (p *MonthlyPayment) HasTransactions() bool {
	return len(p.Transactions) > 0
}

func (p *MonthlyPayment) addTransaction(tx PaymentTransaction) {
	p.Transactions = append([]PaymentTransaction{tx}, p.Transactions...)
	p.AmountPaid = p.AmountPaid.Add(tx.Amount)
	date := tx.PaymentDate
	p.PaymentDate = &date
	p.Touch()
}

// PaidFromTransactions sums the booked transactions
func (p *MonthlyPayment) PaidFromTransactions() decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range p.Transactions {
		sum = sum.Add(tx.Amount)
	}
	return sum
}

// IsOverdueAt reports whether the slot still owes money past its month
func (p *MonthlyPayment) IsOverdueAt(year int, now time.Time) bool {
	return p.Balance.IsPositive() && p.Month.IsOverdueAt(year, now)
}

// PaymentTransaction is an immutable booked payment
type PaymentTransaction struct {
	ID            uuid.UUID
	PaymentID     uuid.UUID
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PaymentMethod string
	Reference     string
	Notes         string
	CreatedBy     uuid.UUID
	CreatedByName string
	CreatedAt     time.Time
}
