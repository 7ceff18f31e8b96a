package finance

import (
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeClientFinance = "ClientFinance"

const (
	EventTypeFinanceOpened   = "finance.opened"
	EventTypeFeesUpdated     = "finance.fees_updated"
	EventTypePaymentRecorded = "finance.payment_recorded"
)

// FinanceOpenedEvent is published when a fiscal year is first created for a client
type FinanceOpenedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
	Year     int       `json:"year"`
}

func NewFinanceOpenedEvent(f *ClientFinance) *FinanceOpenedEvent {
	return &FinanceOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFinanceOpened, AggregateTypeClientFinance, f.ID),
		ClientID:        f.ClientID,
		Year:            f.Year,
	}
}

// FeesUpdatedEvent is published when the fee configuration changes
type FeesUpdatedEvent struct {
	shared.BaseDomainEvent
	ClientID   uuid.UUID       `json:"client_id"`
	Year       int             `json:"year"`
	AnnualFee  decimal.Decimal `json:"annual_fee"`
	MonthlyFee decimal.Decimal `json:"monthly_fee"`
}

func NewFeesUpdatedEvent(f *ClientFinance) *FeesUpdatedEvent {
	return &FeesUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeesUpdated, AggregateTypeClientFinance, f.ID),
		ClientID:        f.ClientID,
		Year:            f.Year,
		AnnualFee:       f.AnnualFee,
		MonthlyFee:      f.MonthlyFee,
	}
}

// PaymentRecordedEvent is published after a transaction is booked
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	ClientID      uuid.UUID       `json:"client_id"`
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"payment_method,omitempty"`
}

func NewPaymentRecordedEvent(f *ClientFinance, p *MonthlyPayment, tx PaymentTransaction) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypeClientFinance, f.ID),
		ClientID:        f.ClientID,
		Year:            f.Year,
		Month:           p.Month.Int(),
		PaymentID:       p.ID,
		TransactionID:   tx.ID,
		Amount:          tx.Amount,
		Method:          tx.PaymentMethod,
	}
}

// YearOf extracts the fiscal year from finance events, ok is false for other events
func YearOf(e shared.DomainEvent) (year int, ok bool) {
	switch ev := e.(type) {
	case *FinanceOpenedEvent:
		return ev.Year, true
	case *FeesUpdatedEvent:
		return ev.Year, true
	case *PaymentRecordedEvent:
		return ev.Year, true
	}
	return 0, false
}
