package models

import (
	"sort"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ClientFinanceModel is the persistence model for the ClientFinance aggregate
type ClientFinanceModel struct {
	AggregateModel
	ClientID   uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_client_finance_year,priority:1"`
	Year       int                   `gorm:"not null;uniqueIndex:idx_client_finance_year,priority:2"`
	AnnualFee  decimal.Decimal       `gorm:"type:decimal(12,2);not null;default:0"`
	MonthlyFee decimal.Decimal       `gorm:"type:decimal(12,2);not null;default:0"`
	Payments   []MonthlyPaymentModel `gorm:"foreignKey:FinanceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ClientFinanceModel) TableName() string {
	return "client_finances"
}

// MonthlyPaymentModel is the persistence model for a monthly payment slot
type MonthlyPaymentModel struct {
	BaseModel
	FinanceID    uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_payment_finance_month,priority:1"`
	Month        int                       `gorm:"not null;uniqueIndex:idx_payment_finance_month,priority:2"`
	AmountDue    decimal.Decimal           `gorm:"type:decimal(12,2);not null;default:0"`
	AmountPaid   decimal.Decimal           `gorm:"type:decimal(12,2);not null;default:0"`
	Balance      decimal.Decimal           `gorm:"type:decimal(12,2);not null;default:0"`
	IsPaid       bool                      `gorm:"not null;default:false"`
	PaymentDate  *datatypes.Date           `gorm:"type:date"`
	Notes        string                    `gorm:"type:text"`
	Transactions []PaymentTransactionModel `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (MonthlyPaymentModel) TableName() string {
	return "monthly_payments"
}

// PaymentTransactionModel is the persistence model for a booked payment
type PaymentTransactionModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PaymentID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentDate   datatypes.Date  `gorm:"type:date;not null;index"`
	PaymentMethod string          `gorm:"type:varchar(50)"`
	Reference     string          `gorm:"type:varchar(100)"`
	Notes         string          `gorm:"type:text"`
	CreatedBy     uuid.UUID       `gorm:"type:uuid"`
	CreatedByName string          `gorm:"type:varchar(150)"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the persistence model to a domain ClientFinance.
// Payments are ordered by month and transactions newest first.
func (m *ClientFinanceModel) ToDomain() *finance.ClientFinance {
	f := &finance.ClientFinance{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ClientID:          m.ClientID,
		Year:              m.Year,
		AnnualFee:         m.AnnualFee,
		MonthlyFee:        m.MonthlyFee,
		Payments:          make([]*finance.MonthlyPayment, 0, len(m.Payments)),
	}
	for i := range m.Payments {
		f.Payments = append(f.Payments, m.Payments[i].ToDomain())
	}
	sort.Slice(f.Payments, func(i, j int) bool { return f.Payments[i].Month < f.Payments[j].Month })
	return f
}

// FromDomain populates the persistence model and its payment slots. Transactions
// are not copied; they are inserted separately.
func (m *ClientFinanceModel) FromDomain(f *finance.ClientFinance) {
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	m.ClientID = f.ClientID
	m.Year = f.Year
	m.AnnualFee = f.AnnualFee
	m.MonthlyFee = f.MonthlyFee
	m.Payments = make([]MonthlyPaymentModel, 0, len(f.Payments))
	for _, p := range f.Payments {
		pm := MonthlyPaymentModel{}
		pm.FromDomain(p)
		m.Payments = append(m.Payments, pm)
	}
}

// ToDomain converts the persistence model to a domain MonthlyPayment
func (m *MonthlyPaymentModel) ToDomain() *finance.MonthlyPayment {
	p := &finance.MonthlyPayment{
		BaseEntity:   m.BaseModel.ToDomain(),
		FinanceID:    m.FinanceID,
		Month:        valueobject.Month(m.Month),
		AmountDue:    m.AmountDue,
		AmountPaid:   m.AmountPaid,
		Balance:      m.Balance,
		IsPaid:       m.IsPaid,
		PaymentDate:  datePtrToTime(m.PaymentDate),
		Notes:        m.Notes,
		Transactions: make([]finance.PaymentTransaction, 0, len(m.Transactions)),
	}
	for i := range m.Transactions {
		p.Transactions = append(p.Transactions, m.Transactions[i].ToDomain())
	}
	sort.SliceStable(p.Transactions, func(i, j int) bool {
		a, b := p.Transactions[i], p.Transactions[j]
		if a.PaymentDate.Equal(b.PaymentDate) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.PaymentDate.After(b.PaymentDate)
	})
	return p
}

// FromDomain populates the persistence model from a domain MonthlyPayment
func (m *MonthlyPaymentModel) FromDomain(p *finance.MonthlyPayment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.FinanceID = p.FinanceID
	m.Month = p.Month.Int()
	m.AmountDue = p.AmountDue
	m.AmountPaid = p.AmountPaid
	m.Balance = p.Balance
	m.IsPaid = p.IsPaid
	m.PaymentDate = timeToDatePtr(p.PaymentDate)
	m.Notes = p.Notes
}

// ToDomain converts the persistence model to a domain PaymentTransaction
func (m *PaymentTransactionModel) ToDomain() finance.PaymentTransaction {
	return finance.PaymentTransaction{
		ID:            m.ID,
		PaymentID:     m.PaymentID,
		Amount:        m.Amount,
		PaymentDate:   time.Time(m.PaymentDate),
		PaymentMethod: m.PaymentMethod,
		Reference:     m.Reference,
		Notes:         m.Notes,
		CreatedBy:     m.CreatedBy,
		CreatedByName: m.CreatedByName,
		CreatedAt:     m.CreatedAt,
	}
}

// PaymentTransactionModelFromDomain creates a persistence model from a transaction
func PaymentTransactionModelFromDomain(tx finance.PaymentTransaction) *PaymentTransactionModel {
	return &PaymentTransactionModel{
		ID:            tx.ID,
		PaymentID:     tx.PaymentID,
		Amount:        tx.Amount,
		PaymentDate:   datatypes.Date(tx.PaymentDate),
		PaymentMethod: tx.PaymentMethod,
		Reference:     tx.Reference,
		Notes:         tx.Notes,
		CreatedBy:     tx.CreatedBy,
		CreatedByName: tx.CreatedByName,
		CreatedAt:     tx.CreatedAt,
	}
}

// CollectionRecordModel is the persistence model for a collection follow-up
type CollectionRecordModel struct {
	BaseModel
	ClientID         uuid.UUID                `gorm:"type:uuid;not null;index"`
	MonthlyPaymentID *uuid.UUID               `gorm:"type:uuid;index"`
	Status           finance.CollectionStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ContactDate      datatypes.Date           `gorm:"type:date;not null"`
	ContactMethod    finance.ContactMethod    `gorm:"type:varchar(20);not null"`
	Notes            string                   `gorm:"type:text"`
	NextContactDate  *datatypes.Date          `gorm:"type:date"`
	CreatedBy        uuid.UUID                `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CollectionRecordModel) TableName() string {
	return "collection_records"
}

// ToDomain converts the persistence model to a domain CollectionRecord
func (m *CollectionRecordModel) ToDomain() *finance.CollectionRecord {
	return &finance.CollectionRecord{
		BaseEntity:       m.BaseModel.ToDomain(),
		ClientID:         m.ClientID,
		MonthlyPaymentID: m.MonthlyPaymentID,
		Status:           m.Status,
		ContactDate:      time.Time(m.ContactDate),
		ContactMethod:    m.ContactMethod,
		Notes:            m.Notes,
		NextContactDate:  datePtrToTime(m.NextContactDate),
		CreatedBy:        m.CreatedBy,
	}
}

// FromDomain populates the persistence model from a domain CollectionRecord
func (m *CollectionRecordModel) FromDomain(r *finance.CollectionRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.ClientID = r.ClientID
	m.MonthlyPaymentID = r.MonthlyPaymentID
	m.Status = r.Status
	m.ContactDate = datatypes.Date(r.ContactDate)
	m.ContactMethod = r.ContactMethod
	m.Notes = r.Notes
	m.NextContactDate = timeToDatePtr(r.NextContactDate)
	m.CreatedBy = r.CreatedBy
}

func datePtrToTime(d *datatypes.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Time(*d)
	return &t
}

func timeToDatePtr(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}
	d := datatypes.Date(*t)
	return &d
}
