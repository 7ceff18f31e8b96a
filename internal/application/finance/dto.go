package finance

import (
	"time"

	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated user booking or editing finance records
type Actor struct {
	UserID uuid.UUID
}

// ConfigureFinanceRequest sets the fee configuration of a fiscal year
type ConfigureFinanceRequest struct {
	Year       int             `json:"year" binding:"required,min=2000,max=2100"`
	AnnualFee  decimal.Decimal `json:"annual_fee" binding:"decimal_gte0"`
	MonthlyFee decimal.Decimal `json:"monthly_fee" binding:"decimal_gte0"`
}

// UpdateMonthlyPaymentRequest edits the notes of a payment slot
type UpdateMonthlyPaymentRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// RecordPaymentRequest books a payment transaction on a slot
type RecordPaymentRequest struct {
	Amount        decimal.Decimal   `json:"amount"`
	PaymentDate   *valueobject.Date `json:"payment_date"`
	PaymentMethod string            `json:"payment_method" binding:"max=50"`
	Reference     string            `json:"reference" binding:"max=100"`
	Notes         string            `json:"notes" binding:"max=2000"`
}

// AllocationCheckRequest is a dry run of the payment ceiling rule
type AllocationCheckRequest struct {
	Year   int             `json:"year" binding:"required,min=2000,max=2100"`
	Amount decimal.Decimal `json:"amount"`
}

// TransactionResponse represents a booked payment transaction
type TransactionResponse struct {
	ID            uuid.UUID          `json:"id"`
	Amount        valueobject.Amount `json:"amount"`
	PaymentDate   valueobject.Date   `json:"payment_date"`
	PaymentMethod string             `json:"payment_method"`
	Reference     string             `json:"reference"`
	Notes         string             `json:"notes"`
	CreatedBy     uuid.UUID          `json:"created_by"`
	CreatedByName string             `json:"created_by_name"`
	CreatedAt     time.Time          `json:"created_at"`
}

// MonthlyPaymentResponse represents one payment slot
type MonthlyPaymentResponse struct {
	ID           uuid.UUID             `json:"id"`
	Month        int                   `json:"month"`
	MonthName    string                `json:"month_name"`
	AmountDue    valueobject.Amount    `json:"amount_due"`
	AmountPaid   valueobject.Amount    `json:"amount_paid"`
	Balance      valueobject.Amount    `json:"balance"`
	IsPaid       bool                  `json:"is_paid"`
	PaymentDate  *valueobject.Date     `json:"payment_date"`
	Notes        string                `json:"notes"`
	Transactions []TransactionResponse `json:"transactions"`
}

// FinanceResponse represents a client's fiscal year
type FinanceResponse struct {
	ID              uuid.UUID                `json:"id"`
	ClientID        uuid.UUID                `json:"client"`
	Year            int                      `json:"year"`
	AnnualFee       valueobject.Amount       `json:"annual_fee"`
	MonthlyFee      valueobject.Amount       `json:"monthly_fee"`
	TotalDue        valueobject.Amount       `json:"total_due"`
	TotalPaid       valueobject.Amount       `json:"total_paid"`
	TotalBalance    valueobject.Amount       `json:"total_balance"`
	MonthlyPayments []MonthlyPaymentResponse `json:"monthly_payments"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// SummaryResponse holds the headline figures of a fiscal year
type SummaryResponse struct {
	Year              int                `json:"year"`
	TotalAnnualFee    valueobject.Amount `json:"total_annual_fee"`
	MonthlyFee        valueobject.Amount `json:"monthly_fee"`
	TotalDue          valueobject.Amount `json:"total_due"`
	TotalPaid         valueobject.Amount `json:"total_paid"`
	TotalBalance      valueobject.Amount `json:"total_balance"`
	PaymentsCompleted int                `json:"payments_completed"`
	PaymentsPending   int                `json:"payments_pending"`
}

// AvailableYearsResponse lists the fiscal years opened for a client
type AvailableYearsResponse struct {
	ClientName     string `json:"client_name"`
	AvailableYears []int  `json:"available_years"`
	CurrentYear    int    `json:"current_year"`
}

// AllocationResponse is the outcome of the payment ceiling rule
type AllocationResponse struct {
	TotalAnnualAmount valueobject.Amount `json:"total_annual_amount"`
	TotalPaidThisYear valueobject.Amount `json:"total_paid_this_year"`
	MaxAllowed        valueobject.Amount `json:"max_allowed"`
	Amount            valueobject.Amount `json:"amount"`
	Accepted          bool               `json:"accepted"`
}

// PaymentRecordedResponse is returned after booking a transaction
type PaymentRecordedResponse struct {
	Transaction    TransactionResponse    `json:"transaction"`
	MonthlyPayment MonthlyPaymentResponse `json:"monthly_payment"`
}

// ToTransactionResponse converts a domain PaymentTransaction
func ToTransactionResponse(tx finance.PaymentTransaction) TransactionResponse {
	return TransactionResponse{
		ID:            tx.ID,
		Amount:        valueobject.NewAmount(tx.Amount),
		PaymentDate:   valueobject.NewDate(tx.PaymentDate),
		PaymentMethod: tx.PaymentMethod,
		Reference:     tx.Reference,
		Notes:         tx.Notes,
		CreatedBy:     tx.CreatedBy,
		CreatedByName: tx.CreatedByName,
		CreatedAt:     tx.CreatedAt,
	}
}

// ToMonthlyPaymentResponse converts a domain MonthlyPayment
func ToMonthlyPaymentResponse(p *finance.MonthlyPayment) MonthlyPaymentResponse {
	resp := MonthlyPaymentResponse{
		ID:           p.ID,
		Month:        p.Month.Int(),
		MonthName:    p.Month.Name(),
		AmountDue:    valueobject.NewAmount(p.AmountDue),
		AmountPaid:   valueobject.NewAmount(p.AmountPaid),
		Balance:      valueobject.NewAmount(p.Balance),
		IsPaid:       p.IsPaid,
		PaymentDate:  valueobject.DatePtr(p.PaymentDate),
		Notes:        p.Notes,
		Transactions: make([]TransactionResponse, len(p.Transactions)),
	}
	for i, tx := range p.Transactions {
		resp.Transactions[i] = ToTransactionResponse(tx)
	}
	return resp
}

// ToFinanceResponse converts a domain ClientFinance
func ToFinanceResponse(f *finance.ClientFinance) FinanceResponse {
	resp := FinanceResponse{
		ID:              f.ID,
		ClientID:        f.ClientID,
		Year:            f.Year,
		AnnualFee:       valueobject.NewAmount(f.AnnualFee),
		MonthlyFee:      valueobject.NewAmount(f.MonthlyFee),
		TotalDue:        valueobject.NewAmount(f.TotalDue()),
		TotalPaid:       valueobject.NewAmount(f.TotalPaid()),
		TotalBalance:    valueobject.NewAmount(f.TotalBalance()),
		MonthlyPayments: make([]MonthlyPaymentResponse, len(f.Payments)),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
	for i, p := range f.Payments {
		resp.MonthlyPayments[i] = ToMonthlyPaymentResponse(p)
	}
	return resp
}

// ToSummaryResponse converts a domain Summary
func ToSummaryResponse(s finance.Summary) SummaryResponse {
	return SummaryResponse{
		Year:              s.Year,
		TotalAnnualFee:    valueobject.NewAmount(s.TotalAnnualFee),
		MonthlyFee:        valueobject.NewAmount(s.MonthlyFee),
		TotalDue:          valueobject.NewAmount(s.TotalDue),
		TotalPaid:         valueobject.NewAmount(s.TotalPaid),
		TotalBalance:      valueobject.NewAmount(s.TotalBalance),
		PaymentsCompleted: s.PaymentsCompleted,
		PaymentsPending:   s.PaymentsPending,
	}
}

// ToAllocationResponse converts an AllocationResult
func ToAllocationResponse(r finance.AllocationResult) AllocationResponse {
	return AllocationResponse{
		TotalAnnualAmount: valueobject.NewAmount(r.TotalAnnual),
		TotalPaidThisYear: valueobject.NewAmount(r.TotalPaid),
		MaxAllowed:        valueobject.NewAmount(r.MaxAllowed),
		Amount:            valueobject.NewAmount(r.Amount),
		Accepted:          r.Accepted,
	}
}

// CollectionRequest creates or replaces a collection record
type CollectionRequest struct {
	MonthlyPaymentID *uuid.UUID        `json:"monthly_payment"`
	Status           string            `json:"status" binding:"omitempty,oneof=pending contacted promised paid unreachable"`
	ContactDate      *valueobject.Date `json:"contact_date"`
	ContactMethod    string            `json:"contact_method" binding:"required,oneof=phone email whatsapp visit other"`
	Notes            string            `json:"notes" binding:"max=2000"`
	NextContactDate  *valueobject.Date `json:"next_contact_date"`
}

// UpdateCollectionRequest is a partial update of a collection record
type UpdateCollectionRequest struct {
	MonthlyPaymentID *uuid.UUID        `json:"monthly_payment"`
	Status           *string           `json:"status" binding:"omitempty,oneof=pending contacted promised paid unreachable"`
	ContactDate      *valueobject.Date `json:"contact_date"`
	ContactMethod    *string           `json:"contact_method" binding:"omitempty,oneof=phone email whatsapp visit other"`
	Notes            *string           `json:"notes" binding:"omitempty,max=2000"`
	NextContactDate  *valueobject.Date `json:"next_contact_date"`
}

// CollectionListFilter represents list query parameters
type CollectionListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending contacted promised paid unreachable"`
	Search   string `form:"search"`
	Ordering string `form:"ordering" binding:"omitempty,oneof=contact_date -contact_date created_at -created_at"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// CollectionResponse represents a collection record in API responses
type CollectionResponse struct {
	ID               uuid.UUID         `json:"id"`
	ClientID         uuid.UUID         `json:"client"`
	MonthlyPaymentID *uuid.UUID        `json:"monthly_payment"`
	Status           string            `json:"status"`
	ContactDate      valueobject.Date  `json:"contact_date"`
	ContactMethod    string            `json:"contact_method"`
	Notes            string            `json:"notes"`
	NextContactDate  *valueobject.Date `json:"next_contact_date"`
	CreatedBy        uuid.UUID         `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ToCollectionResponse converts a domain CollectionRecord
func ToCollectionResponse(r *finance.CollectionRecord) CollectionResponse {
	return CollectionResponse{
		ID:               r.ID,
		ClientID:         r.ClientID,
		MonthlyPaymentID: r.MonthlyPaymentID,
		Status:           string(r.Status),
		ContactDate:      valueobject.NewDate(r.ContactDate),
		ContactMethod:    string(r.ContactMethod),
		Notes:            r.Notes,
		NextContactDate:  valueobject.DatePtr(r.NextContactDate),
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
