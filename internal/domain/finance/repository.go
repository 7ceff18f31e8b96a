package finance

import (
	"context"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// ClientFinanceRepository defines the interface for fiscal year finance persistence
type ClientFinanceRepository interface {
	// FindByClientAndYear loads the aggregate with payments and transactions.
	// Returns shared.ErrNotFound when the year was never opened.
	FindByClientAndYear(ctx context.Context, clientID uuid.UUID, year int) (*ClientFinance, error)

	// FindByPayment loads the aggregate owning the payment slot of a client
	FindByPayment(ctx context.Context, clientID, paymentID uuid.UUID) (*ClientFinance, error)

	// Save inserts a new aggregate or persists fee and slot changes of an
	// existing one. Transactions are append-only and stored by UpdateLocked.
	Save(ctx context.Context, f *ClientFinance) error

	// UpdateLocked loads the aggregate under a row lock inside one database
	// transaction, runs fn and persists the result with a version check.
	// fn returning an error rolls everything back.
	UpdateLocked(ctx context.Context, financeID uuid.UUID, fn func(f *ClientFinance) error) (*ClientFinance, error)

	// ListYears returns the fiscal years opened for a client
	ListYears(ctx context.Context, clientID uuid.UUID) ([]int, error)
}

// CollectionFilter narrows collection record listings
type CollectionFilter struct {
	shared.Filter
	ClientID uuid.UUID
	Status   CollectionStatus
}

// CollectionRecordRepository defines the interface for collection record persistence
type CollectionRecordRepository interface {
	FindByID(ctx context.Context, clientID, id uuid.UUID) (*CollectionRecord, error)
	FindAll(ctx context.Context, filter CollectionFilter) ([]CollectionRecord, error)
	Count(ctx context.Context, filter CollectionFilter) (int64, error)
	Save(ctx context.Context, r *CollectionRecord) error
	Delete(ctx context.Context, clientID, id uuid.UUID) error
}
