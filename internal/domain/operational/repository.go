package operational

import (
	"context"

	"github.com/google/uuid"
)

// OperationalControlRepository defines the interface for operational control persistence
type OperationalControlRepository interface {
	// FindByClientAndYear loads the control with declarations, filings and
	// additional PDTs. Returns shared.ErrNotFound when absent.
	FindByClientAndYear(ctx context.Context, clientID uuid.UUID, year int) (*OperationalControl, error)

	// FindByDeclaration loads the control owning a monthly declaration of the client
	FindByDeclaration(ctx context.Context, clientID, declarationID uuid.UUID) (*OperationalControl, error)

	// FindByAdditionalPDT loads the control owning an additional PDT of the client
	FindByAdditionalPDT(ctx context.Context, clientID, pdtID uuid.UUID) (*OperationalControl, error)

	// Save upserts the control and synchronizes its children. Filings and
	// additional PDTs no longer present on the aggregate are deleted.
	Save(ctx context.Context, c *OperationalControl) error

	// ListYears returns the fiscal years opened for a client
	ListYears(ctx context.Context, clientID uuid.UUID) ([]int, error)
}
