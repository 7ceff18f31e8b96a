package client

import (
	"context"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// Ref is the minimal projection of a client
type Ref struct {
	ID   uuid.UUID
	Name string
}

// ClientRepository defines the interface for client persistence
type ClientRepository interface {
	// FindByID finds a client by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)

	// FindAll lists clients. Search covers name, email, company_name, dni and
	// company_ruc; Filters accepts "city" and "state".
	FindAll(ctx context.Context, filter shared.Filter) ([]Client, error)

	// Count counts clients matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ListRefs returns id and name of every client, newest first
	ListRefs(ctx context.Context) ([]Ref, error)

	// ExistsByEmail checks for another client with the same email.
	// excludeID may be uuid.Nil.
	ExistsByEmail(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)

	// Save creates or updates a client
	Save(ctx context.Context, c *Client) error

	// Delete removes a client and everything that belongs to it
	Delete(ctx context.Context, id uuid.UUID) error
}
