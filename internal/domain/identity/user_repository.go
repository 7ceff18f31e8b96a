package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail matches case-insensitively
	FindByEmail(ctx context.Context, email string) (*User, error)

	Save(ctx context.Context, u *User) error

	// NamesByIDs resolves display names; unknown ids are absent from the result
	NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}
