package persistence

import (
	"context"
	"testing"

	"github.com/estudiomd/backoffice/internal/domain/identity"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUserRepository(t *testing.T) {
	repo := NewGormUserRepository(newSQLiteDB(t))
	ctx := context.Background()

	u := &identity.User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             "contadora@estudio.pe",
		FullName:          "María Quispe",
		Role:              identity.RoleWorker,
		PasswordHash:      "$2a$04$placeholder",
		Active:            true,
	}
	require.NoError(t, repo.Save(ctx, u))

	got, err := repo.FindByEmail(ctx, "  Contadora@Estudio.pe ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, identity.RoleWorker, got.Role)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	names, err := repo.NamesByIDs(ctx, []uuid.UUID{u.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]string{u.ID: "María Quispe"}, names)

	empty, err := repo.NamesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
