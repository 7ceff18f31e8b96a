package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOperationalControlRepository_Sync(t *testing.T) {
	repo := NewGormOperationalControlRepository(newSQLiteDB(t))
	ctx := context.Background()
	clientID := uuid.New()
	actor := uuid.New()

	c, err := operational.NewOperationalControl(clientID, 2024)
	require.NoError(t, err)

	presented := time.Date(2024, 4, 12, 15, 30, 0, 0, time.UTC)
	march, err := c.SetPresentationDate(valueobject.March, &presented)
	require.NoError(t, err)
	filing, err := c.FileTaxDeclaration(march.ID, operational.TaxInput{PDTType: operational.PDT621, OrderNumber: "870001"}, actor)
	require.NoError(t, err)
	other, err := c.AddAdditionalPDT(operational.AdditionalInput{PDTType: operational.PDTOther, PDTName: "Planilla"}, actor)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.FindByClientAndYear(ctx, clientID, 2024)
	require.NoError(t, err)
	require.Len(t, got.Declarations, valueobject.MonthsPerFiscalYear)
	assert.Equal(t, 12, got.PendingDeclarations())

	decl := got.DeclarationByMonth(valueobject.March)
	require.NotNil(t, decl.PresentationDate)
	assert.Equal(t, "2024-04-12", decl.PresentationDate.Format("2006-01-02"))
	require.Len(t, decl.TaxDeclarations, 1)
	assert.Equal(t, operational.StatusPending, decl.TaxDeclarations[0].Status)
	require.Len(t, got.AdditionalPDTs, 1)
	assert.Equal(t, "Planilla", got.AdditionalPDTs[0].DisplayName())

	t.Run("lookups are scoped by client", func(t *testing.T) {
		byDecl, err := repo.FindByDeclaration(ctx, clientID, march.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, byDecl.ID)

		_, err = repo.FindByDeclaration(ctx, uuid.New(), march.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		byPDT, err := repo.FindByAdditionalPDT(ctx, clientID, other.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, byPDT.ID)
	})

	t.Run("removed children are deleted", func(t *testing.T) {
		_, err := got.RemoveTaxDeclaration(march.ID, filing.ID)
		require.NoError(t, err)
		_, err = got.RemoveAdditionalPDT(other.ID)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, got))

		again, err := repo.FindByClientAndYear(ctx, clientID, 2024)
		require.NoError(t, err)
		assert.Empty(t, again.DeclarationByMonth(valueobject.March).TaxDeclarations)
		assert.Empty(t, again.AdditionalPDTs)
	})

	t.Run("years", func(t *testing.T) {
		years, err := repo.ListYears(ctx, clientID)
		require.NoError(t, err)
		assert.Equal(t, []int{2024}, years)
	})
}
