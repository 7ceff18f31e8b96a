package operational

import (
	"errors"
	"testing"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newControl(t *testing.T) *OperationalControl {
	t.Helper()
	c, err := NewOperationalControl(uuid.New(), 2024)
	require.NoError(t, err)
	c.PullDomainEvents()
	return c
}

func TestNewOperationalControl(t *testing.T) {
	clientID := uuid.New()
	c, err := NewOperationalControl(clientID, 2024)
	require.NoError(t, err)

	require.Len(t, c.Declarations, valueobject.MonthsPerFiscalYear)
	assert.Equal(t, valueobject.AnnualDeclaration, c.Declarations[12].Month)
	assert.Equal(t, 13, c.PendingDeclarations())

	events := c.GetDomainEvents()
	require.Len(t, events, 1)
	opened, ok := events[0].(*ControlOpenedEvent)
	require.True(t, ok)
	assert.Equal(t, clientID, opened.ClientID)
	year, ok := YearOf(opened)
	assert.True(t, ok)
	assert.Equal(t, 2024, year)

	for _, year := range []int{1999, 2101} {
		_, err := NewOperationalControl(clientID, year)
		var verr *shared.ValidationError
		require.True(t, errors.As(err, &verr), "year %d", year)
		assert.Contains(t, verr.Fields, "year")
	}
}

func TestOperationalControl_SetPresentationDate(t *testing.T) {
	c := newControl(t)
	date := time.Date(2024, 4, 12, 15, 30, 0, 0, time.UTC)

	d, err := c.SetPresentationDate(valueobject.March, &date)
	require.NoError(t, err)
	require.NotNil(t, d.PresentationDate)
	assert.Equal(t, time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC), *d.PresentationDate)

	d, err = c.SetPresentationDate(valueobject.March, nil)
	require.NoError(t, err)
	assert.NotNil(t, d.PresentationDate, "nil date leaves the slot unchanged")

	_, err = c.SetPresentationDate(valueobject.Month(0), &date)
	assert.Error(t, err)
}

func TestOperationalControl_TaxDeclarations(t *testing.T) {
	c := newControl(t)
	march := c.DeclarationByMonth(valueobject.March)
	actor := uuid.New()

	td, err := c.FileTaxDeclaration(march.ID, TaxInput{PDTType: PDT621, OrderNumber: "8700123"}, actor)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, td.Status)
	assert.Equal(t, 12, c.PendingDeclarations())
	assert.Len(t, c.GetDomainEvents(), 1)

	accepted := StatusAccepted
	td, err = c.UpdateTaxDeclaration(march.ID, td.ID, TaxPatch{Status: &accepted})
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, td.Status)
	assert.Equal(t, "8700123", td.OrderNumber)

	_, err = c.FileTaxDeclaration(march.ID, TaxInput{PDTType: PDTOther}, actor)
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "pdt_type")

	c.PullDomainEvents()
	_, err = c.RemoveTaxDeclaration(march.ID, td.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, c.PendingDeclarations())
	events := c.GetDomainEvents()
	require.Len(t, events, 1)
	removed, ok := events[0].(*TaxDeclarationRemovedEvent)
	require.True(t, ok)
	assert.Equal(t, td.ID, removed.TaxDeclarationID)
	assert.Equal(t, 3, removed.Month)

	_, err = c.RemoveTaxDeclaration(march.ID, td.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOperationalControl_AdditionalPDTs(t *testing.T) {
	c := newControl(t)

	_, err := c.AddAdditionalPDT(AdditionalInput{PDTType: PDTOther}, uuid.New())
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "pdt_name")

	a, err := c.AddAdditionalPDT(AdditionalInput{PDTType: PDTOther, PDTName: " Rectificatoria "}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "Rectificatoria", a.DisplayName())

	t710 := PDT710
	a, err = c.UpdateAdditionalPDT(a.ID, AdditionalPatch{PDTType: &t710})
	require.NoError(t, err)
	assert.Equal(t, "PDT 710", a.DisplayName())

	_, err = c.RemoveAdditionalPDT(a.ID)
	require.NoError(t, err)
	assert.Empty(t, c.AdditionalPDTs)
}
