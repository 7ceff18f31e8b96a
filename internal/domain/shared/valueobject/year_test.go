package valueobject

import (
	"errors"
	"testing"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFiscalYear(t *testing.T) {
	assert.NoError(t, ValidateFiscalYear(MinFiscalYear))
	assert.NoError(t, ValidateFiscalYear(MaxFiscalYear))

	for _, year := range []int{MinFiscalYear - 1, MaxFiscalYear + 1, 0} {
		var verr *shared.ValidationError
		require.True(t, errors.As(ValidateFiscalYear(year), &verr), "year %d", year)
		assert.Equal(t, []string{"Year must be between 2000 and 2100."}, verr.Fields["year"])
	}
}
