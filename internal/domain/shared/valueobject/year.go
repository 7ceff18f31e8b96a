package valueobject

import (
	"fmt"

	"github.com/estudiomd/backoffice/internal/domain/shared"
)

// Fiscal years accepted by the service
const (
	MinFiscalYear = 2000
	MaxFiscalYear = 2100
)

// ValidateFiscalYear returns a field error on "year" when year is out of range
func ValidateFiscalYear(year int) error {
	if year < MinFiscalYear || year > MaxFiscalYear {
		return shared.NewFieldError("year", fmt.Sprintf("Year must be between %d and %d.", MinFiscalYear, MaxFiscalYear))
	}
	return nil
}
