package valueobject

import (
	"fmt"
	"time"
)

// Month is a slot of the fiscal year. 1..12 are calendar months and 13 is the
// annual declaration slot.
type Month int

const (
	January Month = iota + 1
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
	AnnualDeclaration
)

// MonthsPerFiscalYear is the number of slots generated for every fiscal year
const MonthsPerFiscalYear = 13

var monthNames = [...]string{
	"", "Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio", "Julio",
	"Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre", "DJ Anual",
}

// NewMonth validates m
func NewMonth(m int) (Month, error) {
	month := Month(m)
	if !month.IsValid() {
		return 0, fmt.Errorf("month must be between 1 and %d, got %d", MonthsPerFiscalYear, m)
	}
	return month, nil
}

// AllMonths returns the fiscal year slots in order
func AllMonths() []Month {
	months := make([]Month, 0, MonthsPerFiscalYear)
	for m := January; m <= AnnualDeclaration; m++ {
		months = append(months, m)
	}
	return months
}

func (m Month) IsValid() bool {
	return m >= January && m <= AnnualDeclaration
}

// IsAnnual reports whether m is the annual declaration slot
func (m Month) IsAnnual() bool {
	return m == AnnualDeclaration
}

// Name returns the Spanish display name
func (m Month) Name() string {
	if !m.IsValid() {
		return fmt.Sprintf("Mes %d", int(m))
	}
	return monthNames[m]
}

func (m Month) Int() int { return int(m) }

// Previous returns the preceding calendar month. January and the annual slot
// have no predecessor.
func (m Month) Previous() (Month, bool) {
	if m <= January || m >= AnnualDeclaration {
		return 0, false
	}
	return m - 1, true
}

// IsOverdueAt reports whether the slot of fiscal year year is past due at now.
// In the current year only calendar months strictly before the current month
// are overdue, and the annual slot is not. The rule is extended to closed
// years: once the year is over every slot of it is overdue, DJ Anual
// included, so a multi-year dashboard keeps reporting unpaid balances of
// past years. Future years are never overdue.
func (m Month) IsOverdueAt(year int, now time.Time) bool {
	if !m.IsValid() {
		return false
	}
	switch {
	case year < now.Year():
		return true
	case year == now.Year():
		return !m.IsAnnual() && int(m) < int(now.Month())
	default:
		return false
	}
}
