package finance

import (
	"math"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Calendar months billed at the monthly fee
const billedMonths = 12

// Error codes raised by the payment ceiling rule
const (
	CodePaymentExceedsAnnual = "PAYMENT_EXCEEDS_ANNUAL_TOTAL"
	CodeInvalidAmount        = "INVALID_AMOUNT"
)

// AllocationResult is the outcome of checking a proposed payment against the
// contracted yearly obligation
type AllocationResult struct {
	TotalAnnual decimal.Decimal `json:"total_annual_amount"`
	TotalPaid   decimal.Decimal `json:"total_paid_this_year"`
	MaxAllowed  decimal.Decimal `json:"max_allowed"`
	Amount      decimal.Decimal `json:"amount"`
	Accepted    bool            `json:"accepted"`
}

// TotalAnnualAmount is monthlyFee*12 + annualFee
func TotalAnnualAmount(monthlyFee, annualFee decimal.Decimal) decimal.Decimal {
	return monthlyFee.Mul(decimal.NewFromInt(billedMonths)).Add(annualFee)
}

// Allocate decides whether amount can be booked given what was already paid in
// the fiscal year. It accepts iff 0 < amount <= max_allowed.
func Allocate(monthlyFee, annualFee decimal.Decimal, paid []decimal.Decimal, amount decimal.Decimal) AllocationResult {
	total := TotalAnnualAmount(monthlyFee, annualFee)
	sum := decimal.Zero
	for _, p := range paid {
		sum = sum.Add(p)
	}
	maxAllowed := total.Sub(sum)
	return AllocationResult{
		TotalAnnual: total,
		TotalPaid:   sum,
		MaxAllowed:  maxAllowed,
		Amount:      amount,
		Accepted:    amount.IsPositive() && amount.LessThanOrEqual(maxAllowed),
	}
}

// AllocateFloat is the entry point for loosely typed inputs. Non-finite paid
// values count as zero. Non-finite or negative fees and a non-finite amount are
// input errors.
func AllocateFloat(monthlyFee, annualFee float64, paid []float64, amount float64) (AllocationResult, error) {
	verr := shared.NewValidationError()
	checkFee := func(field string, v float64) {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			verr.Add(field, "A valid number is required.")
		case v < 0:
			verr.Add(field, "Ensure this value is greater than or equal to 0.")
		}
	}
	checkFee("monthly_fee", monthlyFee)
	checkFee("annual_fee", annualFee)
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		verr.Add("amount", "A valid number is required.")
	}
	if err := verr.Err(); err != nil {
		return AllocationResult{}, err
	}

	ds := make([]decimal.Decimal, len(paid))
	for i, p := range paid {
		ds[i] = valueobject.FiniteDecimal(p)
	}
	return Allocate(decimal.NewFromFloat(monthlyFee), decimal.NewFromFloat(annualFee), ds, decimal.NewFromFloat(amount)), nil
}

// Err converts a rejected result into a field-keyed error on "amount" that
// carries the three quantities. Accepted results return nil.
func (r AllocationResult) Err() error {
	if r.Accepted {
		return nil
	}
	if !r.Amount.IsPositive() {
		return shared.NewFieldError("amount", "El monto debe ser mayor a 0.").WithCode(CodeInvalidAmount)
	}
	return shared.NewFieldError("amount",
		"No se puede pagar más del monto anual total. "+
			"Monto anual: "+valueobject.NewMoneyPEN(r.TotalAnnual).Format()+", "+
			"Total pagado: "+valueobject.NewMoneyPEN(r.TotalPaid).Format()+", "+
			"Máximo permitido: "+valueobject.NewMoneyPEN(decimal.Max(r.MaxAllowed, decimal.Zero)).Format()+".",
	).WithCode(CodePaymentExceedsAnnual)
}
