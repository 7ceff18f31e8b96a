package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency is an ISO 4217 code
type Currency string

const (
	PEN Currency = "PEN"
	USD Currency = "USD"
)

// DefaultCurrency is the currency every fee and payment is booked in
const DefaultCurrency = PEN

// Symbol returns the display symbol of the currency
func (c Currency) Symbol() string {
	switch c {
	case PEN:
		return "S/"
	case USD:
		return "$"
	default:
		return string(c)
	}
}

// IsValid reports whether the currency is supported
func (c Currency) IsValid() bool {
	return c == PEN || c == USD
}

var (
	// ErrNonFiniteAmount is returned when a numeric input is NaN or infinite
	ErrNonFiniteAmount = errors.New("amount must be a finite number")
	// ErrNegativeAmount is returned when a non-negative amount is required
	ErrNegativeAmount = errors.New("amount cannot be negative")
)

var displayPrinter = message.NewPrinter(language.MustParse("es-PE"))

// Money is an immutable amount in a given currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a Money value
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyPEN creates a Money value in soles
func NewMoneyPEN(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: PEN}
}

// ZeroPEN returns zero soles
func ZeroPEN() Money {
	return Money{amount: decimal.Zero, currency: PEN}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

// Add returns the sum. Currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference. Currencies must match.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Round returns a new Money rounded to the given places
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.currency}
}

// Equals returns true if amount and currency match
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String returns "123.45 PEN"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// Format renders the amount for display, e.g. "S/ 1,250.00"
func (m Money) Format() string {
	return m.currency.Symbol() + " " + FormatAmount(m.amount)
}

// FormatAmount renders a decimal with two fraction digits using Peruvian grouping
func FormatAmount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return displayPrinter.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(2),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if v.Currency == "" {
		v.Currency = DefaultCurrency
	}
	m.amount = amount
	m.currency = v.Currency
	return nil
}

// Value implements driver.Valuer; only the amount is stored
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner
func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	m.amount = d
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}

// FiniteDecimal converts a float to a decimal, collapsing NaN and infinities to zero
func FiniteDecimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// ParseAmount parses a user supplied amount. Empty input is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrNonFiniteAmount
	}
	return decimal.NewFromString(s)
}

// ParseNonNegativeAmount is ParseAmount rejecting negative values
func ParseNonNegativeAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return d, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// Amount is a decimal rendered in JSON as a number with two fraction digits
type Amount decimal.Decimal

// NewAmount wraps d
func NewAmount(d decimal.Decimal) Amount { return Amount(d) }

// Decimal returns the underlying decimal
func (a Amount) Decimal() decimal.Decimal { return decimal.Decimal(a) }

// MarshalJSON implements json.Marshaler
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(2)), nil
}

// UnmarshalJSON accepts numbers and numeric strings
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = Amount(d)
	return nil
}
