package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an immutable non-negative amount in a specific currency.
// The amount is kept at the currency's ISO 4217 fractional-digit scale;
// inputs with more digits are rescaled half-up on construction.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney creates a Money value, rescaling the amount to the currency's
// default fraction digits.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if err := ValidateCurrency(currency); err != nil {
		return Money{}, err
	}

	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: amount %s is negative", ErrInvalidAmount, amount)
	}

	return Money{
		amount:   amount.Round(CurrencyFractionDigits(currency)),
		currency: currency,
	}, nil
}

// MustMoney is NewMoney that panics on invalid input. For fixtures and
// tests only.
func MustMoney(amount decimal.Decimal, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}

	return m
}

// ZeroMoney returns a zero amount in the given currency.
func ZeroMoney(currency string) Money {
	return Money{
		amount:   decimal.Zero,
		currency: currency,
	}
}

// Amount returns the decimal amount at currency scale.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the ISO 4217 currency code.
func (m Money) Currency() string {
	return m.currency
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}

	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns m - other. A negative result is rejected.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}

	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeResult, m, other)
	}

	return Money{amount: result, currency: m.currency}, nil
}

// Multiply returns m scaled by factor, rounded half-up to currency scale.
func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	result := m.amount.Mul(factor)
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s * %s", ErrNegativeResult, m, factor)
	}

	return Money{amount: result.Round(CurrencyFractionDigits(m.currency)), currency: m.currency}, nil
}

// Cmp compares two amounts of the same currency: -1, 0 or +1.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return 0, err
	}

	return m.amount.Cmp(other.amount), nil
}

// Equal reports whether both currency and scaled amount match.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive reports whether the amount is strictly positive.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// String renders the amount with its currency code, e.g. "100.00 BRL".
func (m Money) String() string {
	return m.amount.StringFixed(CurrencyFractionDigits(m.currency)) + " " + m.currency
}

func (m Money) assertSameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}

	return nil
}
