// Package core holds the travel-agency domain types.
//
// This file contains monetary parsing, formatting and exchange-rate handling.
// Amounts are stored as integer cents; currency metadata and display formatting
// come from go-money, and exchange-rate arithmetic uses exact decimals.
package core

import (
	"strconv"
	"strings"
	"unicode"

	money "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is an amount in integer cents of a given ISO 4217 currency.
type Money struct {
	Cents    int64
	Currency string
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Display renders the amount with its currency symbol (e.g. "$1,234.50").
// Falls back to USD formatting rules when the currency code is unknown.
func (m Money) Display() string {
	cur := m.Currency
	if money.GetCurrency(cur) == nil {
		cur = money.USD
	}
	return money.New(m.Cents, cur).Display()
}

// Abs returns the amount with a non-negative cent value.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents, Currency: m.Currency}
	}
	return m
}

// ParseDecimalToCents converts a decimal string to cents with half-up rounding
// on the third decimal place. It accepts both dot (12.34) and comma (12,34)
// separators. Returns an error for invalid formats, negative values, or zero.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take the first two fractional digits, then half-up rounding on the third
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ExchangeRate converts a treasury currency into the agency default currency.
// The zero value behaves as a 1:1 rate.
type ExchangeRate struct {
	value decimal.Decimal
}

// ParseRate parses a decimal exchange-rate string such as "48.75".
func ParseRate(s string) (ExchangeRate, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	d, err := decimal.NewFromString(s)
	if err != nil || d.Sign() <= 0 {
		return ExchangeRate{}, ErrInvalidAmount
	}
	return ExchangeRate{value: d}, nil
}

// NewRate builds an exchange rate from a float, for seed values and tests.
func NewRate(f float64) ExchangeRate {
	return ExchangeRate{value: decimal.NewFromFloat(f)}
}

// IsZero reports whether the rate is unset.
func (r ExchangeRate) IsZero() bool { return r.value.IsZero() }

// String renders the rate in full precision; the unset rate renders as "1".
func (r ExchangeRate) String() string {
	if r.value.IsZero() {
		return "1"
	}
	return r.value.String()
}

// Convert applies the rate to an amount, rounding half-up to whole cents,
// and denominates the result in the target currency.
func (r ExchangeRate) Convert(m Money, targetCurrency string) Money {
	if r.value.IsZero() {
		return Money{Cents: m.Cents, Currency: targetCurrency}
	}
	cents := decimal.NewFromInt(m.Cents).Mul(r.value).Round(0).IntPart()
	return Money{Cents: cents, Currency: targetCurrency}
}

// ConvertBack divides an amount in the default currency by the rate, yielding
// the rate's own currency. Used for the receiving leg of treasury transfers.
func (r ExchangeRate) ConvertBack(m Money, targetCurrency string) Money {
	if r.value.IsZero() {
		return Money{Cents: m.Cents, Currency: targetCurrency}
	}
	cents := decimal.NewFromInt(m.Cents).Div(r.value).Round(0).IntPart()
	return Money{Cents: cents, Currency: targetCurrency}
}
