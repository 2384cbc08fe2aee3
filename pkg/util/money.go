package util

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount cannot be represented in minor units")

// Currencies the payment provider charges without a fractional part.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

func currencyExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// ToMinorUnits converts an exact amount into the smallest currency unit (cents for usd).
// Amounts with more precision than the currency allows are rejected rather than rounded.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if amount.IsNegative() {
		return 0, ErrInvalidAmount
	}
	minor := amount.Shift(currencyExponent(currency))
	if !minor.IsInteger() || minor.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -currencyExponent(currency))
}
