// Package core holds the lending domain model shared by the reporting
// engine, storage and HTTP layers.
//
// This file contains parsing helpers for monetary amounts received as
// strings from the API and from storage columns.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns an error for invalid formats or negative values; zero is valid,
// since ledger entries may legitimately carry a zero profit portion.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrNegativeAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNegativeAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// ClampZero floors a value at zero. Bad-debt intermediates are never allowed
// to go negative before propagating.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
