// Package core provides the ledger's value types: dates, month keys,
// records, transactions, occurrences and overrides.
//
// This file contains amount parsing. Amounts are decimals with cent
// precision; the sign is meaningful (expenses negative, incomes positive).
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// centPlaces is the precision amounts are rounded to on input.
const centPlaces = 2

// ParseAmount converts a user-entered decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign, and rounds half away from zero to cents. Zero is
// rejected; callers that need a zero amount build it directly.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("-12,34") -> -12.34
//	ParseAmount("12.345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 || len(parts) == 2 && parts[1] == "" || parts[0] == "" && len(parts) == 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}

	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(centPlaces)
	if d.IsZero() {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two decimals, e.g. "-12.30".
// Locale-aware display formatting belongs to the caller.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(centPlaces)
}

// SumAmounts adds amounts exactly.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, amounts...)
}
