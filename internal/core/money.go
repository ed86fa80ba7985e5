// Package core holds the commissions domain: transaction and setup records,
// the grouping and amortization engine, and the filter/summary layer over the
// generated schedule.
//
// This file contains amount parsing. Amounts arrive either as numbers or as
// formatted currency strings ("$1,234.50"); every layer that reads an amount
// string goes through ParseAmount so rounding never diverges between the
// calculation and aggregation sides.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a currency string to a decimal. Currency symbols,
// thousands separators and surrounding whitespace are stripped before
// parsing.
//
// Examples:
//
//	ParseAmount("1234.5")    -> 1234.5
//	ParseAmount("$1,234.50") -> 1234.5
//	ParseAmount("€ 2000")    -> 2000
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == ',' || unicode.IsSpace(r):
			return -1
		case unicode.IsSymbol(r) || r == '$' || r == '£':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Round2 rounds to two decimal places, half away from zero. For positive
// amounts this is ordinary half-up at the cent; a negative half cent, as in a
// clawback, rounds away from zero too (-0.005 -> -0.01).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
