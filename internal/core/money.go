// Package core holds the domain model of the finance tracker.
//
// This file contains money parsing and formatting. Amounts travel as decimal
// strings on the wire and are stored as integer paise internally.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal rupee string to paise with half-up rounding
// on the third decimal place. Both dot and comma decimal separators are
// accepted. Non-positive amounts are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234, nil
//	ParseAmount("12,345") -> 1235, nil (rounds up)
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if cents.Exponent() < 0 || !cents.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return cents.BigInt().Int64(), nil
}

// ParseNonNegativeAmount is ParseAmount but permits zero, for optional
// fields such as other income.
func ParseNonNegativeAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	return ParseAmount(s)
}

// Rupees returns the rupee value as float64, for wire encoding only.
// Calculations stay in paise.
func (m Money) Rupees() float64 {
	return float64(m.Cents) / 100.0
}

// FromRupees converts a rupee float to Money with half-up rounding.
func FromRupees(r float64) Money {
	cents := decimal.NewFromFloat(r).Mul(hundred).Round(0)
	return Money{Cents: cents.IntPart()}
}

// String formats the amount as "₹1234.56". Negative amounts carry a
// leading minus before the currency symbol.
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("₹%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// DecimalString renders the amount as a plain decimal ("1234.56"), the form
// used in exported reports and spreadsheet rows.
func (m Money) DecimalString() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}
