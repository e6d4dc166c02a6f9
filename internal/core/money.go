// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts as they appear in
// delivery-app exports and converting between cents and decimal representations.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount bounds a single parsed value. Aggregates still use checked
// addition since a file may hold many rows at the bound.
var maxAmount = decimal.New(1, 9)

// ParseAmount converts an exported amount string to Money with half-up rounding.
//
// It accepts dot or comma decimal separators, optional thousands separators,
// a currency prefix and a leading minus sign (refunds). Values that are not
// numbers return ErrInvalidAmount so callers can treat them as missing.
//
// Examples:
//
//	ParseAmount("12.34")      -> 1234
//	ParseAmount("12,34")      -> 1234
//	ParseAmount("R$ 1.234,56") -> 123456
//	ParseAmount("1,234.56")   -> 123456
//	ParseAmount("12.345")     -> 1235 (rounds half up)
//	ParseAmount("N/A")        -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = normalizeAmount(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", strings.TrimSpace(s[1:])
	}
	for _, prefix := range []string{"R$", "US$", "$", "€"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return ""
	}
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		dec, group := byte('.'), byte(',')
		if lastComma > lastDot {
			dec, group = ',', '.'
		}
		i := strings.LastIndexByte(s, dec)
		intPart, frac := s[:i], s[i+1:]
		if strings.IndexByte(intPart, dec) >= 0 || !isGrouped(intPart, group) {
			return ""
		}
		s = strings.ReplaceAll(intPart, string(group), "") + "." + frac
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			if !isGrouped(s, ',') {
				return ""
			}
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			if !isGrouped(s, '.') {
				return ""
			}
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	s = sign + s
	// decimal accepts exponents; exports never use them and "1e5" should not pass as money.
	if strings.ContainsAny(s, "eE") {
		return ""
	}
	return s
}

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the value for display and charting.
// Note: use cents for calculations to avoid floating-point drift.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes Money as a raw JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return ErrInvalidAmount
	}
	m.Cents = d.Round(2).Shift(2).IntPart()
	return nil
}

// isGrouped reports whether s is an integer written with sep every three
// digits, such as 1.234.567.
func isGrouped(s string, sep byte) bool {
	groups := strings.Split(s, string(sep))
	if len(groups[0]) < 1 || len(groups[0]) > 3 || !allDigits(groups[0]) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
