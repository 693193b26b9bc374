// Package core provides money and date parsing for ledger rows.
//
// Amounts travel as shopspring decimals so sums never pick up float noise;
// dates are calendar dates with an optional time of day.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"

	DateTimeSecondsLayout = "2006-01-02 15:04:05"
)

// Accepted on input, tried in order.
var dateLayouts = []string{
	DateLayout,
	DateTimeLayout,
	DateTimeSecondsLayout,
	time.RFC3339,
}

// ParseAmount converts a decimal string to a non-negative amount rounded to cents.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted, rounding is
// half away from zero on the third decimal place. Zero is legal.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	// decimal accepts exponents; a ledger amount never has one
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ParseDate parses a calendar date with optional time of day. Times without an
// explicit offset are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// FormatDate writes a date, dropping the time of day when it is exactly
// midnight and the seconds when they are zero. Sub-seconds are not kept.
func FormatDate(t time.Time) string {
	h, m, sec := t.Clock()
	switch {
	case h == 0 && m == 0 && sec == 0:
		return t.Format(DateLayout)
	case sec == 0:
		return t.Format(DateTimeLayout)
	default:
		return t.Format(DateTimeSecondsLayout)
	}
}

// SameDay reports whether a and b fall on the same calendar day, each read in its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NewDate creates a new date from year, month, day
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
