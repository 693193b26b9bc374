package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// BalancePoint is one step of the cumulative balance series.
type BalancePoint struct {
	OccurredAt time.Time
	Balance    decimal.Decimal
}

// Overview is the set of figures a dashboard renders for one reference instant.
type Overview struct {
	Account    string
	Now        time.Time
	Today      decimal.Decimal
	Month      decimal.Decimal
	Balance    decimal.Decimal
	Rows       int
	ByCategory []CategoryAmount
}
