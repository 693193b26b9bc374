// Package aggregate derives read-only dashboard figures from a ledger snapshot.
//
// Every function is pure: the reference instant is a parameter and the system
// clock is never read. All of them return the identity result on an empty ledger.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core"
)

// KindFilter selects which rows a sum includes. The zero value counts expenses only.
type KindFilter int

const (
	ExpenseOnly KindFilter = iota
	IncomeOnly
	AllKinds
)

func ParseKindFilter(s string) (KindFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "expense", "expenses":
		return ExpenseOnly, nil
	case "income":
		return IncomeOnly, nil
	case "all":
		return AllKinds, nil
	default:
		return ExpenseOnly, fmt.Errorf("unknown kind filter %q", s)
	}
}

func (f KindFilter) String() string {
	switch f {
	case IncomeOnly:
		return "income"
	case AllKinds:
		return "all"
	default:
		return "expense"
	}
}

// Matches reports whether a row of kind k is included. An empty kind is an expense.
func (f KindFilter) Matches(k core.Kind) bool {
	switch f {
	case AllKinds:
		return true
	case IncomeOnly:
		return k.IsIncome()
	default:
		return !k.IsIncome()
	}
}

func sum(l core.Ledger, f KindFilter, keep func(core.Transaction) bool) decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.Transactions {
		if f.Matches(t.Kind) && keep(t) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// TotalForDay sums amounts of rows whose date falls on day's calendar day.
func TotalForDay(l core.Ledger, day time.Time, f KindFilter) decimal.Decimal {
	return sum(l, f, func(t core.Transaction) bool {
		return core.SameDay(t.OccurredAt, day)
	})
}

// TotalForMonth sums amounts of rows dated in the given month.
func TotalForMonth(l core.Ledger, year int, month time.Month, f KindFilter) decimal.Decimal {
	return sum(l, f, func(t core.Transaction) bool {
		y, m, _ := t.OccurredAt.Date()
		return y == year && m == month
	})
}

// CategoryBreakdown sums amounts per category. Categories whose sum is not
// positive are left out: they have no share of a total.
func CategoryBreakdown(l core.Ledger, f KindFilter) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, t := range l.Transactions {
		if !f.Matches(t.Kind) {
			continue
		}
		out[t.Category] = out[t.Category].Add(t.Amount)
	}
	for k, v := range out {
		if !v.IsPositive() {
			delete(out, k)
		}
	}
	return out
}

// SortedBreakdown is CategoryBreakdown ordered by amount descending, then name.
func SortedBreakdown(l core.Ledger, f KindFilter) []core.CategoryAmount {
	byCat := CategoryBreakdown(l, f)
	list := make([]core.CategoryAmount, 0, len(byCat))
	for name, amount := range byCat {
		list = append(list, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(list, func(i, j int) bool {
		if c := list[i].Amount.Cmp(list[j].Amount); c != 0 {
			return c > 0
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// BalanceSeries orders rows by date ascending, keeping input order for equal
// dates, and returns the running balance after each row. Income adds, anything
// else subtracts.
func BalanceSeries(l core.Ledger) []core.BalancePoint {
	rows := make([]core.Transaction, len(l.Transactions))
	copy(rows, l.Transactions)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].OccurredAt.Before(rows[j].OccurredAt)
	})

	series := make([]core.BalancePoint, 0, len(rows))
	balance := decimal.Zero
	for _, t := range rows {
		if t.Kind.IsIncome() {
			balance = balance.Add(t.Amount)
		} else {
			balance = balance.Sub(t.Amount)
		}
		series = append(series, core.BalancePoint{OccurredAt: t.OccurredAt, Balance: balance})
	}
	return series
}

// Balance is the final value of BalanceSeries, zero for an empty ledger.
func Balance(l core.Ledger) decimal.Decimal {
	series := BalanceSeries(l)
	if len(series) == 0 {
		return decimal.Zero
	}
	return series[len(series)-1].Balance
}

// Recent returns rows in display order: newest first, input order kept for equal
// dates reversed so the latest entry of a day comes first. limit <= 0 means all.
func Recent(l core.Ledger, limit int) []core.Transaction {
	rows := make([]core.Transaction, len(l.Transactions))
	for i, t := range l.Transactions {
		rows[len(rows)-1-i] = t
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].OccurredAt.After(rows[j].OccurredAt)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// Overview gathers the figures a dashboard shows for the instant now.
func Overview(l core.Ledger, now time.Time, f KindFilter) core.Overview {
	return core.Overview{
		Account:    l.Account,
		Now:        now,
		Today:      TotalForDay(l, now, f),
		Month:      TotalForMonth(l, now.Year(), now.Month(), f),
		Balance:    Balance(l),
		Rows:       l.Len(),
		ByCategory: SortedBreakdown(l, f),
	}
}
