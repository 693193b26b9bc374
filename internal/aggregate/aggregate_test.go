package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(date time.Time, kind core.Kind, category, amount string) core.Transaction {
	return core.Transaction{OccurredAt: date, Kind: kind, Category: category, Amount: d(amount)}
}

func sample() core.Ledger {
	return core.Ledger{Account: "u", Transactions: []core.Transaction{
		tx(core.NewDate(2024, 5, 1), core.Income, "salary", "1000"),
		tx(time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), core.Expense, "food", "12.50"),
		tx(core.NewDate(2024, 5, 2), "", "transport", "3"),
		tx(core.NewDate(2024, 4, 30), core.Expense, "food", "20"),
		tx(core.NewDate(2024, 5, 2), core.Expense, "gifts", "0"),
	}}
}

func TestEmptyLedgerIdentity(t *testing.T) {
	var empty core.Ledger
	now := core.NewDate(2024, 5, 1)

	assert.True(t, TotalForDay(empty, now, ExpenseOnly).IsZero())
	for m := time.January; m <= time.December; m++ {
		assert.True(t, TotalForMonth(empty, 2024, m, AllKinds).IsZero())
	}
	assert.Empty(t, CategoryBreakdown(empty, ExpenseOnly))
	assert.Empty(t, BalanceSeries(empty))
	assert.True(t, Balance(empty).IsZero())
	assert.Empty(t, Recent(empty, 10))

	ov := Overview(empty, now, ExpenseOnly)
	assert.True(t, ov.Today.IsZero())
	assert.True(t, ov.Month.IsZero())
	assert.Equal(t, 0, ov.Rows)
}

func TestTotalForDay(t *testing.T) {
	l := sample()
	day := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

	assert.True(t, d("12.50").Equal(TotalForDay(l, day, ExpenseOnly)))
	assert.True(t, d("1000").Equal(TotalForDay(l, day, IncomeOnly)))
	assert.True(t, d("1012.50").Equal(TotalForDay(l, day, AllKinds)))
	assert.True(t, d("3").Equal(TotalForDay(l, core.NewDate(2024, 5, 2), ExpenseOnly)), "empty kind counts as expense")
}

func TestTotalForMonth(t *testing.T) {
	l := sample()
	assert.True(t, d("15.50").Equal(TotalForMonth(l, 2024, time.May, ExpenseOnly)))
	assert.True(t, d("20").Equal(TotalForMonth(l, 2024, time.April, ExpenseOnly)))
	assert.True(t, TotalForMonth(l, 2023, time.May, AllKinds).IsZero())
}

func TestCategoryBreakdownExcludesNonPositive(t *testing.T) {
	got := CategoryBreakdown(sample(), ExpenseOnly)
	require.Len(t, got, 2)
	assert.True(t, d("32.50").Equal(got["food"]))
	assert.True(t, d("3").Equal(got["transport"]))
	_, hasGifts := got["gifts"]
	assert.False(t, hasGifts)
	_, hasSalary := got["salary"]
	assert.False(t, hasSalary)

	income := CategoryBreakdown(sample(), IncomeOnly)
	require.Len(t, income, 1)
	assert.True(t, d("1000").Equal(income["salary"]))
}

func TestSortedBreakdown(t *testing.T) {
	l := sample()
	l.Transactions = append(l.Transactions, tx(core.NewDate(2024, 5, 3), core.Expense, "books", "3"))

	got := SortedBreakdown(l, ExpenseOnly)
	require.Len(t, got, 3)
	assert.Equal(t, "food", got[0].Name)
	assert.Equal(t, "books", got[1].Name, "ties ordered by name")
	assert.Equal(t, "transport", got[2].Name)
}

func TestBalanceSeriesStableTieBreak(t *testing.T) {
	d1 := core.NewDate(2024, 5, 1)
	l := core.Ledger{Transactions: []core.Transaction{
		tx(d1, core.Income, "salary", "100"),
		tx(d1, core.Expense, "food", "30"),
	}}

	series := BalanceSeries(l)
	require.Len(t, series, 2)
	assert.True(t, d("100").Equal(series[0].Balance))
	assert.True(t, d("70").Equal(series[1].Balance))
	assert.True(t, d("70").Equal(Balance(l)))
}

func TestBalanceSeriesSortsAscending(t *testing.T) {
	series := BalanceSeries(sample())
	require.Len(t, series, 5)
	assert.True(t, series[0].OccurredAt.Equal(core.NewDate(2024, 4, 30)))
	assert.True(t, d("-20").Equal(series[0].Balance))
	assert.True(t, d("980").Equal(series[1].Balance))
	assert.True(t, d("964.50").Equal(series[4].Balance))

	// input untouched
	assert.True(t, sample().Transactions[0].OccurredAt.Equal(core.NewDate(2024, 5, 1)))
}

func TestRecentDisplayOrder(t *testing.T) {
	l := sample()
	got := Recent(l, 0)
	require.Len(t, got, 5)
	assert.Equal(t, "gifts", got[0].Category, "latest entry of the newest day first")
	assert.Equal(t, "transport", got[1].Category)
	assert.Equal(t, "food", got[2].Category)
	assert.Equal(t, "salary", got[3].Category)
	assert.Equal(t, "food", got[4].Category)

	assert.Len(t, Recent(l, 2), 2)
	assert.Equal(t, "salary", l.Transactions[0].Category, "input untouched")
}

func TestOverview(t *testing.T) {
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	ov := Overview(sample(), now, ExpenseOnly)
	assert.Equal(t, "u", ov.Account)
	assert.True(t, d("3").Equal(ov.Today))
	assert.True(t, d("15.50").Equal(ov.Month))
	assert.True(t, d("964.50").Equal(ov.Balance))
	assert.Equal(t, 5, ov.Rows)
	require.Len(t, ov.ByCategory, 2)
	assert.Equal(t, "food", ov.ByCategory[0].Name)
}

func TestParseKindFilter(t *testing.T) {
	for in, want := range map[string]KindFilter{"": ExpenseOnly, "expense": ExpenseOnly, "Income": IncomeOnly, "all": AllKinds} {
		got, err := ParseKindFilter(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if in != "" && in != "Income" {
			assert.Equal(t, in, got.String())
		}
	}
	_, err := ParseKindFilter("refunds")
	assert.Error(t, err)
}
