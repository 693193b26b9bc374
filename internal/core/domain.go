package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense Kind = "EXPENSE"
	Income  Kind = "INCOME"
)

type (
	// Kind tells whether a transaction takes money out of or into the account.
	Kind string

	Transaction struct {
		OccurredAt time.Time
		Kind       Kind
		Category   string // opaque; may predate the configured category set
		Amount     decimal.Decimal
		Note       string
	}

	// Ledger is every transaction recorded for one account key, in insertion order.
	Ledger struct {
		Account      string
		Transactions []Transaction
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidKind   = errors.New("invalid kind")
)

// ValidationError is returned when a transaction is rejected before it is stored.
// Callers render it as a rejected submission.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// ParseKind maps stored or submitted text to a Kind. Empty text means Expense.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(Expense):
		return Expense, nil
	case string(Income):
		return Income, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k Kind) String() string {
	return string(k)
}

// IsIncome reports whether the kind adds to the balance.
func (k Kind) IsIncome() bool {
	return k == Income
}

func (t Transaction) Validate() error {
	if t.OccurredAt.IsZero() {
		return invalid("occurred_at", ErrInvalidDate)
	}
	if t.Amount.IsNegative() {
		return invalid("amount", ErrInvalidAmount)
	}
	switch t.Kind {
	case "", Expense, Income:
	default:
		return invalid("kind", ErrInvalidKind)
	}
	return nil
}

// Normalize fills the implicit kind, trims free-text fields and reduces
// OccurredAt to what FormatDate keeps: UTC, whole seconds.
func (t Transaction) Normalize() Transaction {
	if t.Kind == "" {
		t.Kind = Expense
	}
	t.OccurredAt = t.OccurredAt.UTC().Truncate(time.Second)
	t.Category = strings.TrimSpace(t.Category)
	t.Note = strings.TrimSpace(t.Note)
	t.Amount = t.Amount.Round(2)
	return t
}

// ParseTransaction builds a transaction from submitted text fields.
// Every failure is a *ValidationError.
func ParseTransaction(occurredAt, kind, category, amount, note string) (Transaction, error) {
	when, err := ParseDate(occurredAt)
	if err != nil {
		return Transaction{}, invalid("occurred_at", err)
	}
	k, err := ParseKind(kind)
	if err != nil {
		return Transaction{}, invalid("kind", err)
	}
	amt, err := ParseAmount(amount)
	if err != nil {
		return Transaction{}, invalid("amount", err)
	}
	t := Transaction{
		OccurredAt: when,
		Kind:       k,
		Category:   category,
		Amount:     amt,
		Note:       note,
	}
	return t.Normalize(), nil
}

// Len returns the number of transactions.
func (l Ledger) Len() int {
	return len(l.Transactions)
}

// IsEmpty reports whether the ledger has no rows. A ledger that was never written is empty too.
func (l Ledger) IsEmpty() bool {
	return len(l.Transactions) == 0
}

// With returns a copy of the ledger with t appended. The receiver is not modified.
func (l Ledger) With(t Transaction) Ledger {
	rows := make([]Transaction, 0, len(l.Transactions)+1)
	rows = append(rows, l.Transactions...)
	rows = append(rows, t)
	return Ledger{Account: l.Account, Transactions: rows}
}
