package ledger

import (
	"context"
	"time"
)

// Op names the mutation behind a Change.
type Op string

const (
	OpAppend Op = "append"
	OpReset  Op = "reset"
)

// Change is emitted after a mutation has been persisted.
type Change struct {
	Account string
	Op      Op
	Rows    int // row count after the change
	At      time.Time
}

type Notifier interface {
	LedgerChanged(ctx context.Context, c Change) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, c Change) error

func (f NotifierFunc) LedgerChanged(ctx context.Context, c Change) error {
	return f(ctx, c)
}
