// Package ledger persists one account's transactions as a CSV document.
//
// The store favours liveness over durability on read: a missing document is an
// empty ledger, a damaged one is whatever rows still parse. Writes are whole-document
// rewrites and assume a single writer per account key; two concurrent writers
// to the same key lose updates, last write wins.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledgerbook/internal/core"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/storage"
)

var (
	// ErrStorageUnavailable wraps every failure of the backing medium. The
	// operation did not take effect and may be retried.
	ErrStorageUnavailable = errors.New("ledger storage unavailable")
	ErrEmptyAccount       = errors.New("empty account key")
)

// IsRetryable reports whether err came from the backing medium rather than the input.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

type Store struct {
	backend  storage.Backend
	namer    storage.Namer
	codec    Codec
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Store)

func WithSchema(s Schema) Option {
	return func(st *Store) { st.codec = Codec{Schema: s} }
}

func WithNamer(n storage.Namer) Option {
	return func(st *Store) { st.namer = n }
}

// WithNotifier registers a receiver for append and reset events.
func WithNotifier(n Notifier) Option {
	return func(st *Store) { st.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// WithClock overrides the clock used to stamp change events.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

func NewStore(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		namer:   storage.HexNamer("ledger_", ".csv"),
		codec:   Codec{Schema: DefaultSchema},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(applog.FieldComponent, applog.ComponentLedger)
	return s
}

// Schema returns the column revision the store reads and writes.
func (s *Store) Schema() Schema {
	return s.codec.Schema
}

// Load returns the current snapshot for account. A missing document is
// provisioned empty; unreadable rows are dropped and counted in the report.
// The only error is ErrStorageUnavailable (or ErrEmptyAccount).
func (s *Store) Load(ctx context.Context, account string) (core.Ledger, ReadReport, error) {
	empty := core.Ledger{Account: account}
	if strings.TrimSpace(account) == "" {
		return empty, ReadReport{}, ErrEmptyAccount
	}
	name := s.namer(account)

	data, err := s.backend.Read(ctx, name)
	if errors.Is(err, storage.ErrNotExist) {
		if err := s.backend.Write(ctx, name, s.codec.Empty()); err != nil {
			return empty, ReadReport{}, unavailable("provision ledger", err)
		}
		s.logger.InfoContext(ctx, "Provisioned empty ledger", applog.FieldAccount, account, applog.FieldDocument, name)
		return empty, ReadReport{Provisioned: true}, nil
	}
	if err != nil {
		return empty, ReadReport{}, unavailable("read ledger", err)
	}

	rows, report := s.codec.Decode(data)
	s.logRepair(ctx, account, name, report)
	return core.Ledger{Account: account, Transactions: rows}, report, nil
}

// Append validates t, adds it to the current snapshot and rewrites the whole
// document. Invalid input returns a *core.ValidationError and leaves storage untouched.
func (s *Store) Append(ctx context.Context, account string, t core.Transaction) (core.Ledger, error) {
	empty := core.Ledger{Account: account}
	if strings.TrimSpace(account) == "" {
		return empty, ErrEmptyAccount
	}
	if err := t.Validate(); err != nil {
		return empty, err
	}
	t = t.Normalize()
	// Without a kind column every stored row reads back as an expense.
	if t.Kind.IsIncome() && !s.codec.Schema.hasKind() {
		return empty, &core.ValidationError{
			Field: "kind",
			Err:   fmt.Errorf("%w: schema %s stores expenses only", core.ErrInvalidKind, s.codec.Schema),
		}
	}
	name := s.namer(account)

	data, err := s.backend.Read(ctx, name)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		return empty, unavailable("read ledger", err)
	}
	rows, report := s.codec.Decode(data)
	s.logRepair(ctx, account, name, report)

	// The rewrite below discards unreadable records for good; keep the raw bytes.
	if report.Dropped > 0 {
		backup := name + ".bak"
		if err := s.backend.Write(ctx, backup, data); err != nil {
			return empty, unavailable("back up damaged ledger", err)
		}
		s.logger.WarnContext(ctx, "Backed up damaged ledger before rewrite",
			applog.FieldAccount, account,
			applog.FieldDocument, backup,
			applog.FieldDropped, report.Dropped)
	}

	next := core.Ledger{Account: account, Transactions: rows}.With(t)
	out, err := s.codec.Encode(next.Transactions)
	if err != nil {
		return empty, fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.backend.Write(ctx, name, out); err != nil {
		return empty, unavailable("write ledger", err)
	}

	s.logger.InfoContext(ctx, "Transaction appended",
		applog.FieldAccount, account,
		applog.FieldOperation, applog.OpAppend,
		applog.FieldKind, t.Kind.String(),
		applog.FieldCategory, t.Category,
		applog.FieldAmount, core.FormatAmount(t.Amount),
		applog.FieldRows, next.Len())

	s.notify(ctx, Change{Account: account, Op: OpAppend, Rows: next.Len(), At: s.now()})
	return next, nil
}

// Reset truncates the account's ledger to a header-only document.
func (s *Store) Reset(ctx context.Context, account string) error {
	if strings.TrimSpace(account) == "" {
		return ErrEmptyAccount
	}
	name := s.namer(account)
	if err := s.backend.Write(ctx, name, s.codec.Empty()); err != nil {
		return unavailable("reset ledger", err)
	}

	s.logger.InfoContext(ctx, "Ledger reset", applog.FieldAccount, account, applog.FieldOperation, applog.OpReset)
	s.notify(ctx, Change{Account: account, Op: OpReset, Rows: 0, At: s.now()})
	return nil
}

func (s *Store) logRepair(ctx context.Context, account, name string, report ReadReport) {
	if report.Dropped == 0 && !report.Malformed {
		return
	}
	s.logger.WarnContext(ctx, "Dropped unreadable ledger rows",
		applog.FieldAccount, account,
		applog.FieldDocument, name,
		applog.FieldDropped, report.Dropped,
		applog.FieldMalformed, report.Malformed,
		applog.FieldSchema, string(s.codec.Schema))
}

// notify failures never fail the operation: the ledger is already persisted.
func (s *Store) notify(ctx context.Context, c Change) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.LedgerChanged(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			applog.FieldAccount, c.Account,
			applog.FieldOperation, string(c.Op),
			applog.FieldError, err)
	}
}
