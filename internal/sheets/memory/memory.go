// Package memory is a LedgerMirror that keeps the latest copy of each ledger
// in process, for tests and for running the worker without a spreadsheet.
package memory

import (
	"context"
	"sort"
	"sync"

	"ledgerbook/internal/core"
	ports "ledgerbook/internal/sheets"
)

var _ ports.LedgerMirror = (*Mirror)(nil)

type Mirror struct {
	mu      sync.Mutex
	ledgers map[string]core.Ledger
	writes  int
}

func New() *Mirror {
	return &Mirror{ledgers: map[string]core.Ledger{}}
}

func (m *Mirror) ReplaceLedger(ctx context.Context, l core.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]core.Transaction, len(l.Transactions))
	copy(rows, l.Transactions)
	m.ledgers[l.Account] = core.Ledger{Account: l.Account, Transactions: rows}
	m.writes++
	return nil
}

// Get returns the mirrored copy of account.
func (m *Mirror) Get(account string) (core.Ledger, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[account]
	return l, ok
}

// Accounts lists mirrored accounts, sorted.
func (m *Mirror) Accounts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.ledgers))
	for a := range m.ledgers {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Writes counts ReplaceLedger calls.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
