package sheets

import (
	"context"

	"ledgerbook/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror replaces the mirrored copy of one account's ledger.
	LedgerMirror interface {
		ReplaceLedger(ctx context.Context, l core.Ledger) error
	}
)
