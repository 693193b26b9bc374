package worker

import (
	"context"
	"fmt"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/sheets"
)

// LedgerLoader reads the current snapshot of an account.
type LedgerLoader interface {
	Load(ctx context.Context, account string) (core.Ledger, ledger.ReadReport, error)
}

// MirrorWorker keeps the spreadsheet copy of each ledger in step with storage.
// Messages only name the account; the worker always reloads, so replaying or
// reordering messages converges on the stored state.
type MirrorWorker struct {
	loader LedgerLoader
	mirror sheets.LedgerMirror
	logger *applog.Logger
}

func NewMirrorWorker(loader LedgerLoader, mirror sheets.LedgerMirror, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorWorker{
		loader: loader,
		mirror: mirror,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleChange processes a single ledger change message from AMQP. An error
// leaves the message for redelivery.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		applog.FieldAccount, msg.Account,
		applog.FieldOperation, msg.Op,
		applog.FieldRows, msg.Rows,
		"timestamp", msg.Timestamp)

	return w.MirrorAccount(ctx, msg.Account)
}

// MirrorAccount loads account and replaces its mirrored copy.
func (w *MirrorWorker) MirrorAccount(ctx context.Context, account string) error {
	l, report, err := w.loader.Load(ctx, account)
	if err != nil {
		return fmt.Errorf("load ledger %q: %w", account, err)
	}
	if report.Dropped > 0 || report.Malformed {
		w.logger.WarnContext(ctx, "Mirroring a repaired ledger",
			applog.FieldAccount, account,
			applog.FieldDropped, report.Dropped,
			applog.FieldMalformed, report.Malformed)
	}

	if err := w.mirror.ReplaceLedger(ctx, l); err != nil {
		return fmt.Errorf("replace mirror for %q: %w", account, err)
	}
	return nil
}

// StartupSync mirrors each listed account once, to recover from messages
// missed while the worker was down. Failures are logged and skipped.
func (w *MirrorWorker) StartupSync(ctx context.Context, accounts []string) error {
	if len(accounts) == 0 {
		w.logger.InfoContext(ctx, "No accounts configured for startup sync")
		return nil
	}

	successCount := 0
	errorCount := 0
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.MirrorAccount(ctx, account); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror account during startup",
				applog.FieldAccount, account,
				applog.FieldError, err)
			errorCount++
			continue
		}
		successCount++
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", len(accounts),
		"synced", successCount,
		"errors", errorCount)
	return nil
}
