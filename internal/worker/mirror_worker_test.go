package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/sheets/memory"
	"ledgerbook/internal/storage"
)

type failingMirror struct{}

func (failingMirror) ReplaceLedger(context.Context, core.Ledger) error {
	return errors.New("quota exceeded")
}

type failingLoader struct{}

func (failingLoader) Load(ctx context.Context, account string) (core.Ledger, ledger.ReadReport, error) {
	return core.Ledger{}, ledger.ReadReport{}, ledger.ErrStorageUnavailable
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: &bytes.Buffer{}})
}

func seededStore(t *testing.T) *ledger.Store {
	t.Helper()
	store := ledger.NewStore(storage.NewMemory())
	tx, err := core.ParseTransaction("2024-05-01", "", "food", "42.50", "")
	require.NoError(t, err)
	_, err = store.Append(context.Background(), "admin", tx)
	require.NoError(t, err)
	return store
}

func TestHandleChangeMirrorsStoredLedger(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(seededStore(t), mirror, quietLogger())

	err := w.HandleChange(context.Background(), &amqp.LedgerChangedMessage{Account: "admin", Op: "append", Rows: 1})
	require.NoError(t, err)

	got, ok := mirror.Get("admin")
	require.True(t, ok)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "food", got.Transactions[0].Category)
}

func TestHandleChangeReturnsErrorsForRedelivery(t *testing.T) {
	ctx := context.Background()
	msg := &amqp.LedgerChangedMessage{Account: "admin"}

	err := NewMirrorWorker(failingLoader{}, memory.New(), quietLogger()).HandleChange(ctx, msg)
	assert.ErrorIs(t, err, ledger.ErrStorageUnavailable)

	err = NewMirrorWorker(seededStore(t), failingMirror{}, quietLogger()).HandleChange(ctx, msg)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestStartupSyncSkipsFailures(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(seededStore(t), mirror, quietLogger())

	require.NoError(t, w.StartupSync(context.Background(), []string{"admin", "guest"}))
	assert.Equal(t, []string{"admin", "guest"}, mirror.Accounts())

	guest, _ := mirror.Get("guest")
	assert.True(t, guest.IsEmpty())

	w = NewMirrorWorker(failingLoader{}, mirror, quietLogger())
	assert.NoError(t, w.StartupSync(context.Background(), []string{"x"}))
	assert.NoError(t, w.StartupSync(context.Background(), nil))
}

func TestStartupSyncStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewMirrorWorker(seededStore(t), memory.New(), quietLogger())
	assert.ErrorIs(t, w.StartupSync(ctx, []string{"admin"}), context.Canceled)
}
