package backend

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/config"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/storage"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: &bytes.Buffer{}})
}

func TestCreateBackend(t *testing.T) {
	tmp := t.TempDir()
	tests := []struct {
		name string
		cfg  Config
		want any
	}{
		{name: "fs", cfg: Config{Type: FSBackend, DataDirectory: filepath.Join(tmp, "data")}, want: &storage.Dir{}},
		{name: "memory", cfg: Config{Type: MemoryBackend}, want: &storage.Memory{}},
		{name: "sqlite", cfg: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(tmp, "db", "ledger.db")}, want: &storage.SQLiteRepository{}},
	}

	f := NewFactory(quietLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(context.Background(), tt.cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = res.Close() })

			assert.IsType(t, tt.want, res.Backend)

			ctx := context.Background()
			require.NoError(t, res.Backend.Write(ctx, "doc.csv", []byte("a\n")))
			got, err := res.Backend.Read(ctx, "doc.csv")
			require.NoError(t, err)
			assert.Equal(t, "a\n", string(got))
		})
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	f := NewFactory(quietLogger())

	_, err := f.CreateBackend(context.Background(), Config{Type: "sheets"})
	assert.ErrorContains(t, err, "must be one of [fs sqlite memory]")

	_, err = f.CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.ErrorContains(t, err, "SQLite database path is required")

	_, err = f.CreateBackend(context.Background(), Config{Type: FSBackend})
	assert.ErrorContains(t, err, "data directory is required")
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "fs", DataDir: "/var/lib/ledger"})
	require.NoError(t, err)
	assert.Equal(t, Config{Type: FSBackend, DataDirectory: "/var/lib/ledger"}, cfg)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.ErrorContains(t, err, `invalid backend type in config "sheets": must be one of [fs sqlite memory]`)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)

	assert.Equal(t, []string{"fs", "sqlite", "memory"}, GetBackendTypeStrings())
}
