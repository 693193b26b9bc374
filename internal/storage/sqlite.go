package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	readDocumentSQL   = `SELECT content FROM ledger_files WHERE name = ?`
	writeDocumentSQL  = `INSERT INTO ledger_files (name, content, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`
)

// SQLiteRepository keeps each document as one row, for deployments that would
// rather back up a single database file than a directory.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Read(ctx context.Context, name string) ([]byte, error) {
	var content []byte
	err := r.db.QueryRowContext(ctx, readDocumentSQL, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	return content, nil
}

func (r *SQLiteRepository) Write(ctx context.Context, name string, data []byte) error {
	// stored as TEXT: an empty []byte would otherwise bind as NULL
	if _, err := r.db.ExecContext(ctx, writeDocumentSQL, name, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}

	slog.DebugContext(ctx, "Document saved to SQLite", "name", name, "bytes", len(data))
	return nil
}
