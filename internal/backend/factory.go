package backend

import (
	"context"
	"fmt"

	applog "ledgerbook/internal/log"
	"ledgerbook/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FSBackend:
		return f.createDirBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		f.logger.Warn("Initialized memory backend, ledgers are lost on exit")
		return &BackendResult{Backend: storage.NewMemory()}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createDirBackend(config Config) (*BackendResult, error) {
	dir, err := storage.NewDir(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data directory: %w", err)
	}

	f.logger.Info("Initialized fs backend", "data_directory", dir.Root())
	return &BackendResult{Backend: dir}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Backend: sqliteRepo,
		Cleanup: sqliteRepo.Close,
	}, nil
}
