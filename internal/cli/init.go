// Package cli provides common CLI initialization utilities shared by
// cmd/ledgerd and cmd/ledger-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledgerbook/internal/config"
	applog "ledgerbook/internal/log"
)

// SetupLogger builds the root logger from LOG_LEVEL and LOG_FORMAT and sets it
// as the slog default.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Format:    os.Getenv("LOG_FORMAT"),
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, applies the categories file and
// validates the result. Exits the process on failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.ApplyCategoriesFile(); err != nil {
		logger.Error("Failed to load categories", applog.FieldError, err, "path", cfg.CategoriesFile)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
