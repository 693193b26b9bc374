package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"ledgerbook/internal/aggregate"
	"ledgerbook/internal/ledger"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string
	LedgerSchema string

	// Dashboard
	CategoriesFile    string
	Categories        []string
	DefaultKindFilter string

	// AMQP (optional; change events are skipped when unset)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetPrefix        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	MirrorAccounts           []string

	// Logging
	LogLevel  string
	LogFormat string
}

var validBackends = []string{"fs", "memory", "sqlite"}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "fs"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		LedgerSchema: getEnv("LEDGER_SCHEMA", string(ledger.DefaultSchema)),

		CategoriesFile:    getEnv("CATEGORIES_FILE", ""),
		DefaultKindFilter: getEnv("DEFAULT_KIND_FILTER", "expense"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetPrefix:        getEnv("GOOGLE_SHEET_PREFIX", "Ledger "),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		MirrorAccounts:           getEnvList("MIRROR_ACCOUNTS"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	cfg.Categories = DefaultCategories()
	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "fs" && strings.TrimSpace(c.DataDir) == "" {
		errors = append(errors, "data directory cannot be empty when using fs backend")
	}
	if c.DataBackend == "sqlite" && strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if _, err := ledger.ParseSchema(c.LedgerSchema); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := aggregate.ParseKindFilter(c.DefaultKindFilter); err != nil {
		errors = append(errors, err.Error())
	}
	if len(c.Categories) == 0 {
		errors = append(errors, "category set cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets mirror")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Schema returns the parsed ledger schema; call after Validate.
func (c *Config) Schema() ledger.Schema {
	s, err := ledger.ParseSchema(c.LedgerSchema)
	if err != nil {
		return ledger.DefaultSchema
	}
	return s
}

// KindFilter returns the parsed default kind filter; call after Validate.
func (c *Config) KindFilter() aggregate.KindFilter {
	f, _ := aggregate.ParseKindFilter(c.DefaultKindFilter)
	return f
}

// MirrorEnabled reports whether a Google Sheets mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
