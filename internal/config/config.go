// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Backend selects the primary store implementation.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// Server
	Port  string
	Token string

	// Store
	DataBackend  string
	SQLiteDBPath string

	// Purchase sync queue
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger export
	GoogleCredentialsPath string
	SpreadsheetID         string
	LedgerSheetName       string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
}

// Load reads configuration from the environment, applying defaults for
// everything optional. It never fails; Validate reports what is unusable.
func Load() Config {
	return Config{
		Port:  getEnv("PORT", "8080"),
		Token: getEnv("KAIMONO_TOKEN", ""),

		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "kaimono.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kaimono"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "purchase-sync"),

		GoogleCredentialsPath: getEnv("GOOGLE_CREDENTIALS_PATH", ""),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		LedgerSheetName:       getEnv("LEDGER_SHEET_NAME", "purchases"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 50),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
	}
}

// Validate checks the fields the server needs. Worker-only settings are
// checked by ValidateWorker instead.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, errors.New("SQLITE_DB_PATH required for the sqlite backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DATA_BACKEND %q", c.DataBackend))
	}
	return errors.Join(errs...)
}

// ValidateWorker checks everything the export worker needs on top of the
// store settings.
func (c Config) ValidateWorker() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.DataBackend != BackendSQLite {
		errs = append(errs, errors.New("the worker requires the sqlite backend"))
	}
	if c.AMQPURL == "" {
		errs = append(errs, errors.New("AMQP_URL required"))
	}
	if c.GoogleCredentialsPath == "" {
		errs = append(errs, errors.New("GOOGLE_CREDENTIALS_PATH required"))
	}
	if c.SpreadsheetID == "" {
		errs = append(errs, errors.New("SPREADSHEET_ID required"))
	}
	if c.SyncBatchSize <= 0 {
		errs = append(errs, errors.New("SYNC_BATCH_SIZE must be positive"))
	}
	if c.SyncInterval <= 0 {
		errs = append(errs, errors.New("SYNC_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
