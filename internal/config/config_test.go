package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DataBackend != BackendSQLite {
		t.Errorf("DataBackend = %q, want sqlite", cfg.DataBackend)
	}
	if cfg.SQLiteDBPath != "kaimono.db" {
		t.Errorf("SQLiteDBPath = %q", cfg.SQLiteDBPath)
	}
	if cfg.SyncBatchSize != 50 {
		t.Errorf("SyncBatchSize = %d", cfg.SyncBatchSize)
	}
	if cfg.SyncInterval != 5*time.Minute {
		t.Errorf("SyncInterval = %v", cfg.SyncInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("KAIMONO_TOKEN", "secret")
	t.Setenv("SYNC_BATCH_SIZE", "10")
	t.Setenv("SYNC_INTERVAL", "30s")

	cfg := Load()
	if cfg.Port != "9090" || cfg.DataBackend != BackendMemory || cfg.Token != "secret" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.SyncBatchSize != 10 || cfg.SyncInterval != 30*time.Second {
		t.Errorf("worker overrides not applied: %+v", cfg)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SYNC_BATCH_SIZE", "lots")
	t.Setenv("SYNC_INTERVAL", "soon")

	cfg := Load()
	if cfg.SyncBatchSize != 50 || cfg.SyncInterval != 5*time.Minute {
		t.Errorf("malformed values must fall back: %+v", cfg)
	}
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := Load()
	cfg.DataBackend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestValidateWorker(t *testing.T) {
	cfg := Load()
	if err := cfg.ValidateWorker(); err == nil {
		t.Fatal("worker config without AMQP and Google settings must fail")
	}

	cfg.AMQPURL = "amqp://localhost"
	cfg.GoogleCredentialsPath = "/creds.json"
	cfg.SpreadsheetID = "sheet-id"
	if err := cfg.ValidateWorker(); err != nil {
		t.Fatalf("complete worker config must validate: %v", err)
	}
}
