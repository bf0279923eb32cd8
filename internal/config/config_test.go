package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Paths.CSV != nil || cfg.Ingest.Workers != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[paths]
csv = "out.csv"
reject-log = "rejects.txt"

[ingest]
workers = 3
store = false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Paths.CSV == nil || *cfg.Paths.CSV != "out.csv" {
		t.Fatalf("unexpected csv path %v", cfg.Paths.CSV)
	}
	if cfg.Paths.RejectLog == nil || *cfg.Paths.RejectLog != "rejects.txt" {
		t.Fatalf("unexpected reject log %v", cfg.Paths.RejectLog)
	}
	if cfg.Ingest.Workers == nil || *cfg.Ingest.Workers != 3 {
		t.Fatalf("unexpected workers %v", cfg.Ingest.Workers)
	}
	if cfg.Ingest.Store == nil || *cfg.Ingest.Store {
		t.Fatalf("unexpected store flag %v", cfg.Ingest.Store)
	}
	if cfg.Paths.DB != nil {
		t.Fatalf("expected db to stay unset")
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths]\ncvs = \"typo.csv\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "paths.cvs") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "sectionals", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "sectionals", "sectionals.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}
