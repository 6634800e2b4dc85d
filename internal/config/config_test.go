package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultsOnFirstRun(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.QueryLimit != 10 || cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file must exist after first load: %v", err)
	}
}

func TestLoadReadsExistingFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".neocore")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "neo_file = \"/data/neos.csv\"\nquery_limit = 25\nlog_verbose = true\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NEOFile != "/data/neos.csv" || cfg.QueryLimit != 25 || !cfg.LogVerbose {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// unset keys keep their defaults
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("default lost: %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	cfg := DefaultConfig()
	cfg.CADFile = "/tmp/cad.json"
	cfg.QueryLimit = 3
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.CADFile != "/tmp/cad.json" || loaded.QueryLimit != 3 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := expandPath("~/data/neos.csv"); got != filepath.Join(home, "data", "neos.csv") {
		t.Fatalf("expand mismatch: %q", got)
	}
	if got := expandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path must pass through: %q", got)
	}
}

func TestApplyEnvDefaults(t *testing.T) {
	t.Setenv("NEOCORE_STORAGE_DRIVER", "")
	os.Unsetenv("NEOCORE_STORAGE_DRIVER")
	t.Setenv("NEOCORE_BLOB_DRIVER", "s3")

	cfg := DefaultConfig()
	cfg.StorageDriver = "memory"
	cfg.BlobDriver = "fs"
	cfg.ApplyEnv()

	if got := os.Getenv("NEOCORE_STORAGE_DRIVER"); got != "memory" {
		t.Fatalf("expected storage driver default, got %q", got)
	}
	// An existing variable wins over the file.
	if got := os.Getenv("NEOCORE_BLOB_DRIVER"); got != "s3" {
		t.Fatalf("expected env to win, got %q", got)
	}
}
