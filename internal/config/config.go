// Package config loads the CLI configuration from ~/.neocore/config.toml,
// creating it with defaults on first run. The storage and blob driver
// settings become process environment defaults via ApplyEnv; an already-set
// environment variable wins over the file.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	NEOFile     string `toml:"neo_file"`
	CADFile     string `toml:"cad_file"`
	OutputDir   string `toml:"output_dir"`
	QueryLimit  int    `toml:"query_limit"`
	ListenAddr  string `toml:"listen_addr"`
	LogVerbose  bool   `toml:"log_verbose"`
	CacheOnLoad bool   `toml:"cache_on_load"`

	StorageDriver string `toml:"storage_driver"`
	SQLitePath    string `toml:"sqlite_path"`
	BlobDriver    string `toml:"blob_driver"`
	BlobRoot      string `toml:"blob_root"`
}

// ApplyEnv exports the driver settings as environment defaults for the
// storage and blob factories. Variables already present are left alone.
func (c *Config) ApplyEnv() {
	setEnvDefault("NEOCORE_STORAGE_DRIVER", c.StorageDriver)
	setEnvDefault("NEOCORE_SQLITE_PATH", c.SQLitePath)
	setEnvDefault("NEOCORE_BLOB_DRIVER", c.BlobDriver)
	setEnvDefault("NEOCORE_BLOB_FS_ROOT", c.BlobRoot)
}

func setEnvDefault(key, value string) {
	if value == "" {
		return
	}
	if _, ok := os.LookupEnv(key); ok {
		return
	}
	os.Setenv(key, value)
}

func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		NEOFile:     filepath.Join("data", "neos.csv"),
		CADFile:     filepath.Join("data", "cad.json"),
		OutputDir:   filepath.Join(homeDir, ".neocore", "exports"),
		QueryLimit:  10,
		ListenAddr:  ":8080",
		CacheOnLoad: false,
	}
}

func NeocoreDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".neocore"), nil
}

func ConfigPath() (string, error) {
	dir, err := NeocoreDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func EnsureDirectories() error {
	dir, err := NeocoreDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(dir, "exports"), 0755)
}

func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	// First run: write the defaults so the user has a file to edit.
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := EnsureDirectories(); err != nil {
			return nil, err
		}
		if err := Save(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, err
	}

	cfg.NEOFile = expandPath(cfg.NEOFile)
	cfg.CADFile = expandPath(cfg.CADFile)
	cfg.OutputDir = expandPath(cfg.OutputDir)

	return cfg, nil
}

func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
