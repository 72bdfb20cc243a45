// Package config loads daemon configuration from environment variables and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for the encrypted history.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config holds the daemon configuration.
type Config struct {
	ListenAddr      string
	DataDir         string
	Storage         string
	MaxEntries      int
	PollInterval    time.Duration
	KeyPath         string
	GenerateKey     bool
	HubCapacity     int
	DiscardCorrupt  bool
	CaptureExisting bool
	LogLevel        slog.Level
}

// EntriesPath is the JSON history file used by the file storage backend.
func (c *Config) EntriesPath() string {
	return filepath.Join(c.DataDir, "entries.json")
}

// DBPath is the SQLite database used by the sqlite storage backend.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "fastclip.db")
}

// fileConfig mirrors the YAML file. Pointer fields distinguish "absent" from
// a zero value so that only keys present in the file override defaults.
type fileConfig struct {
	ListenAddr      *string `yaml:"listen_addr"`
	DataDir         *string `yaml:"data_dir"`
	Storage         *string `yaml:"storage"`
	MaxEntries      *int    `yaml:"clipboard_size"`
	PollInterval    *string `yaml:"poll_interval"`
	KeyPath         *string `yaml:"key_path"`
	GenerateKey     *bool   `yaml:"generate_key"`
	HubCapacity     *int    `yaml:"hub_capacity"`
	DiscardCorrupt  *bool   `yaml:"discard_corrupt"`
	CaptureExisting *bool   `yaml:"capture_existing"`
	LogLevel        *string `yaml:"log_level"`
}

// Load builds a Config from defaults, then the YAML file named by
// FASTCLIP_CONFIG (if set), then FASTCLIP_* environment variables.
// Defaults: FASTCLIP_LISTEN_ADDR (127.0.0.1:22766), FASTCLIP_DATA_DIR
// (~/.config/fast_clipboard_manager), FASTCLIP_STORAGE (file),
// FASTCLIP_MAX_ENTRIES (5), FASTCLIP_POLL_INTERVAL (1s), FASTCLIP_KEY_PATH
// (<data dir>/key), FASTCLIP_GENERATE_KEY (true), FASTCLIP_HUB_CAPACITY (16),
// FASTCLIP_DISCARD_CORRUPT (false), FASTCLIP_CAPTURE_EXISTING (false) and
// FASTCLIP_LOG_LEVEL (info).
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:   "127.0.0.1:22766",
		Storage:      StorageFile,
		MaxEntries:   5,
		PollInterval: time.Second,
		GenerateKey:  true,
		HubCapacity:  16,
		LogLevel:     slog.LevelInfo,
	}

	if path, ok := os.LookupEnv("FASTCLIP_CONFIG"); ok && path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir for FASTCLIP_DATA_DIR default: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".config", "fast_clipboard_manager")
	}
	if cfg.KeyPath == "" {
		cfg.KeyPath = filepath.Join(cfg.DataDir, "key")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.DataDir, fc.DataDir)
	setString(&c.Storage, fc.Storage)
	setString(&c.KeyPath, fc.KeyPath)
	if fc.MaxEntries != nil {
		c.MaxEntries = *fc.MaxEntries
	}
	if fc.HubCapacity != nil {
		c.HubCapacity = *fc.HubCapacity
	}
	if fc.GenerateKey != nil {
		c.GenerateKey = *fc.GenerateKey
	}
	if fc.DiscardCorrupt != nil {
		c.DiscardCorrupt = *fc.DiscardCorrupt
	}
	if fc.CaptureExisting != nil {
		c.CaptureExisting = *fc.CaptureExisting
	}
	if fc.PollInterval != nil {
		d, err := time.ParseDuration(*fc.PollInterval)
		if err != nil {
			return fmt.Errorf("config file poll_interval has invalid duration %q: %w", *fc.PollInterval, err)
		}
		c.PollInterval = d
	}
	if fc.LogLevel != nil {
		if err := c.LogLevel.UnmarshalText([]byte(*fc.LogLevel)); err != nil {
			return fmt.Errorf("config file log_level has invalid level %q: %w", *fc.LogLevel, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	lookupString("FASTCLIP_LISTEN_ADDR", &c.ListenAddr)
	lookupString("FASTCLIP_DATA_DIR", &c.DataDir)
	lookupString("FASTCLIP_STORAGE", &c.Storage)
	lookupString("FASTCLIP_KEY_PATH", &c.KeyPath)

	if err := lookupInt("FASTCLIP_MAX_ENTRIES", &c.MaxEntries); err != nil {
		return err
	}
	if err := lookupInt("FASTCLIP_HUB_CAPACITY", &c.HubCapacity); err != nil {
		return err
	}
	if err := lookupBool("FASTCLIP_GENERATE_KEY", &c.GenerateKey); err != nil {
		return err
	}
	if err := lookupBool("FASTCLIP_DISCARD_CORRUPT", &c.DiscardCorrupt); err != nil {
		return err
	}
	if err := lookupBool("FASTCLIP_CAPTURE_EXISTING", &c.CaptureExisting); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("FASTCLIP_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FASTCLIP_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		c.PollInterval = parsed
	}

	if v, ok := os.LookupEnv("FASTCLIP_LOG_LEVEL"); ok {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("FASTCLIP_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Storage != StorageFile && c.Storage != StorageSQLite {
		errs = append(errs, fmt.Errorf("storage must be %q or %q, got %q", StorageFile, StorageSQLite, c.Storage))
	}
	if c.MaxEntries < 1 {
		errs = append(errs, fmt.Errorf("max entries must be at least 1, got %d", c.MaxEntries))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval))
	}
	if c.HubCapacity < 1 {
		errs = append(errs, fmt.Errorf("hub capacity must be at least 1, got %d", c.HubCapacity))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func lookupString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func lookupInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func lookupBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s has invalid boolean %q: %w", key, v, err)
	}
	*dst = b
	return nil
}
