// Package config loads parcours settings from a config file, a .env file and
// the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pablasso/parcours/internal/persistence"
	"github.com/pablasso/parcours/internal/storage"
)

// DefaultDataDir is where paths, logs and the session lock live by default.
const DefaultDataDir = ".parcours"

// Config is the full parcours configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// StorageConfig selects the durable store.
type StorageConfig struct {
	Backend    string `yaml:"backend" toml:"backend"`
	DataDir    string `yaml:"data_dir" toml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path" toml:"sqlite_path"`
	RedisURL   string `yaml:"redis_url" toml:"redis_url"`
	Key        string `yaml:"key" toml:"key"`
}

// LogConfig controls the diagnostic log.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: storage.BackendFile,
			DataDir: DefaultDataDir,
			Key:     persistence.DefaultKey,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the config file at path (YAML
// or TOML by extension; a missing file is fine), then .env, then PARCOURS_*
// environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(&cfg)

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format: %s", path)
	}
	return nil
}

var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"PARCOURS_BACKEND", func(c *Config) *string { return &c.Storage.Backend }},
	{"PARCOURS_DATA_DIR", func(c *Config) *string { return &c.Storage.DataDir }},
	{"PARCOURS_SQLITE_PATH", func(c *Config) *string { return &c.Storage.SQLitePath }},
	{"PARCOURS_REDIS_URL", func(c *Config) *string { return &c.Storage.RedisURL }},
	{"PARCOURS_KEY", func(c *Config) *string { return &c.Storage.Key }},
	{"PARCOURS_LOG_LEVEL", func(c *Config) *string { return &c.Log.Level }},
	{"PARCOURS_LOG_FILE", func(c *Config) *string { return &c.Log.File }},
}

func applyEnv(cfg *Config) {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.field(cfg) = v
		}
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	case storage.BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage backend redis requires redis_url")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir must not be empty")
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage key must not be empty")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Log.Level)
	}
	return nil
}

// LogFile returns the log file path, defaulting to a file in the data dir.
func (c Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Storage.DataDir, "parcours.log")
}

// StorageOptions converts the storage section for storage.Open.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:    c.Storage.Backend,
		Dir:        c.Storage.DataDir,
		SQLitePath: c.Storage.SQLitePath,
		RedisURL:   c.Storage.RedisURL,
	}
}
