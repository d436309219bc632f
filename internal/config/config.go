// Package config loads lumen's YAML configuration and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/lumen/internal/llm"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      llm.Config     `yaml:"llm"`
	Queue    QueueConfig    `yaml:"queue"`
	Study    StudyConfig    `yaml:"study"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig holds the SQLite location. Empty means the XDG default.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// QueueConfig controls the background generation poller.
type QueueConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// StaleAfter is how long a chunk may sit in processing before
	// recovery returns it to pending.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// StudyConfig sizes study sessions.
type StudyConfig struct {
	BatchSize int   `yaml:"batch_size"`
	DeckSize  int   `yaml:"deck_size"`
	Seed      int64 `yaml:"seed"` // 0 means time-seeded
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultPath returns $XDG_CONFIG_HOME/lumen/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(dir, "lumen", "config.yaml")
}

// Load reads the config file at path, applies LUMEN_* environment overrides
// and fills defaults. An empty path means DefaultPath; a missing default file
// is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	providerSet := cfg.LLM.Provider != "" || os.Getenv("LUMEN_LLM_PROVIDER") != ""
	ApplyEnv(&cfg)
	if !providerSet {
		if discovered, ok := llm.DiscoverConfig(); ok {
			cfg.LLM.Provider = discovered.Provider
			cfg.LLM.Anthropic.APIKey = firstNonEmpty(cfg.LLM.Anthropic.APIKey, discovered.Anthropic.APIKey)
			cfg.LLM.OpenAI.APIKey = firstNonEmpty(cfg.LLM.OpenAI.APIKey, discovered.OpenAI.APIKey)
			cfg.LLM.Gemini.APIKey = firstNonEmpty(cfg.LLM.Gemini.APIKey, discovered.Gemini.APIKey)
			cfg.LLM.OpenRouter.APIKey = firstNonEmpty(cfg.LLM.OpenRouter.APIKey, discovered.OpenRouter.APIKey)
		}
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyEnv overrides fields from LUMEN_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("LUMEN_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LUMEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LUMEN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LUMEN_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	cfg.LLM.ApplyEnv()
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Long enough for one generation step with full backoff.
		cfg.Server.WriteTimeout = 3 * time.Minute
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = 5 * time.Second
	}
	if cfg.Queue.StaleAfter == 0 {
		cfg.Queue.StaleAfter = 10 * time.Minute
	}
	if cfg.Study.BatchSize == 0 {
		cfg.Study.BatchSize = 5
	}
	if cfg.Study.DeckSize == 0 {
		cfg.Study.DeckSize = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	cfg.LLM.ApplyDefaults()
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
