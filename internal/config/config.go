// Package config loads the service configuration from a YAML file.
// Every knob has a default, so an empty or absent file yields a
// runnable configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Dataset  DatasetConfig  `yaml:"dataset"`
	Search   SearchConfig   `yaml:"search"`
	Citation CitationConfig `yaml:"citation"`
	Session  SessionConfig  `yaml:"session"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// DatasetConfig locates and reloads the Q&A data file.
type DatasetConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// SearchConfig tunes the fuzzy matcher.
type SearchConfig struct {
	Threshold float64 `yaml:"threshold"`
	TopK      int     `yaml:"top_k"`
}

// CitationConfig tunes source attribution on answers.
type CitationConfig struct {
	MaxItems     int `yaml:"max_items"`
	ExcerptRunes int `yaml:"excerpt_runes"`
}

// SessionConfig tunes conversation expiry.
type SessionConfig struct {
	IdleWindow    time.Duration `yaml:"idle_window"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// NotifyConfig tunes the notification dispatcher.
type NotifyConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Dataset: DatasetConfig{
			Path:  "data/faq.csv",
			Watch: true,
		},
		Search: SearchConfig{
			Threshold: 0.1,
			TopK:      5,
		},
		Citation: CitationConfig{
			MaxItems:     3,
			ExcerptRunes: 200,
		},
		Session: SessionConfig{
			IdleWindow:    30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Notify: NotifyConfig{
			QueueSize: 64,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error; keys absent from the file keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Dataset.Path == "" {
		return errors.New("dataset.path must not be empty")
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("search.threshold must be in [0,1], got %g", c.Search.Threshold)
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("search.top_k must be at least 1, got %d", c.Search.TopK)
	}
	if c.Citation.MaxItems < 1 {
		return fmt.Errorf("citation.max_items must be at least 1, got %d", c.Citation.MaxItems)
	}
	if c.Citation.ExcerptRunes < 1 {
		return fmt.Errorf("citation.excerpt_runes must be at least 1, got %d", c.Citation.ExcerptRunes)
	}
	if c.Session.IdleWindow <= 0 {
		return errors.New("session.idle_window must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return errors.New("session.sweep_interval must be positive")
	}
	if c.Notify.QueueSize < 1 {
		return fmt.Errorf("notify.queue_size must be at least 1, got %d", c.Notify.QueueSize)
	}
	return nil
}
