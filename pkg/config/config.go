// Package config handles loading and saving coalview configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/coalview/config.yaml
//   - State:   ~/.local/state/coalview/ (offset cache)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// IndexConfig tunes sample-file indexing.
type IndexConfig struct {
	ChunkSize  int  `yaml:"chunk_size,omitempty"`  // Scan chunk size in bytes
	BatchLimit int  `yaml:"batch_limit,omitempty"` // Max concurrent line retrievals
	Cache      bool `yaml:"cache,omitempty"`       // Persist line offsets to the state dir
}

// ViewConfig holds view preferences.
type ViewConfig struct {
	Width       int     `yaml:"width,omitempty"`
	Height      int     `yaml:"height,omitempty"`
	BurnIn      float64 `yaml:"burn_in,omitempty"`      // Fraction of leading samples to skip (0-1)
	DepthSample int     `yaml:"depth_sample,omitempty"` // Samples drawn when estimating the depth scale
}

// Config is the top-level configuration for coalview.
type Config struct {
	Index IndexConfig `yaml:"index,omitempty"`
	View  ViewConfig  `yaml:"view,omitempty"`
	// Recent holds recently opened dataset directories, newest first.
	Recent []string `yaml:"recent,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Index: IndexConfig{
			ChunkSize:  1 << 20,
			BatchLimit: 8,
			Cache:      true,
		},
		View: ViewConfig{
			Width:       900,
			Height:      640,
			BurnIn:      0.1,
			DepthSample: 100,
		},
	}
}

// ConfigDir returns the XDG config directory for coalview.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "coalview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "coalview")
}

// StateDir returns the XDG state directory for coalview.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "coalview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "coalview")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// CachePath returns the path of the line-offset cache database.
func CachePath() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "offsets.db")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	for i := range cfg.Recent {
		cfg.Recent[i] = expandHome(cfg.Recent[i])
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Touch moves dir to the front of the recent-dataset list, keeping at most
// ten entries.
func (c *Config) Touch(dir string) {
	recent := []string{dir}
	for _, r := range c.Recent {
		if r != dir && len(recent) < 10 {
			recent = append(recent, r)
		}
	}
	c.Recent = recent
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
