package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SearchConfig holds the retrieval tuning knobs.
type SearchConfig struct {
	Depth         int     `yaml:"depth,omitempty"`
	MinSimilarity float64 `yaml:"min_similarity,omitempty"`
}

// RunnerConfig points at the external fine-tuning runner service.
// Timeout bounds a whole training run; zero means wait indefinitely.
type RunnerConfig struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ServerConfig controls the tailor HTTP API listener.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// Config is the in-memory representation of ~/.tailor/tailor.yaml.
type Config struct {
	CatalogDir string       `yaml:"catalog_dir"`
	IndexDir   string       `yaml:"index_dir"`
	RunsDB     string       `yaml:"runs_db,omitempty"`
	Search     SearchConfig `yaml:"search,omitempty"`
	Runner     RunnerConfig `yaml:"runner,omitempty"`
	Server     ServerConfig `yaml:"server,omitempty"`
}

// TailorDir returns the absolute path to ~/.tailor/.
func TailorDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tailor"), nil
}

// ConfigPath returns the absolute path to ~/.tailor/tailor.yaml.
func ConfigPath() (string, error) {
	dir, err := TailorDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tailor.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the default Config written on first tailor init.
func DefaultConfig() (*Config, error) {
	dir, err := TailorDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		CatalogDir: filepath.Join(dir, "catalog"),
		IndexDir:   filepath.Join(dir, "index"),
		RunsDB:     filepath.Join(dir, "runs.db"),
		Search: SearchConfig{
			Depth:         5,
			MinSimilarity: 0.30,
		},
		Runner: RunnerConfig{
			BaseURL: "http://127.0.0.1:8090",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
	}, nil
}

// Load reads and parses ~/.tailor/tailor.yaml. Fields absent from the file
// keep their defaults, so partial configs remain valid across versions.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	// Expand ~ in path fields at load time.
	if cfg.CatalogDir, err = ExpandPath(cfg.CatalogDir); err != nil {
		return nil, err
	}
	if cfg.IndexDir, err = ExpandPath(cfg.IndexDir); err != nil {
		return nil, err
	}
	if cfg.RunsDB, err = ExpandPath(cfg.RunsDB); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save marshals cfg and writes it to ~/.tailor/tailor.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}
