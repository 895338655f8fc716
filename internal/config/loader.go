package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader reads configuration files from disk. The file is observed,
// never written.
type Loader struct{}

// NewLoader creates a config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads, decodes, defaults, and validates the config at path.
func (*Loader) Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Resolve symlinks to prevent symlink attacks.
	// Note that this calls filepath.Clean internally.
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate symlinks: %w", err)
	}

	if !filepath.IsAbs(realPath) {
		if !filepath.IsLocal(realPath) {
			return nil, fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}
	}

	data, err := os.ReadFile(realPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
