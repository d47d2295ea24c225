// Package config loads targetgod file configuration. Configuration
// is optional: every field has a default, and a missing file yields
// the default configuration rather than an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sigreer/targetgod/spec"
)

// Config is the file configuration.
type Config struct {
	// SpecDirs are the descriptor search directories, scanned in
	// order on every registry load.
	SpecDirs []string `yaml:"spec_dirs"`

	// Mode selects descriptor parse strictness, "strict" or
	// "lenient".
	Mode string `yaml:"mode"`

	// LegacyFilters enables translation of historical shell filter
	// pipelines found in old descriptor files.
	LegacyFilters bool `yaml:"legacy_filters"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SpecDirs: []string{
			"/etc/target/fabric",
			"/var/lib/target/fabric",
		},
		Mode: spec.Strict.String(),
	}
}

// Load reads configuration from path. With an empty path the usual
// locations are tried in order and the first existing file wins; if
// none exists the defaults are returned. An explicit path must exist.
func Load(path string) (*Config, error) {
	if path == "" {
		// Try default locations
		candidates := []string{
			"/etc/targetgod/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/targetgod/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
		if path == "" {
			return Default(), nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := spec.ParseMode(c.Mode); err != nil {
		return err
	}
	return nil
}

// ParserOptions translates the configuration into descriptor parser
// options.
func (c *Config) ParserOptions() []spec.Option {
	mode, err := spec.ParseMode(c.Mode)
	if err != nil {
		mode = spec.Strict
	}
	opts := []spec.Option{spec.WithMode(mode)}
	if c.LegacyFilters {
		opts = append(opts, spec.WithLegacyFilters())
	}
	return opts
}
