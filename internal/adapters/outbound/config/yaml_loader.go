package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/iacscan/iacscan/internal/domain"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up when no path is given.
const FileName = "iacscan.yaml"

// EnvPrefix prefixes every environment override, e.g. IACSCAN_SCAN_WORKERS.
const EnvPrefix = "IACSCAN"

// YAMLLoader reads service configuration from a YAML file overlaid with
// IACSCAN_* environment variables.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads path (FileName when empty) on top of DefaultConfig, applies
// environment overrides and validates the result. A missing file is not an
// error.
func (l *YAMLLoader) Load(path string) (domain.Config, error) {
	if path == "" {
		path = FileName
	}
	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults
	case err != nil:
		return domain.Config{}, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return domain.Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("reading %s_* environment: %w", EnvPrefix, err)
	}

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}
