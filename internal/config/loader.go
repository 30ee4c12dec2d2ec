package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/superres/internal/fault"
)

// Load reads the YAML file at path over Default. The result is not
// validated, since flags may still change it.
func Load(path string) (*Config, error) {
	cfg := Default()

	//nolint:gosec // G304: config path is operator supplied
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", fault.ErrConfiguration, err)
	}

	data = substituteEnvVars(data)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file %s: %w", fault.ErrConfiguration, path, err)
	}

	return cfg, nil
}

// LoadOrDefault returns Default when path is empty and Load otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
