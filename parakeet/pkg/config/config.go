// Package config loads and persists CLI/SDK configuration. A YAML file at
// ~/.parakeet/config.yaml is merged with PARAKEET_* environment variables;
// env wins.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
)

// Config holds the persisted SDK configuration.
type Config struct {
	APIKey           string `koanf:"api_key" yaml:"api_key,omitempty"`
	BaseURL          string `koanf:"base_url" yaml:"base_url"`
	DefaultAssistant string `koanf:"default_assistant" yaml:"default_assistant,omitempty"`
}

// Load merges the config file (if present) with environment variables.
func Load() (*Config, error) {
	return loadFrom(constants.GetConfigPath())
}

func loadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil &&
		!errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// PARAKEET_API_KEY -> api_key, PARAKEET_BASE_URL -> base_url, ...
	// Present-but-empty variables are skipped so they cannot clobber values
	// loaded from the file.
	_ = k.Load(env.ProviderWithValue("PARAKEET_", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.ToLower(strings.TrimPrefix(key, "PARAKEET_")), value
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultBaseURL
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		cfg.BaseURL = "https://" + cfg.BaseURL
	}

	return &cfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.saveTo(constants.GetConfigPath())
}

func (c *Config) saveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SetBaseURL sets the base URL, normalizing the scheme.
func (c *Config) SetBaseURL(baseURL string) {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	c.BaseURL = baseURL
}

// IsConfigured checks if the SDK is properly configured.
func (c *Config) IsConfigured() bool {
	return c.APIKey != "" && c.BaseURL != ""
}

// Status returns the configuration status for display.
func (c *Config) Status() map[string]interface{} {
	configPath := constants.GetConfigPath()
	_, statErr := os.Stat(configPath)
	return map[string]interface{}{
		"configured":    c.IsConfigured(),
		"api_key_set":   c.APIKey != "",
		"base_url":      c.BaseURL,
		"config_file":   configPath,
		"config_exists": statErr == nil,
	}
}

// Clear removes the configuration file.
func Clear() error {
	configPath := constants.GetConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(configPath)
}
