// Package file persists application settings as a TOML file in the
// korpus config directory. A missing file loads as the defaults, so a
// fresh install works without any setup step.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore reads and writes settings at <configDir>/config.toml.
type ConfigStore struct {
	mu       sync.Mutex
	filePath string
}

// NewConfigStore creates a TOML settings store. If configDir is empty,
// it defaults to ~/.korpus.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		configDir = filepath.Join(home, ".korpus")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	return &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Load reads the settings file. A missing file yields the full
// defaults; a partial file is filled in with defaults field by field.
func (s *ConfigStore) Load(_ context.Context) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			settings := domain.DefaultSettings()
			return &settings, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var settings domain.Settings
	if err := toml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	settings.ApplyDefaults()
	return &settings, nil
}

// Save writes the settings. Secrets live in this file, so permissions
// stay at 0600.
func (s *ConfigStore) Save(_ context.Context, settings *domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
