// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Editor   EditorConfig      `toml:"editor"`
	Backend  BackendConfig     `toml:"backend"`
	Backends map[string]string `toml:"backends"`
	Log      LogConfig         `toml:"log"`
	Store    StoreConfig       `toml:"store"`
}

// EditorConfig maps input capture settings.
type EditorConfig struct {
	DebounceMs *int `toml:"debounce-ms"`
	MinLength  *int `toml:"min-length"`
}

// BackendConfig maps HTTP client settings.
type BackendConfig struct {
	TimeoutSeconds *int `toml:"timeout-seconds"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// StoreConfig maps persistence settings.
type StoreConfig struct {
	Path *string `toml:"path"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
