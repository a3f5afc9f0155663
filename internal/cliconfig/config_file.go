package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/lazyload/internal/domain"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	BaseDir      string                `toml:"base_dir"`
	BaseURL      string                `toml:"base_url"`
	AuthToken    string                `toml:"auth_token"`
	FetchTimeout string                `toml:"fetch_timeout"`
	Concurrency  int                   `toml:"concurrency"`
	Bootstrap    []string              `toml:"bootstrap"`
	LogLevel     string                `toml:"log_level"`
	Pretty       *bool                 `toml:"pretty"`
	Modules      []domain.ModuleConfig `toml:"modules"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.lazyload/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".lazyload", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map). Module
// configurations have no flag and are always appended.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-dir", fc.BaseDir, &cfg.BaseDir)
	s.setString("base-url", fc.BaseURL, &cfg.BaseURL)
	s.setString("auth-token", fc.AuthToken, &cfg.AuthToken)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setStrings("bootstrap", fc.Bootstrap, &cfg.Bootstrap)

	if err := s.setDuration("timeout", fc.FetchTimeout, &cfg.FetchTimeout); err != nil {
		return err
	}
	s.setInt("concurrency", fc.Concurrency, &cfg.Concurrency)
	s.setBool("pretty", fc.Pretty, &cfg.Pretty)

	cfg.Modules = append(cfg.Modules, fc.Modules...)
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
