package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LAZYLOAD_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-dir", os.Getenv("LAZYLOAD_BASE_DIR"), &cfg.BaseDir)
	s.setString("base-url", os.Getenv("LAZYLOAD_BASE_URL"), &cfg.BaseURL)
	s.setString("auth-token", os.Getenv("LAZYLOAD_AUTH_TOKEN"), &cfg.AuthToken)
	s.setString("log-level", os.Getenv("LAZYLOAD_LOG_LEVEL"), &cfg.LogLevel)
	s.setListFromString("bootstrap", os.Getenv("LAZYLOAD_BOOTSTRAP"), &cfg.Bootstrap)

	if err := s.setDuration("timeout", os.Getenv("LAZYLOAD_FETCH_TIMEOUT"), &cfg.FetchTimeout); err != nil {
		return err
	}
	if err := s.setIntFromString("concurrency", os.Getenv("LAZYLOAD_CONCURRENCY"), &cfg.Concurrency); err != nil {
		return err
	}

	s.setBoolFromString("pretty", os.Getenv("LAZYLOAD_PRETTY"), &cfg.Pretty)

	return nil
}
