// Package config provides configuration management for the keyring: the
// on-disk YAML shape, its defaults, and environment-variable overrides.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the keyring's on-disk configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Home       string           `yaml:"home"`
	Derivation DerivationConfig `yaml:"derivation"`
	Security   SecurityConfig   `yaml:"security"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Warnings   []string         `yaml:"-"`
}

// DerivationConfig holds default account and chain settings for the
// transparent and shielded hierarchies (spec.md §4.2, §4.3). The CLI shows
// and sets them; account commands take their account index and chain from
// flags and do not read these values.
type DerivationConfig struct {
	DefaultAccount uint32 `yaml:"default_account"`
	DefaultChain   string `yaml:"default_chain"`
}

// SecurityConfig holds the scrypt work factor setting plus auto-lock and
// session settings; the auto-lock and session settings are stored and shown
// but not read by any command.
type SecurityConfig struct {
	ScryptLogN        int  `yaml:"scrypt_log_n"`
	AutoLockSeconds   int  `yaml:"auto_lock_seconds"`
	SessionEnabled    bool `yaml:"session_enabled"`
	SessionTTLMinutes int  `yaml:"session_ttl_minutes"`
}

// OutputConfig controls CLI result formatting.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig controls the keyring's structured log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from path, falling back to Defaults() for any
// field the file leaves unset.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path, creating its parent directory if needed.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path under home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the keyring's home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// GetSecurity returns the security configuration.
func (c *Config) GetSecurity() SecurityConfig {
	return c.Security
}

// DefaultHome returns the default keyring home directory, $HOME/.shroud.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shroud"
	}
	return filepath.Join(home, ".shroud")
}
