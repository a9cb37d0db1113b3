package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shroudhq/shroud-keyring/internal/config"
	"github.com/shroudhq/shroud-keyring/internal/output"
	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify shroud configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.shroud/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  shroud config init
  shroud config init --force`,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the current configuration settings.

Example:
  shroud config show
  shroud config show -o json`,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.

Examples:
  shroud config get derivation.default_chain
  shroud config get output.default_format
  shroud config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.
The configuration file will be updated immediately.

Examples:
  shroud config set derivation.default_chain nam
  shroud config set output.default_format json
  shroud config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return keyerr.WithSuggestion(
			keyerr.New("CONFIG_EXISTS", fmt.Sprintf("configuration already exists at %s", configPath)),
			"use --force to overwrite",
		)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.Home

	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - derivation.default_chain: Default chain (stored only; account commands require --chain)")
	outln(w, "  - security.scrypt_log_n: scrypt work factor for new secrets")
	outln(w, "  - output.default_format: Output format (text/json)")
	outln(w, "  - logging.level: Log level (off/error/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	format := formatter.Format()

	if format == output.FormatJSON {
		return writeJSON(w, cfg)
	}

	outln(w, "Configuration:")
	outln(w)
	out(w, "  Home: %s\n", cfg.Home)
	outln(w)
	outln(w, "  Derivation:")
	out(w, "    default_account: %d\n", cfg.Derivation.DefaultAccount)
	out(w, "    default_chain:   %s\n", cfg.Derivation.DefaultChain)
	outln(w)
	outln(w, "  Security:")
	out(w, "    scrypt_log_n:        %d\n", cfg.Security.ScryptLogN)
	out(w, "    auto_lock_seconds:   %d\n", cfg.Security.AutoLockSeconds)
	out(w, "    session_enabled:     %t\n", cfg.Security.SessionEnabled)
	out(w, "    session_ttl_minutes: %d\n", cfg.Security.SessionTTLMinutes)
	outln(w)
	outln(w, "  Output:")
	out(w, "    default_format: %s\n", cfg.Output.DefaultFormat)
	out(w, "    verbose:        %t\n", cfg.Output.Verbose)
	out(w, "    color:          %s\n", cfg.Output.Color)
	outln(w)
	outln(w, "  Logging:")
	out(w, "    level: %s\n", cfg.Logging.Level)
	out(w, "    file:  %s\n", cfg.Logging.File)

	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	path := args[0]

	value, err := getConfigValue(cfg, path)
	if err != nil {
		return err
	}

	outln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path := args[0]
	value := args[1]

	if _, err := getConfigValue(cfg, path); err != nil {
		return err
	}

	configPath := config.Path(cfg.Home)
	currentCfg, err := config.Load(configPath)
	if err != nil {
		currentCfg = config.Defaults()
	}

	if err := setConfigValue(currentCfg, path, value); err != nil {
		return err
	}

	if err := config.Save(currentCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

func unknownConfigKey(key string) error {
	return keyerr.WithDetails(keyerr.New("UNKNOWN_CONFIG_KEY", "unrecognized configuration path"), map[string]string{"key": key})
}

// getConfigValue retrieves a value from the config using dot notation.
func getConfigValue(c *config.Config, path string) (string, error) {
	parts := strings.Split(path, ".")

	switch len(parts) {
	case 1:
		if parts[0] == "home" {
			return c.Home, nil
		}
		return "", unknownConfigKey(path)
	case 2:
		switch parts[0] {
		case "derivation":
			switch parts[1] {
			case "default_account":
				return fmt.Sprintf("%d", c.Derivation.DefaultAccount), nil
			case "default_chain":
				return c.Derivation.DefaultChain, nil
			}
		case "security":
			switch parts[1] {
			case "scrypt_log_n":
				return fmt.Sprintf("%d", c.Security.ScryptLogN), nil
			case "auto_lock_seconds":
				return fmt.Sprintf("%d", c.Security.AutoLockSeconds), nil
			case "session_enabled":
				return fmt.Sprintf("%t", c.Security.SessionEnabled), nil
			case "session_ttl_minutes":
				return fmt.Sprintf("%d", c.Security.SessionTTLMinutes), nil
			}
		case "output":
			switch parts[1] {
			case "default_format":
				return c.Output.DefaultFormat, nil
			case "verbose":
				return fmt.Sprintf("%t", c.Output.Verbose), nil
			case "color":
				return c.Output.Color, nil
			}
		case "logging":
			switch parts[1] {
			case "level":
				return c.Logging.Level, nil
			case "file":
				return c.Logging.File, nil
			}
		}
		return "", unknownConfigKey(path)
	default:
		return "", unknownConfigKey(path)
	}
}

// setConfigValue sets a value in the config using dot notation.
func setConfigValue(c *config.Config, path, value string) error {
	parts := strings.Split(path, ".")
	if len(parts) != 2 {
		if len(parts) == 1 && parts[0] == "home" {
			c.Home = value
			return nil
		}
		return unknownConfigKey(path)
	}

	switch parts[0] {
	case "derivation":
		switch parts[1] {
		case "default_chain":
			c.Derivation.DefaultChain = value
			return nil
		}
	case "output":
		switch parts[1] {
		case "default_format":
			if value != "text" && value != "json" && value != "auto" {
				return keyerr.WithDetails(keyerr.New("INVALID_FORMAT", "invalid output format"), map[string]string{"value": value, "valid": "text, json, or auto"})
			}
			c.Output.DefaultFormat = value
			return nil
		case "verbose":
			c.Output.Verbose = value == "true"
			return nil
		case "color":
			if value != "auto" && value != "always" && value != "never" {
				return keyerr.WithDetails(keyerr.New("INVALID_FORMAT", "invalid color setting"), map[string]string{"value": value, "valid": "auto, always, or never"})
			}
			c.Output.Color = value
			return nil
		}
	case "logging":
		switch parts[1] {
		case "level":
			for _, l := range []string{"off", "error", "debug"} {
				if value == l {
					c.Logging.Level = value
					return nil
				}
			}
			return keyerr.WithDetails(keyerr.New("INVALID_FORMAT", "invalid log level"), map[string]string{"value": value, "valid": "off, error, or debug"})
		case "file":
			c.Logging.File = value
			return nil
		}
	}
	return unknownConfigKey(path)
}
