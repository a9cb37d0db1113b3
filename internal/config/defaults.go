package config

// Defaults returns the keyring's default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.shroud",
		Derivation: DerivationConfig{
			DefaultAccount: 0,
			DefaultChain:   "nam",
		},
		Security: SecurityConfig{
			ScryptLogN:        15,
			AutoLockSeconds:   0, // disabled by default
			SessionEnabled:    true,
			SessionTTLMinutes: 15,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.shroud/shroud.log",
		},
	}
}
