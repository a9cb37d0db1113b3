package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

func TestApplyEnvironmentHome(t *testing.T) {
	withEnv(t, EnvHome, "  /custom/home  ")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	require.Equal(t, "/custom/home", cfg.Home)
}

func TestApplyEnvironmentDefaultChain(t *testing.T) {
	withEnv(t, EnvDefaultChain, "Penumbra")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	require.Equal(t, "penumbra", cfg.Derivation.DefaultChain)
}

func TestApplyEnvironmentOutputAndVerbose(t *testing.T) {
	withEnv(t, EnvOutputFormat, "JSON")
	withEnv(t, EnvVerbose, "yes")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	require.Equal(t, "json", cfg.Output.DefaultFormat)
	require.True(t, cfg.Output.Verbose)
}

func TestApplyEnvironmentLogLevel(t *testing.T) {
	withEnv(t, EnvLogLevel, "DEBUG")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnvironmentNoColor(t *testing.T) {
	withEnv(t, EnvNoColor, "1")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	require.Equal(t, "never", cfg.Output.Color)
}

func TestApplyEnvironmentSessionTTL(t *testing.T) {
	withEnv(t, EnvSessionTTL, "42")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	require.Equal(t, 42, cfg.Security.SessionTTLMinutes)
}

func TestApplyEnvironmentSessionTTLIgnoresInvalid(t *testing.T) {
	withEnv(t, EnvSessionTTL, "not-a-number")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	require.Equal(t, Defaults().Security.SessionTTLMinutes, cfg.Security.SessionTTLMinutes)
}

func TestApplyEnvironmentScryptLogNClamps(t *testing.T) {
	withEnv(t, EnvScryptLogN, "99")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	require.Equal(t, 22, cfg.Security.ScryptLogN)

	withEnv(t, EnvScryptLogN, "1")
	cfg2 := Defaults()
	ApplyEnvironment(cfg2)
	require.Equal(t, 10, cfg2.Security.ScryptLogN)
}

func TestParseBoolVariants(t *testing.T) {
	require.True(t, parseBool("TRUE"))
	require.True(t, parseBool("1"))
	require.True(t, parseBool(" on "))
	require.False(t, parseBool("nope"))
}
