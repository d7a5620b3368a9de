package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/pwvault/internal/core"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func load(t *testing.T, args []string, vars map[string]string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return f.Load(env(vars))
}

func TestDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := load(t, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, DefaultRelPath), cfg.VaultPath)
	assert.Equal(t, zerolog.WarnLevel, cfg.LogLevel)
	assert.Equal(t, core.DefaultIdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, DefaultHistory, cfg.HistoryKeep)
}

func TestEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(t, nil, map[string]string{
		EnvPath:        filepath.Join(dir, "v.dat"),
		EnvLogLevel:    "INFO",
		EnvIdleTimeout: "90s",
		EnvHistory:     "3",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "v.dat"), cfg.VaultPath)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 3, cfg.HistoryKeep)
}

func TestFlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(t,
		[]string{"-f", filepath.Join(dir, "flag.dat"), "--log-level", "error", "--idle-timeout", "0", "--history", "0"},
		map[string]string{
			EnvPath:        filepath.Join(dir, "env.dat"),
			EnvLogLevel:    "info",
			EnvIdleTimeout: "1m",
			EnvHistory:     "7",
		})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "flag.dat"), cfg.VaultPath)
	assert.Equal(t, zerolog.ErrorLevel, cfg.LogLevel)
	assert.Zero(t, cfg.IdleTimeout)
	assert.Zero(t, cfg.HistoryKeep)
}

func TestDebugFlagWins(t *testing.T) {
	cfg, err := load(t, []string{"--debug", "--log-level", "error"}, map[string]string{EnvPath: "/tmp/v.dat"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
}

func TestInvalidValues(t *testing.T) {
	base := map[string]string{EnvPath: "/tmp/v.dat"}
	cases := map[string]map[string]string{
		"log level":    {EnvLogLevel: "loud"},
		"idle timeout": {EnvIdleTimeout: "soon"},
		"negative":     {EnvIdleTimeout: "-1m"},
		"history":      {EnvHistory: "many"},
		"neg history":  {EnvHistory: "-2"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range base {
				vars[k] = v
			}
			_, err := load(t, nil, vars)
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/secrets/v.dat")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "secrets", "v.dat"), got)

	got, err = ExpandPath("relative.dat")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: zerolog.WarnLevel}
	logger := cfg.NewLogger(&buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("path", "v.dat").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "v.dat")
}
