package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/illarion/pwvault/internal/core"
)

const (
	EnvPath        = "PWVAULT_PATH"
	EnvLogLevel    = "PWVAULT_LOG_LEVEL"
	EnvIdleTimeout = "PWVAULT_IDLE_TIMEOUT"
	EnvHistory     = "PWVAULT_HISTORY"
)

const (
	DefaultRelPath  = ".vault/vault.dat"
	DefaultHistory  = 20
	DefaultLogLevel = zerolog.WarnLevel
)

// Config holds the settings shared by every command.
type Config struct {
	VaultPath   string
	LogLevel    zerolog.Level
	IdleTimeout time.Duration
	// HistoryKeep is the number of snapshots kept; zero disables history.
	HistoryKeep int
}

// Flags binds the global flags. Values are resolved by Load: a flag set on
// the command line wins over the environment, which wins over the default.
type Flags struct {
	fs          *flag.FlagSet
	vault       string
	debug       bool
	logLevel    string
	idleTimeout time.Duration
	history     int
}

// AddFlags registers the global flags on fs.
func AddFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.vault, "vault", "f", "", "Vault file (default ~/"+DefaultRelPath+", env "+EnvPath+")")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (env "+EnvLogLevel+")")
	fs.DurationVar(&f.idleTimeout, "idle-timeout", core.DefaultIdleTimeout, "Lock after this long without activity (env "+EnvIdleTimeout+")")
	fs.IntVar(&f.history, "history", DefaultHistory, "Snapshots to keep, 0 disables history (env "+EnvHistory+")")
	return f
}

// Load resolves the configuration after the flag set has been parsed.
// getenv is os.Getenv outside of tests.
func (f *Flags) Load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		LogLevel:    DefaultLogLevel,
		IdleTimeout: f.idleTimeout,
		HistoryKeep: f.history,
	}

	path := f.vault
	if !f.fs.Changed("vault") {
		path = getenv(EnvPath)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		path = filepath.Join(home, DefaultRelPath)
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	cfg.VaultPath = expanded

	level := f.logLevel
	if !f.fs.Changed("log-level") {
		level = getenv(EnvLogLevel)
	}
	if level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.LogLevel = lvl
	}
	if f.debug {
		cfg.LogLevel = zerolog.DebugLevel
	}

	if !f.fs.Changed("idle-timeout") {
		if v := getenv(EnvIdleTimeout); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", EnvIdleTimeout, v, err)
			}
			cfg.IdleTimeout = d
		}
	}
	if cfg.IdleTimeout < 0 {
		return nil, fmt.Errorf("idle timeout must not be negative: %s", cfg.IdleTimeout)
	}

	if !f.fs.Changed("history") {
		if v := getenv(EnvHistory); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", EnvHistory, v, err)
			}
			cfg.HistoryKeep = n
		}
	}
	if cfg.HistoryKeep < 0 {
		return nil, fmt.Errorf("history must not be negative: %d", cfg.HistoryKeep)
	}

	return cfg, nil
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

// NewLogger returns a console logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(c.LogLevel).
		With().Timestamp().Logger()
}
