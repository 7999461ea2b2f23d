// Package config loads rubyvm.yml, the optional settings file of the driver.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up in the working directory.
const FileName = "rubyvm.yml"

// EnvVar names the environment variable that points at a settings file.
const EnvVar = "RUBYVM_CONFIG"

// Config holds the driver settings.
type Config struct {
	LogLevel     string `yaml:"log_level"`
	Dump         string `yaml:"dump"`
	HistoryFile  string `yaml:"history_file"`
	Prompt       string `yaml:"prompt"`
	MaxCallDepth int    `yaml:"max_call_depth"`

	// Path is the file the settings came from; empty for defaults.
	Path string `yaml:"-"`
}

// Default returns the settings used when no file is found.
func Default() *Config {
	history := ""
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		history = filepath.Join(home, ".rubyvm_history")
	}
	return &Config{
		LogLevel:     "warn",
		Dump:         "none",
		HistoryFile:  history,
		Prompt:       "irb> ",
		MaxCallDepth: 10000,
	}
}

var (
	logLevels = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	dumpModes = []string{"none", "tokens", "ast", "code", "yaml"}
)

// ValidationError reports an invalid value for a key.
type ValidationError struct {
	Path  string
	Key   string
	Issue string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s %s", e.Path, e.Key, e.Issue)
}

// Load reads the settings in path over the defaults. Keys that Config does not
// know are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Path = path
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find resolves the settings file: flagPath, then $RUBYVM_CONFIG, then
// rubyvm.yml in the working directory. A missing default file yields the
// defaults; an explicitly named file must exist.
func Find(flagPath string) (*Config, error) {
	if flagPath != "" {
		return Load(flagPath)
	}
	if env := os.Getenv(EnvVar); env != "" {
		return Load(env)
	}
	if _, err := os.Stat(FileName); err == nil {
		return Load(FileName)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", FileName, err)
	}
	return Default(), nil
}

func (c *Config) validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	if _, ok := logLevels[c.LogLevel]; !ok {
		return &ValidationError{c.Path, "log_level", fmt.Sprintf("must be one of debug, info, warn, error (got %q)", c.LogLevel)}
	}
	if !ValidDump(c.Dump) {
		return &ValidationError{c.Path, "dump", fmt.Sprintf("must be one of %s (got %q)", strings.Join(dumpModes, ", "), c.Dump)}
	}
	if c.MaxCallDepth <= 0 {
		return &ValidationError{c.Path, "max_call_depth", fmt.Sprintf("must be positive (got %d)", c.MaxCallDepth)}
	}
	if strings.HasPrefix(c.HistoryFile, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.HistoryFile = filepath.Join(home, c.HistoryFile[2:])
		}
	}
	return nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	return logLevels[c.LogLevel]
}

// ValidDump reports whether mode is a known dump mode.
func ValidDump(mode string) bool {
	for _, m := range dumpModes {
		if m == mode {
			return true
		}
	}
	return false
}
