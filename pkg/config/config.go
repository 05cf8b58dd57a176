// Package config loads boxel settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/boxel/pkg/budget"
	"github.com/chazu/boxel/pkg/bundler"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "~/.config/boxel/config.toml"

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config is the full settings tree.
type Config struct {
	Server    Server            `toml:"server"`
	Build     Build             `toml:"build"`
	Libraries map[string]string `toml:"libraries"`
	History   History           `toml:"history"`
}

// Server configures the studio build server.
type Server struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// Build configures bundling and size accounting.
type Build struct {
	MaxSizeKB    float64  `toml:"max_size_kb"`
	Optimization string   `toml:"optimization"`
	Format       string   `toml:"format"`
	Minify       bool     `toml:"minify"`
	EntryOnly    bool     `toml:"entry_only"`
	Entry        string   `toml:"entry"`
	Timeout      Duration `toml:"timeout"`
	ContentBase  string   `toml:"content_base"`
}

// History configures the build history database.
type History struct {
	Path string `toml:"path"`
}

// Duration is a time.Duration read from strings such as "10s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: Server{
			Addr:         "127.0.0.1:3000",
			ReadTimeout:  Duration{10 * time.Second},
			WriteTimeout: Duration{10 * time.Second},
		},
		Build: Build{
			MaxSizeKB:    budget.DefaultMaxSizeKB,
			Optimization: string(budget.OptimizeNone),
			Format:       string(budget.FormatHTML),
			Timeout:      Duration{bundler.DefaultTimeout},
			ContentBase:  bundler.DefaultContentBase,
		},
		Libraries: map[string]string{},
		History:   History{Path: "~/.config/boxel/history.db"},
	}
}

// Load reads path (DefaultPath when empty) over the defaults, then applies
// BOXEL_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	p, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", p, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.normalize()
}

// Save writes cfg as TOML to path, creating parent directories.
func Save(path string, cfg Config) error {
	p, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (c *Config) applyEnv() error {
	c.Server.Addr = getEnv("BOXEL_ADDR", c.Server.Addr)
	c.Build.Optimization = getEnv("BOXEL_OPTIMIZATION", c.Build.Optimization)
	c.Build.Format = getEnv("BOXEL_FORMAT", c.Build.Format)
	c.Build.Entry = getEnv("BOXEL_ENTRY", c.Build.Entry)
	c.Build.ContentBase = getEnv("BOXEL_CONTENT_BASE", c.Build.ContentBase)
	c.History.Path = getEnv("BOXEL_HISTORY", c.History.Path)

	var err error
	if c.Build.MaxSizeKB, err = getEnvAsFloat("BOXEL_MAX_SIZE_KB", c.Build.MaxSizeKB); err != nil {
		return err
	}
	if c.Build.Minify, err = getEnvAsBool("BOXEL_MINIFY", c.Build.Minify); err != nil {
		return err
	}
	if c.Build.EntryOnly, err = getEnvAsBool("BOXEL_ENTRY_ONLY", c.Build.EntryOnly); err != nil {
		return err
	}
	if c.Build.Timeout.Duration, err = getEnvAsDuration("BOXEL_BUILD_TIMEOUT", c.Build.Timeout.Duration); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalize() error {
	c.Build.MaxSizeKB = budget.ClampMaxSizeKB(c.Build.MaxSizeKB)
	if _, err := budget.ParseOptimization(c.Build.Optimization); err != nil {
		return fmt.Errorf("config: build.optimization: %w", err)
	}
	if _, err := budget.ParseFormat(c.Build.Format); err != nil {
		return fmt.Errorf("config: build.format: %w", err)
	}
	if c.Build.Timeout.Duration <= 0 {
		c.Build.Timeout.Duration = bundler.DefaultTimeout
	}
	if c.Libraries == nil {
		c.Libraries = map[string]string{}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Derived settings
// ---------------------------------------------------------------------------

// BundlerOptions returns the bundler options described by the build section.
func (c Config) BundlerOptions() bundler.Options {
	opts := bundler.DefaultOptions()
	opts.Entry = c.Build.Entry
	opts.EntryOnly = c.Build.EntryOnly
	opts.Minify = c.Build.Minify
	opts.ContentBase = c.Build.ContentBase
	opts.Timeout = c.Build.Timeout.Duration
	if len(c.Libraries) > 0 {
		opts.Libraries = c.Libraries
	}
	return opts
}

// BudgetSettings returns the size-accounting settings of the build section.
// Values that do not parse fall back to the defaults.
func (c Config) BudgetSettings() budget.Settings {
	s := budget.DefaultSettings()
	if o, err := budget.ParseOptimization(c.Build.Optimization); err == nil {
		s.Optimization = o
	}
	if f, err := budget.ParseFormat(c.Build.Format); err == nil {
		s.Format = f
	}
	s.MaxSizeKB = budget.ClampMaxSizeKB(c.Build.MaxSizeKB)
	return s
}

// HistoryPath returns the expanded history database path.
func (c Config) HistoryPath() (string, error) {
	return homedir.Expand(c.History.Path)
}

// ---------------------------------------------------------------------------
// Environment helpers
// ---------------------------------------------------------------------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultVal, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func getEnvAsBool(key string, defaultVal bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultVal, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getEnvAsDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultVal, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
