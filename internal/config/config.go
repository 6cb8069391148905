// Package config loads tablescrape settings.
//
// Settings are layered: built-in defaults, then the YAML config file
// (~/.config/tablescrape/config.yaml), then TABLESCRAPE_* environment
// variables, which may come from a .env file in the working directory.
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/tablescrape/internal/logger"
	"github.com/pfrederiksen/tablescrape/internal/scraper"
	"github.com/pfrederiksen/tablescrape/internal/storage"
)

// AppName is the application name used for the config directory
const AppName = "tablescrape"

// EnvPrefix prefixes every environment override
const EnvPrefix = "TABLESCRAPE_"

// Fetcher names
const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// Config holds CLI configuration
type Config struct {
	UserAgent    string        `yaml:"user_agent,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Parser       string        `yaml:"parser,omitempty"`  // html, utf8, fragment
	Fetcher      string        `yaml:"fetcher,omitempty"` // http, browser
	Class        string        `yaml:"class,omitempty"`
	DataDir      string        `yaml:"data_dir,omitempty"`
	OutputFormat string        `yaml:"output_format,omitempty"`
	LogLevel     string        `yaml:"log_level,omitempty"`
	BrowserBin   string        `yaml:"browser_bin,omitempty"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		UserAgent: scraper.UserAgent,
		Timeout:   scraper.Timeout,
		Parser:    scraper.DefaultParser,
		Fetcher:   FetcherHTTP,
		Class:     "wikitable",
		DataDir:   storage.DefaultDataDir,
		LogLevel:  "warn",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// DefaultConfigPath returns the default config file path
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads config from path on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save saves config to the given path
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from TABLESCRAPE_* variables found by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"USER_AGENT":  &c.UserAgent,
		"PARSER":      &c.Parser,
		"FETCHER":     &c.Fetcher,
		"CLASS":       &c.Class,
		"DATA_DIR":    &c.DataDir,
		"FORMAT":      &c.OutputFormat,
		"LOG_LEVEL":   &c.LogLevel,
		"BROWSER_BIN": &c.BrowserBin,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		d, err := ParseTimeout(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	return nil
}

// ParseTimeout accepts a Go duration ("45s", "2m") or a bare number of seconds
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative timeout %q", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %q", s)
	}
	return d, nil
}

// Validate checks the settings that can be checked without other packages' context
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	switch c.Fetcher {
	case FetcherHTTP, FetcherBrowser:
	default:
		return fmt.Errorf("invalid fetcher %q (valid: %s, %s)", c.Fetcher, FetcherHTTP, FetcherBrowser)
	}
	if _, err := scraper.LookupParser(c.Parser); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Resolve loads the config file at path (or the default path when empty)
// and applies environment overrides.
func Resolve(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}
