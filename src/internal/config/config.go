// Package config loads bibfix configuration from TOML.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Tools configures the external helper binaries. Everything here is
// optional; when a tool is missing or disabled the pipeline falls back to
// its local heuristics.
type Tools struct {
	Enabled           bool   `toml:"enabled"`
	Updater           string `toml:"updater"`
	Formatter         string `toml:"formatter"`
	UpdateTimeout     int    `toml:"update_timeout"`
	AbbreviateTimeout int    `toml:"abbreviate_timeout"`
	FormatTimeout     int    `toml:"format_timeout"`
	FormatIndent      int    `toml:"format_indent"`
	FormatAlign       int    `toml:"format_align"`
}

// Abbreviations points at an optional user override table.
type Abbreviations struct {
	Overrides string `toml:"overrides"`
}

// Backup controls the backup-then-overwrite behaviour.
type Backup struct {
	Enabled bool   `toml:"enabled"`
	Suffix  string `toml:"suffix"`
}

// Logging selects log level and output format.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for bibfix.
type Config struct {
	Root          string        `toml:"root"`
	Tools         Tools         `toml:"tools"`
	Abbreviations Abbreviations `toml:"abbreviations"`
	Backup        Backup        `toml:"backup"`
	Logging       Logging       `toml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Root: ".",
		Tools: Tools{
			Enabled:           true,
			Updater:           "betterbib",
			Formatter:         "bibfmt",
			UpdateTimeout:     300,
			AbbreviateTimeout: 60,
			FormatTimeout:     60,
			FormatIndent:      2,
			FormatAlign:       14,
		},
		Backup:  Backup{Enabled: true, Suffix: ".backup"},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".config", "bibfix", "config.toml"), nil
}

// Load reads a config file, layering it over defaults. A missing file at
// the default location is fine; a named file that does not exist, or any
// parse error, is fatal.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		c.Root = "."
	}
	if c.Tools.UpdateTimeout < 0 || c.Tools.AbbreviateTimeout < 0 || c.Tools.FormatTimeout < 0 {
		return errors.New("config: tool timeouts must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: unsupported log format %q", c.Logging.Format)
	}
	return nil
}

// Sample returns the embedded sample configuration text.
func Sample() string { return sampleConfig }
