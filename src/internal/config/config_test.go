package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Tools.Updater != "betterbib" || cfg.Tools.Formatter != "bibfmt" {
		t.Fatalf("tools: %+v", cfg.Tools)
	}
	if cfg.Tools.UpdateTimeout != 300 || cfg.Tools.FormatTimeout != 60 {
		t.Fatalf("timeouts: %+v", cfg.Tools)
	}
	if !cfg.Backup.Enabled || cfg.Backup.Suffix != ".backup" {
		t.Fatalf("backup: %+v", cfg.Backup)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
root = "/tmp/paper"

[tools]
enabled = false
updater = "mybib"

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Root != "/tmp/paper" || cfg.Tools.Enabled || cfg.Tools.Updater != "mybib" {
		t.Fatalf("cfg: %+v", cfg)
	}
	// unset values keep their defaults
	if cfg.Tools.Formatter != "bibfmt" {
		t.Fatalf("formatter default lost: %q", cfg.Tools.Formatter)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging: %+v", cfg.Logging)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("want error for missing explicit config")
	}
}

func TestLoadParseErrorFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("tools = {{{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("want parse error")
	}
}

func TestValidateRejectsNegativeTimeout(t *testing.T) {
	cfg := Default()
	cfg.Tools.UpdateTimeout = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for negative timeout")
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for unknown log format")
	}
}

func TestSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := os.WriteFile(path, []byte(Sample()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !strings.Contains(Sample(), "[tools]") {
		t.Fatal("sample missing tools section")
	}
}
