package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bibfix/src/internal/config"
	"bibfix/src/internal/logging"
)

// loadApp resolves the config, applies flag overrides, and builds the
// logger. args may carry an optional manuscript directory; it defaults to
// the current directory.
func loadApp(args []string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	root := cfg.Root
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", abs)
	}
	cfg.Root = abs

	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// confirm prompts on the command's input stream and accepts y/yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprint(out, prompt)
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		return false
	}
	resp := strings.ToLower(strings.TrimSpace(sc.Text()))
	return resp == "y" || resp == "yes"
}
