package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:          "bibfix",
	Short:        "Repair and curate LaTeX bibliographies (.bib + .tex)",
	SilenceUsage: true,
}

func execute() error {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default ~/.config/bibfix/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console or json")
	// Attach subcommands
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newCurateCmd())
	rootCmd.AddCommand(newPolishCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd.Execute()
}

func main() {
	if err := execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
