package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bibfix/src/internal/abbrev"
	"bibfix/src/internal/backup"
	"bibfix/src/internal/config"
	"bibfix/src/internal/curate"
	"bibfix/src/internal/extern"
	"bibfix/src/internal/report"
)

func newCurateCmd() *cobra.Command {
	var noBackup bool
	var yes bool
	var preserveKeys bool
	var noTools bool
	cmd := &cobra.Command{
		Use:   "curate [dir]",
		Short: "Repair, deduplicate, and prune the bibliography in place",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadApp(args)
			if err != nil {
				return err
			}
			if !yes {
				prompt := fmt.Sprintf("This will modify .bib and .tex files under %s. Continue? [y/N]: ", cfg.Root)
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			opts := curate.Options{
				Backups:      cfg.Backup.Enabled && !noBackup,
				PreserveKeys: preserveKeys,
				UseTools:     cfg.Tools.Enabled && !noTools,
			}
			return runCurate(cmd, cfg, log, opts)
		},
	}
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "skip creating backup files")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&preserveKeys, "preserve-keys", false, "never rename citation keys")
	cmd.Flags().BoolVar(&noTools, "no-tools", false, "skip external updater and formatter")
	return cmd
}

// runCurate holds the shared curation body used by both curate and polish.
func runCurate(cmd *cobra.Command, cfg *config.Config, log *slog.Logger, opts curate.Options) error {
	lock, err := backup.Acquire(cfg.Root)
	if err != nil {
		return err
	}
	defer lock.Release()

	abbr := abbrev.Builtin()
	if cfg.Abbreviations.Overrides != "" {
		if err := abbr.LoadOverrides(cfg.Abbreviations.Overrides); err != nil {
			return err
		}
	}
	ext := extern.New(cfg.Tools, log)
	cur := curate.New(cfg, log, ext, abbr)
	runErr := cur.Run(cmd.Context(), opts)
	cur.Report().Render(cmd.OutOrStdout(), report.IsTerminal(os.Stdout))
	return runErr
}
