package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bibfix/src/internal/curate"
	"bibfix/src/internal/report"
	"bibfix/src/internal/validate"
)

func newPolishCmd() *cobra.Command {
	var noBackup bool
	var yes bool
	var preserveKeys bool
	var noTools bool
	cmd := &cobra.Command{
		Use:   "polish [dir]",
		Short: "Validate, curate, then validate again",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadApp(args)
			if err != nil {
				return err
			}
			if !yes {
				prompt := fmt.Sprintf("Proceed with polishing? This will modify files under %s in place. [y/N]: ", cfg.Root)
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			out := cmd.OutOrStdout()
			tty := report.IsTerminal(os.Stdout)

			_, _ = fmt.Fprintln(out, "Step 1: initial validation")
			before, err := validate.Run(cfg.Root)
			if err != nil {
				return err
			}
			renderValidation(out, before, tty)

			_, _ = fmt.Fprintln(out, "Step 2: curation")
			opts := curate.Options{
				Backups:      cfg.Backup.Enabled && !noBackup,
				PreserveKeys: preserveKeys,
				UseTools:     cfg.Tools.Enabled && !noTools,
			}
			if err := runCurate(cmd, cfg, log, opts); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(out, "Step 3: final validation")
			after, err := validate.Run(cfg.Root)
			if err != nil {
				return err
			}
			renderValidation(out, after, tty)
			if !after.OK() {
				return fmt.Errorf("validation failed after curation")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "skip creating backup files")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&preserveKeys, "preserve-keys", false, "never rename citation keys")
	cmd.Flags().BoolVar(&noTools, "no-tools", false, "skip external updater and formatter")
	return cmd
}
