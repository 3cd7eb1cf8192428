package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bibfix/src/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultPath()
			if err == nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# Save as %s\n", path)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), config.Sample())
			return nil
		},
	}
	return cmd
}
