package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"bibfix/src/internal/report"
	"bibfix/src/internal/validate"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check citations, crossrefs, and duplicates without modifying files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadApp(args)
			if err != nil {
				return err
			}
			res, err := validate.Run(cfg.Root)
			if err != nil {
				return err
			}
			renderValidation(cmd.OutOrStdout(), res, report.IsTerminal(os.Stdout))
			if !res.OK() {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
	return cmd
}

func renderValidation(w io.Writer, res *validate.Result, tty bool) {
	listSection(w, "Citations with no bibliography entry", res.MissingCitations)
	listSection(w, "Citations resolved only by commented-out entries", res.CommentedCitations)
	listSection(w, "Unresolved crossref targets", res.UnresolvedCrossrefs)
	listSection(w, "Duplicate citation keys", res.DuplicateKeys)
	listSection(w, "DOIs shared by multiple keys", res.DuplicateDOIs)
	listSection(w, "Titles shared by multiple keys", res.DuplicateTitles)
	if res.UnescapedPercent > 0 {
		_, _ = fmt.Fprintf(w, "Unescaped %% characters in field values: %d\n\n", res.UnescapedPercent)
	}
	for _, warn := range res.Warnings {
		_, _ = fmt.Fprintf(w, "warning: %s\n", warn)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if tty {
		tw.SetStyle(table.StyleRounded)
	}
	tw.AppendHeader(table.Row{"File", "Entries", "DOI", "Title", "Author", "Year"})
	for _, s := range res.Stats {
		tw.AppendRow(table.Row{s.Path, s.Entries, s.WithDOI, s.WithTitle, s.WithAuthor, s.WithYear})
	}
	tw.Render()

	if res.OK() {
		_, _ = fmt.Fprintln(w, "Bibliography is valid.")
	}
}

func listSection(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "%s (%d):\n", title, len(items))
	for _, it := range items {
		_, _ = fmt.Fprintf(w, "  %s\n", it)
	}
	_, _ = fmt.Fprintln(w)
}
