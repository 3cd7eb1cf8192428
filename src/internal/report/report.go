// Package report accumulates what a run changed and renders the
// human-readable change report.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
)

// Step is one pipeline action and how many items it touched.
type Step struct {
	Name  string
	Count int
}

// FileStats summarises one bibliography file after the run.
type FileStats struct {
	Path       string
	Entries    int
	WithDOI    int
	WithTitle  int
	WithAuthor int
	WithYear   int
}

// Report collects everything a run did.
type Report struct {
	RunID    string
	Started  time.Time
	steps    []Step
	warnings []string
	mappings map[string]string
	stats    []FileStats
}

// New returns an empty report tagged with a fresh run ID.
func New() *Report {
	return &Report{
		RunID:    uuid.NewString(),
		Started:  time.Now(),
		mappings: map[string]string{},
	}
}

// Add records a pipeline step. Zero-count steps are kept; showing that a
// step ran and found nothing is part of the report.
func (r *Report) Add(name string, count int) {
	r.steps = append(r.steps, Step{Name: name, Count: count})
}

// Warn records a non-fatal problem for the report footer.
func (r *Report) Warn(msg string) {
	r.warnings = append(r.warnings, msg)
}

// MapKey records a citation key rename.
func (r *Report) MapKey(oldKey, newKey string) {
	r.mappings[oldKey] = newKey
}

// MergeMapping folds a batch of key renames into the report.
func (r *Report) MergeMapping(m map[string]string) {
	for oldKey, newKey := range m {
		r.mappings[oldKey] = newKey
	}
}

// Mapping returns the accumulated key renames.
func (r *Report) Mapping() map[string]string { return r.mappings }

// AddFileStats records the post-run shape of one file.
func (r *Report) AddFileStats(s FileStats) {
	r.stats = append(r.stats, s)
}

// Warnings returns the recorded warnings.
func (r *Report) Warnings() []string { return r.warnings }

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Render writes the change report. Terminals get rounded boxes; pipes and
// files get plain ASCII.
func (r *Report) Render(w io.Writer, tty bool) {
	style := table.StyleDefault
	if tty {
		style = table.StyleRounded
	}

	fmt.Fprintf(w, "bibfix run %s (%s)\n\n", r.RunID, r.Started.Format(time.RFC3339))

	if len(r.steps) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(style)
		tw.AppendHeader(table.Row{"step", "changes"})
		for _, s := range r.steps {
			tw.AppendRow(table.Row{s.Name, s.Count})
		}
		tw.Render()
		fmt.Fprintln(w)
	}

	if len(r.mappings) > 0 {
		olds := make([]string, 0, len(r.mappings))
		for old := range r.mappings {
			olds = append(olds, old)
		}
		sort.Strings(olds)
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(style)
		tw.AppendHeader(table.Row{"old key", "new key"})
		for _, old := range olds {
			tw.AppendRow(table.Row{old, r.mappings[old]})
		}
		tw.Render()
		fmt.Fprintln(w)
	}

	if len(r.stats) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(style)
		tw.AppendHeader(table.Row{"file", "entries", "doi", "title", "author", "year"})
		for _, s := range r.stats {
			tw.AppendRow(table.Row{s.Path, s.Entries, pct(s.WithDOI, s.Entries), pct(s.WithTitle, s.Entries), pct(s.WithAuthor, s.Entries), pct(s.WithYear, s.Entries)})
		}
		tw.Render()
		fmt.Fprintln(w)
	}

	if len(r.warnings) > 0 {
		fmt.Fprintf(w, "%d warning(s):\n", len(r.warnings))
		for _, msg := range r.warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
}

func pct(n, total int) string {
	if total == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%d (%.1f%%)", n, 100*float64(n)/float64(total))
}
