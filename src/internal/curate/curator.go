package curate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bibfix/src/internal/abbrev"
	"bibfix/src/internal/backup"
	"bibfix/src/internal/bibtex"
	"bibfix/src/internal/config"
	"bibfix/src/internal/extern"
	"bibfix/src/internal/fixes"
	"bibfix/src/internal/report"
	"bibfix/src/internal/texscan"
)

// Options control which parts of the pipeline run.
type Options struct {
	// Backups writes a copy of every file before it is modified.
	Backups bool
	// PreserveKeys skips every pass that would rename a citation key.
	PreserveKeys bool
	// UseTools allows running the external updater and formatter.
	UseTools bool
}

// Curator runs the full repair pipeline over a manuscript directory.
type Curator struct {
	cfg  *config.Config
	log  *slog.Logger
	ext  *extern.Client
	abbr *abbrev.Table
	rep  *report.Report
}

func New(cfg *config.Config, log *slog.Logger, ext *extern.Client, abbr *abbrev.Table) *Curator {
	return &Curator{cfg: cfg, log: log, ext: ext, abbr: abbr, rep: report.New()}
}

// Report returns the accumulated change report.
func (c *Curator) Report() *report.Report { return c.rep }

// Run executes the pipeline: external update, encoding and field repairs,
// journal abbreviation, key standardization, pruning of uncited entries and
// duplicate consolidation, then a final reformat. External tool failures are
// reported as warnings; parse and write failures abort the run.
func (c *Curator) Run(ctx context.Context, opts Options) error {
	root := c.cfg.Root
	bibPaths := texscan.CollectBibFiles(root)
	if len(bibPaths) == 0 {
		return fmt.Errorf("no .bib files found under %s", root)
	}
	texPaths := texscan.CollectTexFiles(root)

	if opts.Backups {
		if err := c.backupAll(bibPaths, texPaths, opts); err != nil {
			return err
		}
	}

	for _, path := range bibPaths {
		if err := c.repairFile(ctx, path, opts); err != nil {
			return err
		}
	}

	if !opts.PreserveKeys {
		if err := c.rewriteKeys(root, bibPaths, texPaths); err != nil {
			return err
		}
	}

	if err := c.pruneAndDedupe(bibPaths, texPaths, opts); err != nil {
		return err
	}

	return c.finish(ctx, bibPaths, opts)
}

func (c *Curator) backupAll(bibPaths, texPaths []string, opts Options) error {
	paths := append([]string(nil), bibPaths...)
	if !opts.PreserveKeys {
		paths = append(paths, texPaths...)
	}
	for _, p := range paths {
		if _, err := backup.Create(p, c.cfg.Backup.Suffix); err != nil {
			return fmt.Errorf("backup %s: %w", p, err)
		}
	}
	c.rep.Add("files backed up", len(paths))
	return nil
}

// repairFile runs the per-file portion of the pipeline: external update and
// abbreviation, raw byte repair, then the in-memory fix passes.
func (c *Curator) repairFile(ctx context.Context, path string, opts Options) error {
	if opts.UseTools && c.ext.Enabled() {
		if err := c.ext.Update(ctx, path); err != nil {
			c.warn(fmt.Sprintf("update skipped for %s: %v", path, err))
		}
		if err := c.ext.AbbreviateJournals(ctx, path); err != nil {
			c.warn(fmt.Sprintf("journal abbreviation skipped for %s: %v", path, err))
		}
	}

	if err := c.repairBytes(path); err != nil {
		return err
	}

	f, err := bibtex.Load(path)
	if err != nil {
		return err
	}
	c.rep.Add("commented entries recovered", f.RecoverCommented())
	c.rep.Add("html entities repaired", fixes.HTMLEntities(&f.Database))
	c.rep.Add("authors repaired", fixes.RepairAuthors(&f.Database))
	c.rep.Add("accents normalized", fixes.StripAccents(&f.Database))
	c.rep.Add("percent signs escaped", fixes.EscapePercent(&f.Database))
	c.rep.Add("legacy years repaired", fixes.LegacyYears(&f.Database))
	c.rep.Add("legacy months repaired", fixes.LegacyMonths(&f.Database))
	c.rep.Add("journals abbreviated", c.abbr.Apply(&f.Database))
	c.rep.Add("noise fields dropped", fixes.DropFields(&f.Database, fixes.FieldsToRemove))
	if err := f.Save(); err != nil {
		return err
	}

	if opts.UseTools && c.ext.Enabled() {
		if err := c.ext.Format(ctx, path, fixes.FieldsToRemove); err != nil {
			c.warn(fmt.Sprintf("format skipped for %s: %v", path, err))
		}
	}
	return nil
}

// repairBytes fixes invalid UTF-8 and known mis-encoded byte sequences
// before the parser sees the file.
func (c *Curator) repairBytes(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	fixed, n := fixes.RepairEncoding(raw)
	cleaned, m := fixes.ProblemRunes(string(fixed))
	c.rep.Add("encoding repairs", n+m)
	if n+m == 0 {
		return nil
	}
	if err := os.WriteFile(path, []byte(cleaned), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// rewriteKeys sanitizes every key and, when the directory holds a main.tex,
// standardizes them to the FamilyYearJournalTitle convention. All .tex files
// are rewritten to match.
func (c *Curator) rewriteKeys(root string, bibPaths, texPaths []string) error {
	files, err := bibtex.LoadAll(bibPaths)
	if err != nil {
		return err
	}
	mapping := map[string]string{}
	for _, f := range files {
		mapping = ComposeMapping(mapping, SanitizeKeys(f))
	}
	if _, err := os.Stat(filepath.Join(root, "main.tex")); err == nil {
		taken := map[string]bool{}
		for _, f := range files {
			mapping = ComposeMapping(mapping, StandardizeKeys(f, taken))
		}
	}
	if len(mapping) == 0 {
		return nil
	}
	for _, f := range files {
		if err := f.Save(); err != nil {
			return err
		}
	}
	c.rep.MergeMapping(mapping)
	c.rep.Add("keys renamed", len(mapping))
	rewritten, err := texscan.RewriteCitations(texPaths, mapping)
	if err != nil {
		return err
	}
	c.rep.Add("tex files rewritten", rewritten)
	return nil
}

// pruneAndDedupe removes uncited entries, synchronizes duplicate keys, and
// consolidates entries that share a DOI or a normalized title.
func (c *Curator) pruneAndDedupe(bibPaths, texPaths []string, opts Options) error {
	files, err := bibtex.LoadAll(bibPaths)
	if err != nil {
		return err
	}
	if len(texPaths) > 0 {
		cited := texscan.CitationsAll(texPaths)
		c.rep.Add("unused entries removed", RemoveUnused(files, cited))
	}
	c.rep.Add("duplicate keys synchronized", SyncDuplicateKeys(files))

	if !opts.PreserveKeys {
		mapping := ComposeMapping(ConsolidateDOIs(files), ConsolidateTitles(files))
		if len(mapping) > 0 {
			c.rep.MergeMapping(mapping)
			c.rep.Add("duplicate entries merged", len(mapping))
			if _, err := texscan.RewriteCitations(texPaths, mapping); err != nil {
				return err
			}
		}
	}

	for _, f := range files {
		if err := f.Save(); err != nil {
			return err
		}
	}
	return nil
}

// finish reformats each file once more and records per-file statistics.
func (c *Curator) finish(ctx context.Context, bibPaths []string, opts Options) error {
	for _, path := range bibPaths {
		if opts.UseTools && c.ext.Enabled() {
			if err := c.ext.Format(ctx, path, nil); err != nil {
				c.warn(fmt.Sprintf("final format skipped for %s: %v", path, err))
			}
		}
		f, err := bibtex.Load(path)
		if err != nil {
			return err
		}
		if f.RecoverCommented() > 0 {
			if err := f.Save(); err != nil {
				return err
			}
		}
		c.rep.AddFileStats(fileStats(f))
	}
	return nil
}

func (c *Curator) warn(msg string) {
	c.log.Warn(msg)
	c.rep.Warn(msg)
}

func fileStats(f *bibtex.File) report.FileStats {
	s := report.FileStats{Path: f.Path, Entries: len(f.Records)}
	for i := range f.Records {
		if f.Records[i].Get("doi") != "" {
			s.WithDOI++
		}
		if f.Records[i].Get("title") != "" {
			s.WithTitle++
		}
		if f.Records[i].Get("author") != "" {
			s.WithAuthor++
		}
		if f.Records[i].Get("year") != "" {
			s.WithYear++
		}
	}
	return s
}
