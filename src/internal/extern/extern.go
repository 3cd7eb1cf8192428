// Package extern wraps the optional external bibliography tools: a metadata
// updater and a formatter. Every failure here is survivable; callers log a
// warning and fall back to the local heuristics.
package extern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"bibfix/src/internal/backup"
	"bibfix/src/internal/bibtex"
	"bibfix/src/internal/config"
	"bibfix/src/internal/normalize"
)

// Client invokes the configured external tools.
type Client struct {
	tools config.Tools
	exec  Executor
	log   *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(e Executor) Option {
	return func(c *Client) {
		if e != nil {
			c.exec = e
		}
	}
}

// New constructs a client for the configured tools.
func New(tools config.Tools, log *slog.Logger, opts ...Option) *Client {
	c := &Client{tools: tools, exec: commandExecutor{}, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether external tool invocation is turned on.
func (c *Client) Enabled() bool { return c.tools.Enabled }

// Update runs the metadata updater on a .bib file in place. A backup is
// taken first; failures, timeouts, and suspicious DOI changes all restore
// the backup and return an error for the caller to log.
func (c *Client) Update(ctx context.Context, path string) error {
	before, err := bibtex.Load(path)
	if err != nil || len(before.Records) == 0 {
		return fmt.Errorf("input looks unparsable, skipping metadata update")
	}
	doisBefore := map[string]string{}
	for _, r := range before.Records {
		if d := normalize.DOI(r.Get("doi")); d != "" {
			doisBefore[normalize.Key(r.Key)] = d
		}
	}

	bak, err := backup.Create(path, ".update"+backup.Suffix)
	if err != nil {
		return err
	}

	if err := c.run(ctx, c.tools.Updater, []string{"update", "-i", path}, c.tools.UpdateTimeout); err != nil {
		if rerr := backup.Restore(bak, path); rerr != nil {
			return errors.Join(err, rerr)
		}
		backup.Remove(bak)
		return fmt.Errorf("metadata update: %w", err)
	}

	// the tool must not silently rewrite DOIs; that is how entries end up
	// pointing at the wrong paper
	after, err := bibtex.Load(path)
	if err == nil {
		for _, r := range after.Records {
			k := normalize.Key(r.Key)
			prev, had := doisBefore[k]
			if !had {
				continue
			}
			if d := normalize.DOI(r.Get("doi")); d != "" && d != prev {
				if rerr := backup.Restore(bak, path); rerr != nil {
					return rerr
				}
				backup.Remove(bak)
				return fmt.Errorf("metadata update changed DOI for %s (%s -> %s), restored backup", r.Key, prev, d)
			}
		}
	}
	backup.Remove(bak)
	return nil
}

// AbbreviateJournals runs the updater's journal abbreviation mode. No
// backup here: the full-file backup was already taken by the pipeline and
// the operation is idempotent.
func (c *Client) AbbreviateJournals(ctx context.Context, path string) error {
	args := []string{"abbreviate-journal-names", "-i", path}
	if err := c.run(ctx, c.tools.Updater, args, c.tools.AbbreviateTimeout); err != nil {
		return fmt.Errorf("journal abbreviation: %w", err)
	}
	return nil
}

// Format runs the external formatter, dropping the given fields. After the
// run, title or DOI drift is logged as a warning; the formatter should only
// reshape whitespace.
func (c *Client) Format(ctx context.Context, path string, drop []string) error {
	beforeDB, _ := bibtex.Load(path)

	args := []string{"-i", "--indent", strconv.Itoa(c.tools.FormatIndent), "--align", strconv.Itoa(c.tools.FormatAlign), "-d", "braces"}
	for _, f := range drop {
		args = append(args, "--drop", f)
	}
	args = append(args, path)
	if err := c.run(ctx, c.tools.Formatter, args, c.tools.FormatTimeout); err != nil {
		return fmt.Errorf("format: %w", err)
	}

	if beforeDB != nil {
		if afterDB, err := bibtex.Load(path); err == nil {
			c.warnOnDrift(path, beforeDB, afterDB)
		}
	}
	return nil
}

func (c *Client) warnOnDrift(path string, before, after *bibtex.File) {
	prev := map[string]bibtex.Record{}
	for _, r := range before.Records {
		prev[normalize.Key(r.Key)] = r
	}
	for _, r := range after.Records {
		orig, ok := prev[normalize.Key(r.Key)]
		if !ok {
			continue
		}
		if ot, nt := orig.Get("title"), r.Get("title"); ot != "" && nt != "" && ot != nt {
			c.log.Warn("formatter altered a title", "file", path, "key", r.Key)
		}
		od := normalize.DOI(orig.Get("doi"))
		nd := normalize.DOI(r.Get("doi"))
		if od != "" && nd != "" && od != nd {
			c.log.Warn("formatter changed a DOI", "file", path, "key", r.Key)
		}
	}
}

// run executes a tool with a timeout and folds the many ways a subprocess
// can fail into one descriptive error.
func (c *Client) run(ctx context.Context, binary string, args []string, timeoutSeconds int) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return errors.New("no binary configured")
	}
	runCtx := ctx
	if timeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
		defer cancel()
	}
	stdout, stderr, err := c.exec.Run(runCtx, binary, args)
	if err == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %ds", binary, timeoutSeconds)
	}
	if code, ok := exitCode(err); ok {
		if code < 0 {
			// killed by a signal; segfaulting helpers land here
			return fmt.Errorf("%s crashed (terminated by signal)", binary)
		}
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = strings.TrimSpace(stdout)
		}
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", code)
		}
		return fmt.Errorf("%s: %s", binary, msg)
	}
	return fmt.Errorf("%s: %w", binary, err)
}

func exitCode(err error) (int, bool) {
	type coder interface{ ExitCode() int }
	var c coder
	if errors.As(err, &c) {
		return c.ExitCode(), true
	}
	return 0, false
}
