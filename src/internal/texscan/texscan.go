// Package texscan discovers LaTeX sources and bibliography files in a
// project tree, extracts citation keys, and rewrites citations when keys
// are renamed.
package texscan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"bibfix/src/internal/normalize"
	"bibfix/src/internal/stringsx"
)

// citeMacro matches any \...cite...{keys} command so that natbib, biblatex
// and friends (\parencite, \textcite, \autocite, ...) are all covered.
var citeMacro = regexp.MustCompile(`\\[A-Za-z]*cite[a-zA-Z]*\{([^}]+)\}`)

// conventionalBibNames are preferred root-level bibliography file names.
var conventionalBibNames = []string{"references.bib", "bibliography.bib"}

// CollectTexFiles returns the .tex files to inspect: sections/*.tex plus a
// root main.tex, matching the project layout this tool grew up with.
func CollectTexFiles(root string) []string {
	var out []string
	matches, _ := filepath.Glob(filepath.Join(root, "sections", "*.tex"))
	sort.Strings(matches)
	out = append(out, matches...)
	main := filepath.Join(root, "main.tex")
	if _, err := os.Stat(main); err == nil {
		out = append(out, main)
	}
	return out
}

// CollectBibFiles returns the .bib files to process. Conventional root names
// are preferred; otherwise anything found at the root, backups excluded.
func CollectBibFiles(root string) []string {
	var out []string
	matches, _ := filepath.Glob(filepath.Join(root, "sections", "*.bib"))
	sort.Strings(matches)
	out = append(out, matches...)
	for _, name := range conventionalBibNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		matches, _ := filepath.Glob(filepath.Join(root, "*.bib"))
		for _, p := range matches {
			if !strings.HasSuffix(p, ".backup") {
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

// CorrespondingBib returns the bibliography expected to accompany a .tex
// file: a sibling with the same stem, or the root conventions for main.tex.
func CorrespondingBib(root, tex string) string {
	stem := strings.TrimSuffix(filepath.Base(tex), filepath.Ext(tex))
	sibling := filepath.Join(filepath.Dir(tex), stem+".bib")
	if _, err := os.Stat(sibling); err == nil {
		return sibling
	}
	if stem == "main" {
		for _, name := range conventionalBibNames {
			p := filepath.Join(root, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		matches, _ := filepath.Glob(filepath.Join(root, "*.bib"))
		sort.Strings(matches)
		for _, p := range matches {
			base := filepath.Base(p)
			if base != conventionalBibNames[0] && base != conventionalBibNames[1] {
				return p
			}
		}
	}
	return ""
}

// Citations extracts the set of normalized citation keys used in a .tex
// file. Unreadable files yield an empty set rather than an error; a missing
// section should not abort the whole run.
func Citations(path string) map[string]bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return map[string]bool{}
	}
	out := map[string]bool{}
	for _, m := range citeMacro.FindAllStringSubmatch(string(b), -1) {
		for _, k := range strings.Split(m[1], ",") {
			if nk := normalize.Key(k); nk != "" {
				out[nk] = true
			}
		}
	}
	return out
}

// CitationsAll unions the citations of several .tex files.
func CitationsAll(paths []string) map[string]bool {
	out := map[string]bool{}
	for _, p := range paths {
		for k := range Citations(p) {
			out[k] = true
		}
	}
	return out
}

// RewriteCitations applies a normalized-old-key -> new-key mapping to every
// citation command in the given files, deduplicating keys within a single
// command. Returns the number of files rewritten.
func RewriteCitations(paths []string, mapping map[string]string) (int, error) {
	if len(mapping) == 0 {
		return 0, nil
	}
	rewritten := 0
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := string(b)
		updated := citeMacro.ReplaceAllStringFunc(content, func(m string) string {
			sub := citeMacro.FindStringSubmatch(m)
			keys := strings.Split(sub[1], ",")
			out := make([]string, 0, len(keys))
			for _, k := range keys {
				k = strings.TrimSpace(k)
				if nk, ok := mapping[normalize.Key(k)]; ok {
					out = append(out, nk)
				} else {
					out = append(out, k)
				}
			}
			out = stringsx.DedupePreserve(out)
			return strings.Replace(m, sub[1], strings.Join(out, ", "), 1)
		})
		if updated != content {
			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return rewritten, fmt.Errorf("rewrite %s: %w", path, err)
			}
			rewritten++
		}
	}
	return rewritten, nil
}
