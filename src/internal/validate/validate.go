// Package validate inspects a manuscript directory without modifying it and
// reports citations, crossrefs, and bibliography problems a curate run would
// need to address.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"bibfix/src/internal/bibtex"
	"bibfix/src/internal/normalize"
	"bibfix/src/internal/report"
	"bibfix/src/internal/texscan"
)

// Result is the outcome of a validation pass. Problems fail the run;
// Warnings do not.
type Result struct {
	MissingCitations    []string
	CommentedCitations  []string
	UnresolvedCrossrefs []string
	DuplicateKeys       []string
	DuplicateDOIs       []string
	DuplicateTitles     []string
	UnescapedPercent    int
	Warnings            []string
	Stats               []report.FileStats
}

// OK reports whether the bibliography passed validation. Duplicate keys are
// advisory only; a curate run synchronizes their bodies without renaming.
func (r *Result) OK() bool {
	return len(r.MissingCitations) == 0 &&
		len(r.CommentedCitations) == 0 &&
		len(r.UnresolvedCrossrefs) == 0 &&
		len(r.DuplicateDOIs) == 0 &&
		len(r.DuplicateTitles) == 0 &&
		r.UnescapedPercent == 0
}

// Run validates every .bib file under root against the .tex files that cite
// them. Parse failures abort with an error.
func Run(root string) (*Result, error) {
	bibPaths := texscan.CollectBibFiles(root)
	if len(bibPaths) == 0 {
		return nil, fmt.Errorf("no .bib files found under %s", root)
	}
	files, err := bibtex.LoadAll(bibPaths)
	if err != nil {
		return nil, err
	}
	texPaths := texscan.CollectTexFiles(root)

	res := &Result{}
	keys := map[string]bool{}
	commented := map[string]bool{}
	doiKeys := map[string]map[string]bool{}
	titleKeys := map[string]map[string]bool{}
	counts := map[string]int{}

	for _, f := range files {
		s := report.FileStats{Path: f.Path, Entries: len(f.Records)}
		for i := range f.Records {
			rec := &f.Records[i]
			k := normalize.Key(rec.Key)
			keys[k] = true
			counts[k]++
			if doi := normalize.DOI(rec.Get("doi")); doi != "" {
				addGroup(doiKeys, doi, rec.Key)
				s.WithDOI++
			}
			if title := normalize.Title(rec.Get("title")); title != "" {
				addGroup(titleKeys, title, rec.Key)
			}
			if rec.Get("title") != "" {
				s.WithTitle++
			}
			if rec.Get("author") != "" {
				s.WithAuthor++
			}
			if rec.Get("year") != "" {
				s.WithYear++
			}
			for _, v := range rec.Fields {
				res.UnescapedPercent += countUnescapedPercent(v)
			}
		}
		for i := range f.Commented {
			commented[normalize.Key(f.Commented[i].Key)] = true
		}
		res.Stats = append(res.Stats, s)
	}

	for _, f := range files {
		for i := range f.Records {
			target := f.Records[i].Get("crossref")
			if target != "" && !keys[normalize.Key(target)] {
				res.UnresolvedCrossrefs = append(res.UnresolvedCrossrefs,
					fmt.Sprintf("%s -> %s", f.Records[i].Key, target))
			}
		}
	}

	for key := range texscan.CitationsAll(texPaths) {
		k := normalize.Key(key)
		switch {
		case keys[k]:
		case commented[k]:
			res.CommentedCitations = append(res.CommentedCitations, key)
		default:
			res.MissingCitations = append(res.MissingCitations, key)
		}
	}

	for k, n := range counts {
		if n > 1 {
			res.DuplicateKeys = append(res.DuplicateKeys, k)
		}
	}
	res.DuplicateDOIs = groupProblems(doiKeys)
	res.DuplicateTitles = groupProblems(titleKeys)

	for _, tex := range texPaths {
		if len(texscan.Citations(tex)) > 0 && texscan.CorrespondingBib(root, tex) == "" {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s cites entries but no conventional .bib file was found", tex))
		}
	}

	sort.Strings(res.MissingCitations)
	sort.Strings(res.CommentedCitations)
	sort.Strings(res.UnresolvedCrossrefs)
	sort.Strings(res.DuplicateKeys)
	return res, nil
}

func addGroup(groups map[string]map[string]bool, id, key string) {
	if groups[id] == nil {
		groups[id] = map[string]bool{}
	}
	groups[id][key] = true
}

// groupProblems lists every identity shared by more than one distinct key,
// rendered as "id (keyA, keyB)".
func groupProblems(groups map[string]map[string]bool) []string {
	var out []string
	for id, ks := range groups {
		if len(ks) < 2 {
			continue
		}
		keys := make([]string, 0, len(ks))
		for k := range ks {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out = append(out, fmt.Sprintf("%s (%s)", id, strings.Join(keys, ", ")))
	}
	sort.Strings(out)
	return out
}

// countUnescapedPercent counts '%' characters preceded by an even number of
// backslashes. LaTeX treats those as comment starts.
func countUnescapedPercent(v string) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] != '%' {
			continue
		}
		bs := 0
		for j := i - 1; j >= 0 && v[j] == '\\'; j-- {
			bs++
		}
		if bs%2 == 0 {
			n++
		}
	}
	return n
}
