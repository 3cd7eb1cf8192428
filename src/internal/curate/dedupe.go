package curate

import (
	"sort"

	"bibfix/src/internal/bibtex"
	"bibfix/src/internal/normalize"
)

// located pairs a record with the file it lives in.
type located struct {
	file *bibtex.File
	rec  *bibtex.Record
}

func collect(files []*bibtex.File) []located {
	var out []located
	for _, f := range files {
		for i := range f.Records {
			out = append(out, located{file: f, rec: &f.Records[i]})
		}
	}
	return out
}

// SyncDuplicateKeys finds keys that occur more than once across the given
// files and overwrites every copy with the most complete variant, so later
// passes see one consistent body per key. Returns the number of keys
// synchronised.
func SyncDuplicateKeys(files []*bibtex.File) int {
	groups := map[string][]located{}
	for _, l := range collect(files) {
		k := normalize.Key(l.rec.Key)
		groups[k] = append(groups[k], l)
	}
	synced := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		var records []bibtex.Record
		for _, l := range group {
			records = append(records, *l.rec)
		}
		best := BestEntry(records)
		changed := false
		for _, l := range group {
			if ScoreEntry(*l.rec) < ScoreEntry(best) {
				key := l.rec.Key
				*l.rec = best.Clone()
				l.rec.Key = key
				changed = true
			}
		}
		if changed {
			synced++
		}
	}
	return synced
}

// ConsolidateDOIs merges entries that share a DOI but carry different keys:
// the best key and the most complete body win, the losers are removed, and
// the returned mapping records which citation keys must be rewritten.
func ConsolidateDOIs(files []*bibtex.File) map[string]string {
	groups := map[string][]located{}
	for _, l := range collect(files) {
		doi := normalize.DOI(l.rec.Get("doi"))
		if doi == "" {
			continue
		}
		groups[doi] = append(groups[doi], l)
	}
	return consolidate(files, groups)
}

// ConsolidateTitles merges entries whose normalized titles match, the same
// way ConsolidateDOIs does for DOIs. Entries without a title are left alone.
func ConsolidateTitles(files []*bibtex.File) map[string]string {
	groups := map[string][]located{}
	for _, l := range collect(files) {
		title := normalize.Title(l.rec.Get("title"))
		if title == "" {
			continue
		}
		groups[title] = append(groups[title], l)
	}
	return consolidate(files, groups)
}

func consolidate(files []*bibtex.File, groups map[string][]located) map[string]string {
	mapping := map[string]string{}
	// Deterministic order keeps reports and collision outcomes stable.
	idents := make([]string, 0, len(groups))
	for id := range groups {
		idents = append(idents, id)
	}
	sort.Strings(idents)
	drop := map[*bibtex.Record]bool{}
	for _, id := range idents {
		group := groups[id]
		keys := distinctKeys(group)
		if len(keys) < 2 {
			continue
		}
		bestKey := BestKey(keys)
		var records []bibtex.Record
		for _, l := range group {
			records = append(records, *l.rec)
		}
		best := BestEntry(records)
		best.Key = bestKey
		for _, k := range keys {
			if k != bestKey {
				mapping[normalize.Key(k)] = bestKey
			}
		}
		for _, l := range group {
			if l.rec.Key == bestKey {
				*l.rec = best.Clone()
			} else {
				drop[l.rec] = true
			}
		}
	}
	if len(drop) > 0 {
		for _, f := range files {
			kept := f.Records[:0]
			for i := range f.Records {
				if !drop[&f.Records[i]] {
					kept = append(kept, f.Records[i])
				}
			}
			f.Records = kept
		}
	}
	return mapping
}

func distinctKeys(group []located) []string {
	seen := map[string]bool{}
	var keys []string
	for _, l := range group {
		if !seen[l.rec.Key] {
			seen[l.rec.Key] = true
			keys = append(keys, l.rec.Key)
		}
	}
	sort.Strings(keys)
	return keys
}

// RemoveUnused drops entries that no .tex file cites. Every crossref target
// counts as cited, so shared parent entries survive even when nothing that
// refers to them does. Returns the number of entries removed.
func RemoveUnused(files []*bibtex.File, cited map[string]bool) int {
	keep := map[string]bool{}
	for k := range cited {
		keep[normalize.Key(k)] = true
	}
	for _, f := range files {
		for i := range f.Records {
			if target := f.Records[i].Get("crossref"); target != "" {
				keep[normalize.Key(target)] = true
			}
		}
	}
	removed := 0
	for _, f := range files {
		kept := f.Records[:0]
		for i := range f.Records {
			if keep[normalize.Key(f.Records[i].Key)] {
				kept = append(kept, f.Records[i])
			} else {
				removed++
			}
		}
		f.Records = kept
	}
	return removed
}
