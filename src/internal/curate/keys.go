package curate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bibfix/src/internal/bibtex"
	"bibfix/src/internal/normalize"
	"bibfix/src/internal/stringsx"
)

var titleCase = cases.Title(language.English)

var keyBadChars = regexp.MustCompile(`[^A-Za-z0-9_:\-]+`)

// SanitizeKeys strips characters outside [A-Za-z0-9_:-] from every key in
// the file and returns the mapping for citation rewriting, keyed by the
// normalized old key since .tex lookups are normalized too. Keys that would
// sanitize to the empty string are left untouched.
func SanitizeKeys(f *bibtex.File) map[string]string {
	mapping := map[string]string{}
	for i := range f.Records {
		old := f.Records[i].Key
		clean := keyBadChars.ReplaceAllString(normalize.Key(old), "")
		if clean == "" || clean == old {
			continue
		}
		mapping[normalize.Key(old)] = clean
		f.Records[i].Key = clean
	}
	return mapping
}

// StandardizeKeys rewrites every key to the AuthorYearJournalInitialsWord
// convention, for example Smith2020PRLQuantum. Collisions get a numeric
// suffix. Returns the mapping, keyed by the normalized old key.
func StandardizeKeys(f *bibtex.File, taken map[string]bool) map[string]string {
	if taken == nil {
		taken = map[string]bool{}
	}
	for i := range f.Records {
		taken[f.Records[i].Key] = true
	}
	mapping := map[string]string{}
	for i := range f.Records {
		old := f.Records[i].Key
		generated := generateKey(f.Records[i])
		if generated == "" || generated == old {
			continue
		}
		candidate := generated
		for n := 2; taken[candidate]; n++ {
			candidate = fmt.Sprintf("%s%d", generated, n)
		}
		taken[candidate] = true
		delete(taken, old)
		mapping[normalize.Key(old)] = candidate
		f.Records[i].Key = candidate
	}
	return mapping
}

// generateKey builds FamilyYearJournalInitialsFirstTitleWord from the
// record's fields. Missing parts are simply omitted; an entry with none of
// them yields "".
func generateKey(r bibtex.Record) string {
	var b strings.Builder
	family := firstAuthorFamily(r.Get("author"))
	b.WriteString(family)
	for _, c := range r.Get("year") {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	journal := stringsx.FirstNonEmpty(r.Get("journal"), r.Get("booktitle"))
	for _, word := range strings.Fields(journal) {
		for _, c := range word {
			if unicode.IsLetter(c) {
				b.WriteRune(unicode.ToUpper(c))
			}
			break
		}
	}
	for _, word := range strings.Fields(normalize.Title(r.Get("title"))) {
		letters := onlyLetters(word)
		if letters == "" {
			continue
		}
		b.WriteString(titleCase.String(letters))
		break
	}
	key := keyBadChars.ReplaceAllString(normalize.Key(b.String()), "")
	if key == "" {
		return ""
	}
	if !unicode.IsLetter(rune(key[0])) {
		key = "k" + key
	}
	return key
}

// firstAuthorFamily extracts the family name of the first author from a
// BibTeX author field, handling both "Family, Given" and "Given Family".
func firstAuthorFamily(authors string) string {
	first := authors
	if i := strings.Index(authors, " and "); i >= 0 {
		first = authors[:i]
	}
	first = strings.TrimSpace(first)
	if first == "" {
		return ""
	}
	var family string
	if comma := strings.Index(first, ","); comma >= 0 {
		family = first[:comma]
	} else {
		parts := strings.Fields(first)
		family = parts[len(parts)-1]
	}
	family = onlyLetters(family)
	if family == "" {
		return ""
	}
	return titleCase.String(strings.ToLower(family))
}

func onlyLetters(s string) string {
	var b strings.Builder
	for _, c := range s {
		if unicode.IsLetter(c) && c < 128 {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// ComposeMapping merges next into prior, following chains so that a key
// renamed twice maps straight to its final name.
func ComposeMapping(prior, next map[string]string) map[string]string {
	out := map[string]string{}
	for old, mid := range prior {
		if final, ok := next[mid]; ok {
			out[old] = final
		} else {
			out[old] = mid
		}
	}
	for old, final := range next {
		if _, ok := out[old]; !ok {
			out[old] = final
		}
	}
	return out
}
