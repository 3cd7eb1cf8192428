// Package normalize holds the canonical string forms used for loose
// comparisons across bibliography entries: citation keys, DOIs, titles,
// URLs, and keyword lists.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unicode returns the NFC form of s, or "" for blank input.
func Unicode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return norm.NFC.String(s)
}

// Key is the canonical form of a citation key for map lookups.
func Key(s string) string { return Unicode(s) }

// DOI strips common DOI URL prefixes and lowercases the remainder.
func DOI(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "doi:")
	s = strings.TrimPrefix(s, "http://dx.doi.org/")
	s = strings.TrimPrefix(s, "https://doi.org/")
	return strings.TrimSpace(s)
}

var (
	dashRun   = regexp.MustCompile(`[-\x{2013}\x{2014}]+`)
	spaceRun  = regexp.MustCompile(`\s+`)
	braceChar = regexp.MustCompile(`[{}]`)
	scheme    = regexp.MustCompile(`^[A-Za-z]+://`)
)

// Title canonicalises a title for duplicate detection: braces dropped,
// dash runs and whitespace collapsed to single spaces, lowercased.
func Title(s string) string {
	s = braceChar.ReplaceAllString(s, "")
	s = dashRun.ReplaceAllString(s, " ")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// URL trims whitespace and lowercases the scheme only.
func URL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return scheme.ReplaceAllStringFunc(s, strings.ToLower)
}

// Keywords canonicalises a comma-separated keyword list: trimmed, lowercased,
// deduplicated, order preserved.
func Keywords(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]bool{}
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// StripAccents removes combining marks: NFD, drop Mn runes, back to NFC.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
