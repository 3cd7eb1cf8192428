// Package fixes contains the local repair heuristics applied to parsed
// bibliography files: HTML entities, unescaped characters, accent cleanup,
// and legacy date fields. Each fix mutates the database in place and
// returns how many fields it changed.
package fixes

import (
	"regexp"
	"strconv"
	"strings"

	"bibfix/src/internal/bibtex"
	"bibfix/src/internal/dates"
	"bibfix/src/internal/normalize"
)

// FieldsToRemove lists non-standard fields dropped at format time.
var FieldsToRemove = []string{
	"file",
	"urldate",
	"langid",
	"keywords",
	"abstract",
	"bdsk-url-1",
	"bdsk-url-2",
	"note",
	"annote",
	"comment",
	"timestamp",
	"date-added",
	"date-modified",
}

var htmlEntities = []struct{ old, new string }{
	{"&amp;", `\&`},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&apos;", "'"},
}

// rawValueFields never get ampersand/percent escaping; escaping would break
// the value.
var rawValueFields = map[string]bool{"url": true, "doi": true}

// HTMLEntities converts HTML entities to their LaTeX equivalents and escapes
// bare & characters in text fields.
func HTMLEntities(db *bibtex.Database) int {
	changed := 0
	for _, r := range db.Records {
		for name, v := range r.Fields {
			nv := v
			for _, e := range htmlEntities {
				nv = strings.ReplaceAll(nv, e.old, e.new)
			}
			if !rawValueFields[name] {
				nv = escapeBare(nv, '&')
			}
			if nv != v {
				r.Fields[name] = nv
				changed++
			}
		}
	}
	return changed
}

// EscapePercent escapes literal % characters in every field value. A % is
// literal when preceded by an even number of backslashes.
func EscapePercent(db *bibtex.Database) int {
	changed := 0
	for _, r := range db.Records {
		for name, v := range r.Fields {
			if rawValueFields[name] {
				continue
			}
			if nv := escapeBare(v, '%'); nv != v {
				r.Fields[name] = nv
				changed++
			}
		}
	}
	return changed
}

// escapeBare inserts a backslash before each unescaped occurrence of c.
func escapeBare(v string, c byte) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == c {
			bs := 0
			for j := i - 1; j >= 0 && v[j] == '\\'; j-- {
				bs++
			}
			if bs%2 == 0 {
				b.WriteByte('\\')
			}
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

var accentMacros = func() []*regexp.Regexp {
	marks := []string{`'`, `"`, "`", `\^`, `~`, `=`, `\.`, `u`, `v`, `H`, `c`}
	out := make([]*regexp.Regexp, 0, len(marks))
	for _, m := range marks {
		out = append(out, regexp.MustCompile(`\\`+m+`\{([^}]+)\}`))
	}
	return out
}()

var accentedFields = []string{"author", "editor", "translator", "title", "booktitle", "journal"}

// StripAccents unwraps LaTeX accent macros and removes combining marks from
// name and title fields.
func StripAccents(db *bibtex.Database) int {
	changed := 0
	for _, r := range db.Records {
		for _, name := range accentedFields {
			v, ok := r.Fields[name]
			if !ok {
				continue
			}
			nv := v
			for _, re := range accentMacros {
				nv = re.ReplaceAllString(nv, "$1")
			}
			nv = normalize.StripAccents(nv)
			if nv != v {
				r.Fields[name] = nv
				changed++
			}
		}
	}
	return changed
}

var (
	umlautRun      = regexp.MustCompile(`([A-Za-z])\\{4,}([a-z]+)`)
	backslashRun   = regexp.MustCompile(`\\{4,}`)
	danglingComma  = regexp.MustCompile(`,\s*\\+\s*([,}])`)
	trailingSlash  = regexp.MustCompile(`([A-Za-z])\s*\\+\s*$`)
	strayAccents   = []struct{ re *regexp.Regexp; repl string }{
		{regexp.MustCompile(`\\ν`), `\'{n}`},
		{regexp.MustCompile(`\\μ`), `\'{u}`},
		{regexp.MustCompile(`\\149`), `\'{n}`},
	}
	unicodeToLaTeX = []struct{ from, to string }{
		{"ń", `\'{n}`},
		{"á", `\'{a}`},
		{"é", `\'{e}`},
		{"í", `\'{i}`},
		{"ó", `\'{o}`},
		{"ú", `\'{u}`},
		{"ü", `\"{u}`},
		{"ö", `\"{o}`},
		{"ł", `\l{}`},
		{"ć", `\'{c}`},
		{"ś", `\'{s}`},
		{"ź", `\'{z}`},
		{"ą", `\'{a}`},
		{"ę", `\'{e}`},
	}
)

// RepairAuthors fixes malformed author fields: runaway backslashes, names
// truncated by a trailing backslash, and raw accented characters.
func RepairAuthors(db *bibtex.Database) int {
	changed := 0
	for _, r := range db.Records {
		v, ok := r.Fields["author"]
		if !ok {
			continue
		}
		nv := umlautRun.ReplaceAllString(v, `$1{\"u}$2`)
		nv = backslashRun.ReplaceAllString(nv, `\`)
		nv = danglingComma.ReplaceAllString(nv, ",$1")
		nv = trailingSlash.ReplaceAllString(nv, "$1")
		for _, s := range strayAccents {
			nv = s.re.ReplaceAllString(nv, s.repl)
		}
		for _, u := range unicodeToLaTeX {
			nv = strings.ReplaceAll(nv, u.from, u.to)
		}
		if nv != v {
			r.Fields["author"] = nv
			changed++
		}
	}
	return changed
}

// LegacyYears trims full dates in year fields down to the year alone.
func LegacyYears(db *bibtex.Database) int {
	changed := 0
	for _, r := range db.Records {
		v, ok := r.Fields["year"]
		if !ok {
			continue
		}
		clean := strings.Trim(strings.TrimSpace(v), "{}")
		if _, err := strconv.Atoi(clean); err == nil {
			continue
		}
		if y := dates.YearFromDate(clean); y > 0 {
			r.Fields["year"] = strconv.Itoa(y)
			changed++
		} else if y := dates.ExtractYear(clean); y > 0 {
			r.Fields["year"] = strconv.Itoa(y)
			changed++
		}
	}
	return changed
}

// LegacyMonths converts month names and abbreviations to integers.
func LegacyMonths(db *bibtex.Database) int {
	changed := 0
	for _, r := range db.Records {
		v, ok := r.Fields["month"]
		if !ok {
			continue
		}
		clean := strings.Trim(strings.TrimSpace(v), "{}")
		if _, err := strconv.Atoi(clean); err == nil {
			continue
		}
		if n, ok := dates.MonthNumber(clean); ok {
			r.Fields["month"] = n
			changed++
		}
	}
	return changed
}

// DropFields removes the fields in names from every record.
func DropFields(db *bibtex.Database, names []string) int {
	changed := 0
	for _, r := range db.Records {
		for _, n := range names {
			if _, ok := r.Fields[n]; ok {
				delete(r.Fields, n)
				changed++
			}
		}
	}
	return changed
}
