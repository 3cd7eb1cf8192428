package fixes

import (
	"testing"

	"bibfix/src/internal/bibtex"
)

func db(records ...bibtex.Record) *bibtex.Database {
	return &bibtex.Database{Records: records}
}

func rec(fields map[string]string) bibtex.Record {
	return bibtex.Record{Type: "article", Key: "K", Fields: fields}
}

func TestHTMLEntities(t *testing.T) {
	d := db(rec(map[string]string{
		"title": "Alice &amp; Bob &lt;3",
		"url":   "https://example.org/?a=1&b=2",
	}))
	if n := HTMLEntities(d); n != 1 {
		t.Fatalf("changed = %d", n)
	}
	if got := d.Records[0].Get("title"); got != `Alice \& Bob <3` {
		t.Fatalf("title = %q", got)
	}
	// url is a raw-value field and must stay untouched
	if got := d.Records[0].Get("url"); got != "https://example.org/?a=1&b=2" {
		t.Fatalf("url = %q", got)
	}
}

func TestHTMLEntitiesEscapesBareAmpersand(t *testing.T) {
	d := db(rec(map[string]string{"journal": "Science & Nature"}))
	HTMLEntities(d)
	if got := d.Records[0].Get("journal"); got != `Science \& Nature` {
		t.Fatalf("journal = %q", got)
	}
}

func TestEscapePercent(t *testing.T) {
	d := db(rec(map[string]string{
		"title": `a 50% rise and an escaped 10\% drop`,
		"doi":   "10.1000/50%weird",
	}))
	if n := EscapePercent(d); n != 1 {
		t.Fatalf("changed = %d", n)
	}
	want := `a 50\% rise and an escaped 10\% drop`
	if got := d.Records[0].Get("title"); got != want {
		t.Fatalf("title = %q", got)
	}
	if got := d.Records[0].Get("doi"); got != "10.1000/50%weird" {
		t.Fatalf("doi = %q", got)
	}
}

func TestEscapePercentDoubleBackslash(t *testing.T) {
	// \\% is a literal backslash followed by an unescaped percent
	d := db(rec(map[string]string{"note2": `\\%`}))
	EscapePercent(d)
	if got := d.Records[0].Get("note2"); got != `\\\%` {
		t.Fatalf("note2 = %q", got)
	}
}

func TestStripAccents(t *testing.T) {
	d := db(rec(map[string]string{
		"author": `M\"{u}ller, Hans`,
		"title":  "Étude of naïve systems",
		"doi":    "10.1000/ünchanged",
	}))
	if n := StripAccents(d); n != 2 {
		t.Fatalf("changed = %d", n)
	}
	if got := d.Records[0].Get("author"); got != "Muller, Hans" {
		t.Fatalf("author = %q", got)
	}
	if got := d.Records[0].Get("title"); got != "Etude of naive systems" {
		t.Fatalf("title = %q", got)
	}
	if got := d.Records[0].Get("doi"); got != "10.1000/ünchanged" {
		t.Fatalf("doi = %q", got)
	}
}

func TestRepairAuthorsBackslashRuns(t *testing.T) {
	d := db(rec(map[string]string{"author": `M\\\\\\\\ller, Hans and Doe, J.`}))
	if n := RepairAuthors(d); n != 1 {
		t.Fatalf("changed = %d", n)
	}
	if got := d.Records[0].Get("author"); got != `M{\"u}ller, Hans and Doe, J.` {
		t.Fatalf("author = %q", got)
	}
}

func TestRepairAuthorsTrailingSlash(t *testing.T) {
	d := db(rec(map[string]string{"author": `Smith, John \`}))
	RepairAuthors(d)
	if got := d.Records[0].Get("author"); got != "Smith, John" {
		t.Fatalf("author = %q", got)
	}
}

func TestRepairAuthorsUnicodeToLaTeX(t *testing.T) {
	d := db(rec(map[string]string{"author": "Gómez, Ana and Łukasz, K."}))
	RepairAuthors(d)
	if got := d.Records[0].Get("author"); got != `G\'{o}mez, Ana and Łukasz, K.` {
		t.Fatalf("author = %q", got)
	}
}

func TestLegacyYears(t *testing.T) {
	cases := map[string]string{
		"2020-01-15":        "2020",
		"2019/03":           "2019",
		"Published in 2018": "2018",
		"2021":              "2021",
	}
	for in, want := range cases {
		d := db(rec(map[string]string{"year": in}))
		LegacyYears(d)
		if got := d.Records[0].Get("year"); got != want {
			t.Errorf("year %q -> %q, want %q", in, got, want)
		}
	}
}

func TestLegacyMonths(t *testing.T) {
	cases := map[string]string{
		"January": "1",
		"jan":     "1",
		"DEC":     "12",
		"7":       "7",
	}
	for in, want := range cases {
		d := db(rec(map[string]string{"month": in}))
		LegacyMonths(d)
		if got := d.Records[0].Get("month"); got != want {
			t.Errorf("month %q -> %q, want %q", in, got, want)
		}
	}
}

func TestDropFields(t *testing.T) {
	d := db(rec(map[string]string{"title": "T", "file": "x.pdf", "abstract": "long"}))
	if n := DropFields(d, FieldsToRemove); n != 2 {
		t.Fatalf("dropped = %d", n)
	}
	if d.Records[0].Get("title") != "T" {
		t.Fatal("title lost")
	}
	if d.Records[0].Get("file") != "" || d.Records[0].Get("abstract") != "" {
		t.Fatal("noise fields survived")
	}
}
