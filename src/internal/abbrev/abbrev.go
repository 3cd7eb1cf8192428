// Package abbrev maps full journal names to their standard abbreviations.
// The built-in table ships embedded in the binary; users can merge their own
// mappings over it from a YAML file.
package abbrev

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"bibfix/src/internal/bibtex"
)

//go:embed journals.csv
var journalsCSV string

// Table is a case-insensitive journal name -> abbreviation lookup.
type Table struct {
	m map[string]string
}

// Builtin returns the table built from the embedded CSV data.
func Builtin() *Table {
	t := &Table{m: map[string]string{}}
	r := csv.NewReader(strings.NewReader(journalsCSV))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		// the embedded data is validated by tests; an error here means a
		// broken build, not bad user input
		panic(fmt.Sprintf("abbrev: embedded table: %v", err))
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		full := strings.TrimSpace(row[0])
		short := strings.TrimSpace(row[1])
		if full != "" && short != "" {
			t.m[strings.ToLower(full)] = short
		}
	}
	return t
}

// LoadOverrides merges a YAML mapping of full name -> abbreviation over the
// table. User entries win over built-in ones.
func (t *Table) LoadOverrides(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read overrides %s: %w", path, err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("parse overrides %s: %w", path, err)
	}
	for full, short := range m {
		full = strings.TrimSpace(full)
		short = strings.TrimSpace(short)
		if full != "" && short != "" {
			t.m[strings.ToLower(full)] = short
		}
	}
	return nil
}

// Lookup returns the abbreviation for a journal name, if known.
func (t *Table) Lookup(journal string) (string, bool) {
	v, ok := t.m[strings.ToLower(strings.TrimSpace(journal))]
	return v, ok
}

// Len reports the number of mappings in the table.
func (t *Table) Len() int { return len(t.m) }

// Apply abbreviates the journal field of every record: exact table hits
// first, then the word heuristic. Returns the number of entries changed.
func (t *Table) Apply(db *bibtex.Database) int {
	changed := 0
	for _, r := range db.Records {
		journal, ok := r.Fields["journal"]
		if !ok || strings.TrimSpace(journal) == "" {
			continue
		}
		if short, ok := t.Lookup(journal); ok {
			if short != journal {
				r.Fields["journal"] = short
				changed++
			}
			continue
		}
		if short := Heuristic(journal); short != journal {
			r.Fields["journal"] = short
			changed++
		}
	}
	return changed
}
