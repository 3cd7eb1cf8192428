package bibtex

import (
	"fmt"
	"sort"
	"strings"
)

// Record is a single BibTeX entry: entry type, citation key, and fields.
type Record struct {
	Type   string
	Key    string
	Fields map[string]string
}

// Get returns the named field, trying the exact name then a lowercase match.
func (r Record) Get(name string) string {
	if v, ok := r.Fields[name]; ok {
		return v
	}
	return r.Fields[strings.ToLower(name)]
}

// Set stores a field value under its lowercase name.
func (r Record) Set(name, value string) {
	r.Fields[strings.ToLower(name)] = value
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Type: r.Type, Key: r.Key, Fields: fields}
}

// Database holds the parsed contents of one .bib file. Entries that were
// wrapped in @comment{...} (some formatters do this to entries they cannot
// parse) are kept separately so callers can recover them; comment blocks
// that do not contain a recoverable entry are preserved verbatim.
type Database struct {
	Records   []Record
	Commented []Record
	Unparsed  []string
}

// Lookup returns a pointer to the record with the given key, or nil.
func (db *Database) Lookup(key string) *Record {
	for i := range db.Records {
		if db.Records[i].Key == key {
			return &db.Records[i]
		}
	}
	return nil
}

// Remove deletes the record at index i.
func (db *Database) Remove(i int) {
	db.Records = append(db.Records[:i], db.Records[i+1:]...)
}

// RecoverCommented moves all recoverable commented entries back into Records
// and returns how many were restored.
func (db *Database) RecoverCommented() int {
	n := len(db.Commented)
	if n == 0 {
		return 0
	}
	db.Records = append(db.Records, db.Commented...)
	db.Commented = nil
	return n
}

// fieldOrder is the stable render order; fields not listed here are rendered
// afterwards in sorted order.
var fieldOrder = []string{
	"title", "author", "editor", "journal", "booktitle", "year", "month",
	"volume", "number", "pages", "doi", "isbn", "url", "publisher",
	"address", "edition", "howpublished", "note", "crossref",
}

// Render produces the BibTeX text for a single record.
func Render(r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", r.Type, r.Key)
	seen := map[string]bool{}
	for _, k := range fieldOrder {
		if v, ok := r.Fields[k]; ok && strings.TrimSpace(v) != "" {
			fmt.Fprintf(&b, "  %s = {%s},\n", k, flatten(v))
			seen[k] = true
		}
	}
	extras := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		if !seen[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		if v := r.Fields[k]; strings.TrimSpace(v) != "" {
			fmt.Fprintf(&b, "  %s = {%s},\n", k, flatten(v))
		}
	}
	out := b.String()
	out = strings.TrimRight(out, "\n")
	out = strings.TrimRight(out, ",")
	return out + "\n}\n\n"
}

// flatten collapses newlines inside a field value; braces are preserved
// because they carry meaning in LaTeX (case protection, grouping).
func flatten(v string) string {
	v = strings.ReplaceAll(v, "\r\n", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	for strings.Contains(v, "  ") {
		v = strings.ReplaceAll(v, "  ", " ")
	}
	return strings.TrimSpace(v)
}

// Parse tokenizes BibTeX source into a Database. Malformed input returns an
// error; callers treat that as fatal for the whole run.
func Parse(s string) (*Database, error) {
	p := parser{src: s}
	return p.parse()
}

type parser struct {
	src string
	i   int
}

func (p *parser) parse() (*Database, error) {
	db := &Database{}
	n := len(p.src)
	for {
		p.skipWS()
		if p.i >= n {
			break
		}
		if p.src[p.i] != '@' {
			p.i++
			continue
		}
		p.i++
		p.skipWS()
		typ := strings.ToLower(p.readIdent())
		if typ == "comment" {
			block, err := p.readBraceBlock()
			if err != nil {
				return nil, err
			}
			recoverComment(db, block)
			continue
		}
		// string/preamble directives are preserved as opaque blocks
		if typ == "string" || typ == "preamble" {
			block, err := p.readBraceBlock()
			if err != nil {
				return nil, err
			}
			db.Unparsed = append(db.Unparsed, "@"+typ+"{"+block+"}")
			continue
		}
		rec, err := p.readRecord(typ)
		if err != nil {
			return nil, err
		}
		db.Records = append(db.Records, rec)
	}
	return db, nil
}

func (p *parser) skipWS() {
	n := len(p.src)
	for p.i < n {
		if p.src[p.i] == '%' {
			for p.i < n && p.src[p.i] != '\n' {
				p.i++
			}
			continue
		}
		if strings.IndexByte(" \t\r\n", p.src[p.i]) >= 0 {
			p.i++
		} else {
			break
		}
	}
}

func (p *parser) readIdent() string {
	start := p.i
	n := len(p.src)
	for p.i < n {
		c := p.src[p.i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			p.i++
		} else {
			break
		}
	}
	return p.src[start:p.i]
}

// readBraceBlock consumes a balanced {...} block and returns its contents.
func (p *parser) readBraceBlock() (string, error) {
	p.skipWS()
	n := len(p.src)
	if p.i >= n || p.src[p.i] != '{' {
		return "", fmt.Errorf("bibtex: expected '{' at offset %d", p.i)
	}
	p.i++
	start := p.i
	depth := 0
	for p.i < n {
		switch p.src[p.i] {
		case '\\':
			p.i += 2
			continue
		case '{':
			depth++
		case '}':
			if depth == 0 {
				body := p.src[start:p.i]
				p.i++
				return body, nil
			}
			depth--
		}
		p.i++
	}
	return "", fmt.Errorf("bibtex: unterminated block starting at offset %d", start)
}

func (p *parser) readRecord(typ string) (Record, error) {
	n := len(p.src)
	p.skipWS()
	if p.i >= n || (p.src[p.i] != '{' && p.src[p.i] != '(') {
		return Record{}, fmt.Errorf("bibtex: expected '{' after @%s", typ)
	}
	p.i++
	p.skipWS()
	start := p.i
	for p.i < n && p.src[p.i] != ',' {
		p.i++
	}
	if p.i >= n {
		return Record{}, fmt.Errorf("bibtex: missing comma after key in @%s", typ)
	}
	key := strings.TrimSpace(p.src[start:p.i])
	p.i++
	fields := map[string]string{}
	for {
		p.skipWS()
		if p.i >= n {
			return Record{}, fmt.Errorf("bibtex: unexpected end of input in @%s{%s}", typ, key)
		}
		if p.src[p.i] == '}' || p.src[p.i] == ')' {
			p.i++
			break
		}
		fstart := p.i
		for p.i < n {
			c := p.src[p.i]
			if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || c == '_' || c == '-' {
				p.i++
			} else {
				break
			}
		}
		fname := strings.ToLower(strings.TrimSpace(p.src[fstart:p.i]))
		p.skipWS()
		if p.i >= n || p.src[p.i] != '=' {
			return Record{}, fmt.Errorf("bibtex: expected '=' after field %q in @%s{%s}", fname, typ, key)
		}
		p.i++
		p.skipWS()
		val, err := p.readValue()
		if err != nil {
			return Record{}, err
		}
		if fname != "" {
			fields[fname] = val
		}
		p.skipWS()
		if p.i < n && p.src[p.i] == ',' {
			p.i++
			continue
		}
		if p.i < n && (p.src[p.i] == '}' || p.src[p.i] == ')') {
			p.i++
			break
		}
	}
	return Record{Type: typ, Key: key, Fields: fields}, nil
}

func (p *parser) readValue() (string, error) {
	n := len(p.src)
	if p.i < n && p.src[p.i] == '{' {
		return p.readBraceBlock()
	}
	if p.i < n && p.src[p.i] == '"' {
		p.i++
		start := p.i
		for p.i < n {
			if p.src[p.i] == '\\' {
				p.i += 2
				continue
			}
			if p.src[p.i] == '"' {
				val := p.src[start:p.i]
				p.i++
				return val, nil
			}
			p.i++
		}
		return "", fmt.Errorf("bibtex: unterminated quoted value at offset %d", start)
	}
	// bare value (numbers, month macros) up to comma or closer
	start := p.i
	for p.i < n && p.src[p.i] != ',' && p.src[p.i] != '}' && p.src[p.i] != ')' {
		p.i++
	}
	return strings.TrimSpace(p.src[start:p.i]), nil
}

// recoverComment tries to parse the body of an @comment block as one or more
// entries. Bodies that do not parse even after brace repair are kept verbatim.
func recoverComment(db *Database, body string) {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "@") {
		db.Unparsed = append(db.Unparsed, "@comment{"+body+"}")
		return
	}
	inner, err := Parse(trimmed)
	if err != nil {
		// common damage: the wrapper swallowed a closing brace
		if repaired, rerr := Parse(trimmed + "\n}"); rerr == nil {
			inner = repaired
		} else {
			db.Unparsed = append(db.Unparsed, "@comment{"+body+"}")
			return
		}
	}
	db.Commented = append(db.Commented, inner.Records...)
	db.Commented = append(db.Commented, inner.Commented...)
	db.Unparsed = append(db.Unparsed, inner.Unparsed...)
}
