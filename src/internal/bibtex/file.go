package bibtex

import (
	"fmt"
	"os"
	"strings"
)

// File couples a Database with the path it was loaded from.
type File struct {
	Path string
	Database
}

// Load reads and parses a .bib file. Parse errors are fatal to the caller.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	db, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &File{Path: path, Database: *db}, nil
}

// Save writes the database back to its path. Records render in their current
// order; commented entries that were never recovered are rewrapped in
// @comment blocks and unparsed blocks are appended verbatim, so nothing is
// lost.
func (f *File) Save() error {
	var b strings.Builder
	for _, r := range f.Records {
		b.WriteString(Render(r))
	}
	for _, r := range f.Commented {
		b.WriteString("@comment{" + strings.TrimSpace(Render(r)) + "}\n\n")
	}
	for _, raw := range f.Unparsed {
		b.WriteString(strings.TrimSpace(raw))
		b.WriteString("\n\n")
	}
	out := strings.TrimRight(b.String(), "\n") + "\n"
	if err := os.WriteFile(f.Path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	return nil
}

// LoadAll loads several .bib files, failing on the first parse error.
func LoadAll(paths []string) ([]*File, error) {
	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
