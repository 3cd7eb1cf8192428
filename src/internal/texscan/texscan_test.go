package texscan

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCitations(t *testing.T) {
	dir := t.TempDir()
	tex := filepath.Join(dir, "main.tex")
	write(t, tex, `Results \cite{Smith2020} agree \citep{Doe2019, Roe2021} and \textcite{Doe2019}.`)
	got := Citations(tex)
	for _, k := range []string{"Smith2020", "Doe2019", "Roe2021"} {
		if !got[k] {
			t.Errorf("missing citation %s in %v", k, got)
		}
	}
	if len(got) != 3 {
		t.Fatalf("citations = %v", got)
	}
}

func TestCitationsUnreadableFile(t *testing.T) {
	got := Citations(filepath.Join(t.TempDir(), "missing.tex"))
	if len(got) != 0 {
		t.Fatalf("want empty set, got %v", got)
	}
}

func TestCollectTexAndBibFiles(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "main.tex"), "")
	write(t, filepath.Join(dir, "sections", "02-results.tex"), "")
	write(t, filepath.Join(dir, "sections", "01-intro.tex"), "")
	write(t, filepath.Join(dir, "sections", "01-intro.bib"), "")
	write(t, filepath.Join(dir, "references.bib"), "")

	tex := CollectTexFiles(dir)
	if len(tex) != 3 {
		t.Fatalf("tex files = %v", tex)
	}
	if filepath.Base(tex[0]) != "01-intro.tex" || filepath.Base(tex[2]) != "main.tex" {
		t.Fatalf("tex order = %v", tex)
	}

	bib := CollectBibFiles(dir)
	if len(bib) != 2 {
		t.Fatalf("bib files = %v", bib)
	}
}

func TestCollectBibFilesFallsBackToRoot(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "thesis.bib"), "")
	bib := CollectBibFiles(dir)
	if len(bib) != 1 || filepath.Base(bib[0]) != "thesis.bib" {
		t.Fatalf("bib files = %v", bib)
	}
}

func TestCorrespondingBib(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "main.tex"), "")
	write(t, filepath.Join(dir, "references.bib"), "")
	write(t, filepath.Join(dir, "sections", "03-model.tex"), "")
	write(t, filepath.Join(dir, "sections", "03-model.bib"), "")

	if got := CorrespondingBib(dir, filepath.Join(dir, "sections", "03-model.tex")); filepath.Base(got) != "03-model.bib" {
		t.Fatalf("sibling: %q", got)
	}
	if got := CorrespondingBib(dir, filepath.Join(dir, "main.tex")); filepath.Base(got) != "references.bib" {
		t.Fatalf("main: %q", got)
	}
	if got := CorrespondingBib(dir, filepath.Join(dir, "sections", "nothing.tex")); got != "" {
		t.Fatalf("want empty, got %q", got)
	}
}

func TestRewriteCitations(t *testing.T) {
	dir := t.TempDir()
	tex := filepath.Join(dir, "main.tex")
	write(t, tex, `See \cite{oldKey, Other2020} and \citep{oldKey}.`)
	n, err := RewriteCitations([]string{tex}, map[string]string{"oldKey": "Smith2020"})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if n != 1 {
		t.Fatalf("files rewritten = %d", n)
	}
	b, _ := os.ReadFile(tex)
	got := string(b)
	want := `See \cite{Smith2020, Other2020} and \citep{Smith2020}.`
	if got != want {
		t.Fatalf("content = %q", got)
	}
}

func TestRewriteCitationsDeduplicates(t *testing.T) {
	dir := t.TempDir()
	tex := filepath.Join(dir, "main.tex")
	write(t, tex, `\cite{a, b}`)
	if _, err := RewriteCitations([]string{tex}, map[string]string{"a": "merged", "b": "merged"}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	b, _ := os.ReadFile(tex)
	if got := string(b); got != `\cite{merged}` {
		t.Fatalf("content = %q", got)
	}
}

func TestRewriteCitationsEmptyMapping(t *testing.T) {
	n, err := RewriteCitations([]string{"whatever.tex"}, nil)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
