package curate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bibfix/src/internal/abbrev"
	"bibfix/src/internal/config"
	"bibfix/src/internal/extern"
)

type fakeExecutor struct {
	calls [][]string
	fail  bool
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) (string, string, error) {
	f.calls = append(f.calls, append([]string{binary}, args...))
	if f.fail {
		return "", "tool exploded", &fakeExitError{}
	}
	return "", "", nil
}

type fakeExitError struct{}

func (e *fakeExitError) Error() string { return "exit status 1" }
func (e *fakeExitError) ExitCode() int { return 1 }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	tex := `\documentclass{article}
\begin{document}
Widgets \cite{smith_tmp} and more \citep{Jones2019}.
\end{document}
`
	bib := `@article{smith_tmp,
  title = {Quantum Widgets},
  author = {Smith, J.},
  year = {2020},
  journal = {Physical Review Letters},
  doi = {10.1/abc},
}

@article{Jones2019,
  title = {Other &amp; Things},
  author = {Jones, A.},
  year = {2019},
}

@misc{orphan99,
  title = {Never Cited},
}
`
	if err := os.WriteFile(filepath.Join(dir, "main.tex"), []byte(tex), 0o644); err != nil {
		t.Fatalf("write tex: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "references.bib"), []byte(bib), 0o644); err != nil {
		t.Fatalf("write bib: %v", err)
	}
	return dir
}

func newTestCurator(dir string, exec extern.Executor) (*Curator, *config.Config) {
	cfg := config.Default()
	cfg.Root = dir
	ext := extern.New(cfg.Tools, testLogger(), extern.WithExecutor(exec))
	return New(cfg, testLogger(), ext, abbrev.Builtin()), cfg
}

func TestCuratorRunWithoutTools(t *testing.T) {
	dir := writeProject(t)
	cur, _ := newTestCurator(dir, &fakeExecutor{})

	opts := Options{Backups: true, UseTools: false}
	if err := cur.Run(context.Background(), opts); err != nil {
		t.Fatalf("run: %v", err)
	}

	bib, _ := os.ReadFile(filepath.Join(dir, "references.bib"))
	out := string(bib)
	if !strings.Contains(out, "Phys. Rev. Lett.") {
		t.Errorf("journal not abbreviated:\n%s", out)
	}
	if !strings.Contains(out, `Other \& Things`) {
		t.Errorf("html entity not repaired:\n%s", out)
	}
	if strings.Contains(out, "Never Cited") {
		t.Errorf("uncited entry survived:\n%s", out)
	}
	if !strings.Contains(out, "Smith2020PRLQuantum") {
		t.Errorf("key not standardized:\n%s", out)
	}

	tex, _ := os.ReadFile(filepath.Join(dir, "main.tex"))
	if !strings.Contains(string(tex), `\cite{Smith2020PRLQuantum}`) {
		t.Errorf("citation not rewritten:\n%s", tex)
	}

	if _, err := os.Stat(filepath.Join(dir, "references.bib.backup")); err != nil {
		t.Error("bib backup missing")
	}
	if _, err := os.Stat(filepath.Join(dir, "main.tex.backup")); err != nil {
		t.Error("tex backup missing")
	}

	if cur.Report().Mapping()["smith_tmp"] != "Smith2020PRLQuantum" {
		t.Errorf("mapping = %v", cur.Report().Mapping())
	}
}

func TestCuratorPreserveKeys(t *testing.T) {
	dir := writeProject(t)
	cur, _ := newTestCurator(dir, &fakeExecutor{})

	opts := Options{PreserveKeys: true}
	if err := cur.Run(context.Background(), opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	bib, _ := os.ReadFile(filepath.Join(dir, "references.bib"))
	if !strings.Contains(string(bib), "smith_tmp") {
		t.Errorf("key was renamed despite preserve-keys:\n%s", bib)
	}
	tex, _ := os.ReadFile(filepath.Join(dir, "main.tex"))
	if !strings.Contains(string(tex), `\cite{smith_tmp}`) {
		t.Errorf("tex was rewritten despite preserve-keys:\n%s", tex)
	}
}

func TestCuratorInvokesTools(t *testing.T) {
	dir := writeProject(t)
	exec := &fakeExecutor{}
	cur, cfg := newTestCurator(dir, exec)

	opts := Options{UseTools: true}
	if err := cur.Run(context.Background(), opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(exec.calls) != 4 {
		t.Fatalf("tool calls = %d: %v", len(exec.calls), exec.calls)
	}
	if exec.calls[0][0] != cfg.Tools.Updater || exec.calls[0][1] != "update" {
		t.Fatalf("first call = %v", exec.calls[0])
	}
	if exec.calls[1][1] != "abbreviate-journal-names" {
		t.Fatalf("second call = %v", exec.calls[1])
	}
	if exec.calls[2][0] != cfg.Tools.Formatter {
		t.Fatalf("third call = %v", exec.calls[2])
	}
}

func TestCuratorToolFailureIsWarning(t *testing.T) {
	dir := writeProject(t)
	cur, _ := newTestCurator(dir, &fakeExecutor{fail: true})

	opts := Options{UseTools: true}
	if err := cur.Run(context.Background(), opts); err != nil {
		t.Fatalf("tool failure escalated to error: %v", err)
	}
	if len(cur.Report().Warnings()) == 0 {
		t.Fatal("tool failure produced no warning")
	}
	// local pipeline still did its job
	bib, _ := os.ReadFile(filepath.Join(dir, "references.bib"))
	if !strings.Contains(string(bib), "Phys. Rev. Lett.") {
		t.Errorf("fallback pipeline did not run:\n%s", bib)
	}
}

func TestCuratorNoBibFiles(t *testing.T) {
	cur, _ := newTestCurator(t.TempDir(), &fakeExecutor{})
	if err := cur.Run(context.Background(), Options{}); err == nil {
		t.Fatal("want error for empty project")
	}
}

func TestCuratorParseErrorAborts(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "references.bib"), []byte("@article{broken, title = {x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cur, _ := newTestCurator(dir, &fakeExecutor{})
	if err := cur.Run(context.Background(), Options{}); err == nil {
		t.Fatal("want parse error")
	}
}
