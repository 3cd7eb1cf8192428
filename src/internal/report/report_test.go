package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderContainsEverything(t *testing.T) {
	r := New()
	r.Add("entries pruned", 3)
	r.Add("nothing found", 0)
	r.MapKey("old_key", "New2020")
	r.Warn("updater unavailable")
	r.AddFileStats(FileStats{Path: "references.bib", Entries: 10, WithDOI: 5, WithTitle: 10, WithAuthor: 9, WithYear: 8})

	var buf bytes.Buffer
	r.Render(&buf, false)
	out := buf.String()

	for _, want := range []string{
		r.RunID,
		"entries pruned",
		"nothing found",
		"old_key",
		"New2020",
		"references.bib",
		"5 (50.0%)",
		"updater unavailable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	New().Render(&buf, false)
	if !strings.Contains(buf.String(), "bibfix run") {
		t.Fatalf("header missing:\n%s", buf.String())
	}
}

func TestMergeMapping(t *testing.T) {
	r := New()
	r.MergeMapping(map[string]string{"a": "b"})
	r.MergeMapping(map[string]string{"c": "d"})
	m := r.Mapping()
	if m["a"] != "b" || m["c"] != "d" {
		t.Fatalf("mapping = %v", m)
	}
}

func TestPct(t *testing.T) {
	if got := pct(1, 3); got != "1 (33.3%)" {
		t.Fatalf("pct = %q", got)
	}
	if got := pct(0, 0); got != "n/a" {
		t.Fatalf("pct zero total = %q", got)
	}
}
