package curate

import (
	"regexp"

	"bibfix/src/internal/bibtex"
)

// importantFields drive entry completeness scoring; an entry carrying these
// is worth keeping over a stub with the same identity.
var importantFields = []string{"title", "author", "year", "journal", "doi", "pages", "volume"}

// ScoreEntry rates how complete a record is: one point per important field
// present, plus a small bonus per field overall.
func ScoreEntry(r bibtex.Record) float64 {
	s := 0.0
	for _, f := range importantFields {
		if r.Get(f) != "" {
			s++
		}
	}
	s += 0.1 * float64(len(r.Fields))
	return s
}

// BestEntry returns the most complete record of a duplicate group.
func BestEntry(records []bibtex.Record) bibtex.Record {
	best := records[0]
	bestScore := ScoreEntry(best)
	for _, r := range records[1:] {
		if s := ScoreEntry(r); s > bestScore {
			best, bestScore = r, s
		}
	}
	return best
}

var nameYearKey = regexp.MustCompile(`^[A-Z][a-z]+\d{4}`)

// ScoreKey rates how sensible a citation key looks. Capitalized keys in the
// Name2020 shape without underscores win; long keys are penalised slightly.
func ScoreKey(k string) float64 {
	s := 0.0
	if k != "" && k[0] >= 'A' && k[0] <= 'Z' {
		s += 10
	}
	if nameYearKey.MatchString(k) {
		s += 20
	}
	if !containsByte(k, '_') {
		s += 5
	}
	s -= 0.1 * float64(len(k))
	return s
}

// BestKey returns the highest-scoring key of a duplicate group.
func BestKey(keys []string) string {
	best := keys[0]
	bestScore := ScoreKey(best)
	for _, k := range keys[1:] {
		if s := ScoreKey(k); s > bestScore {
			best, bestScore = k, s
		}
	}
	return best
}

func containsByte(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}
