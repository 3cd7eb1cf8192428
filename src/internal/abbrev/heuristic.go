package abbrev

import "strings"

// wordForms are per-word ISO 4 abbreviations for common title words. The
// heuristic only fires when every significant word is covered, so it never
// fabricates an abbreviation for a journal it does not actually understand.
var wordForms = map[string]string{
	"journal":       "J.",
	"international": "Int.",
	"review":        "Rev.",
	"reviews":       "Rev.",
	"letters":       "Lett.",
	"proceedings":   "Proc.",
	"transactions":  "Trans.",
	"annals":        "Ann.",
	"advances":      "Adv.",
	"applied":       "Appl.",
	"physics":       "Phys.",
	"physical":      "Phys.",
	"chemistry":     "Chem.",
	"chemical":      "Chem.",
	"biology":       "Biol.",
	"biological":    "Biol.",
	"science":       "Sci.",
	"sciences":      "Sci.",
	"scientific":    "Sci.",
	"engineering":   "Eng.",
	"mathematics":   "Math.",
	"mathematical":  "Math.",
	"computer":      "Comput.",
	"computing":     "Comput.",
	"computational": "Comput.",
	"communications": "Commun.",
	"american":      "Am.",
	"european":      "Eur.",
	"national":      "Natl.",
	"society":       "Soc.",
	"association":   "Assoc.",
	"research":      "Res.",
	"reports":       "Rep.",
	"bulletin":      "Bull.",
	"quarterly":     "Q.",
	"technology":    "Technol.",
	"materials":     "Mater.",
	"molecular":     "Mol.",
	"environmental": "Environ.",
	"statistics":    "Stat.",
	"statistical":   "Stat.",
	"medicine":      "Med.",
	"medical":       "Med.",
}

// stopwords are dropped entirely, per ISO 4 practice.
var stopwords = map[string]bool{
	"of": true, "the": true, "and": true, "for": true, "in": true,
	"on": true, "de": true, "la": true, "und": true, "&": true,
}

// Heuristic attempts an ISO 4 style abbreviation for a journal title.
// Titles already containing a period are treated as pre-abbreviated and
// single-word titles are left alone. If any significant word is not in the
// per-word table the title is returned unchanged rather than inventing
// something plausible-looking.
func Heuristic(journal string) string {
	if strings.Contains(journal, ".") {
		return journal
	}
	words := strings.Fields(journal)
	if len(words) < 2 {
		return journal
	}
	out := make([]string, 0, len(words))
	for _, w := range words {
		lw := strings.ToLower(strings.Trim(w, ",:;"))
		if stopwords[lw] {
			continue
		}
		form, ok := wordForms[lw]
		if !ok {
			return journal
		}
		out = append(out, form)
	}
	if len(out) < 1 {
		return journal
	}
	short := strings.Join(out, " ")
	if short == journal {
		return journal
	}
	return short
}
