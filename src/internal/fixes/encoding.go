package fixes

import (
	"bytes"
	"strings"
)

// byte sequences produced by broken exports: a doubled backslash fused with
// a UTF-8 combining mark or accented letter.
var bytePatterns = []struct {
	pat  []byte
	repl []byte
}{
	{[]byte{0x5c, 0x5c, 0xcc, 0x88}, []byte(`"`)},      // combining diaeresis
	{[]byte{0x5c, 0x5c, 0xcc, 0x81}, []byte(`\'`)},     // combining acute
	{[]byte{0x5c, 0x5c, 0xc5, 0x9b}, []byte(`\'{s}`)},  // s with acute
	{[]byte{0x5c, 0x5c, 0xc5, 0x82}, []byte(`\l{}`)},   // l with stroke
}

// RepairEncoding fixes invalid UTF-8 byte sequences that break LaTeX runs.
// It operates on raw file bytes before parsing and returns the repaired
// bytes plus the number of replacements.
func RepairEncoding(raw []byte) ([]byte, int) {
	fixed := 0
	out := raw
	for _, p := range bytePatterns {
		if n := bytes.Count(out, p.pat); n > 0 {
			out = bytes.ReplaceAll(out, p.pat, p.repl)
			fixed += n
		}
	}
	s := strings.ToValidUTF8(string(out), "")
	s = strings.ReplaceAll(s, "�", "")
	if fixed == 0 && s == string(raw) {
		return raw, 0
	}
	return []byte(s), fixed
}

// ProblemRunes rewrites Unicode characters that LaTeX cannot digest:
// box-drawing dashes and bare combining acute accents.
func ProblemRunes(raw string) (string, int) {
	fixed := 0
	if strings.Contains(raw, "─") {
		fixed += strings.Count(raw, "─")
		raw = strings.ReplaceAll(raw, "─", "--")
	}
	if strings.ContainsRune(raw, '́') {
		var b strings.Builder
		runes := []rune(raw)
		for i := 0; i < len(runes); i++ {
			if i+1 < len(runes) && runes[i+1] == '́' && isLetter(runes[i]) {
				b.WriteString(`\'{`)
				b.WriteRune(runes[i])
				b.WriteString(`}`)
				i++
				fixed++
				continue
			}
			if runes[i] == '́' {
				// combining mark with nothing sensible to attach to
				fixed++
				continue
			}
			b.WriteRune(runes[i])
		}
		raw = b.String()
	}
	return raw, fixed
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 0x7f
}
