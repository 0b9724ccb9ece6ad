package report

import "strings"

var pdfReplacer = strings.NewReplacer(
	"—", "-", "–", "-",
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
	"•", "-", "…", "...",
)

// sanitize maps text onto the character set of the built-in PDF fonts.
// Common typographic punctuation is replaced with ASCII equivalents and any
// remaining rune outside latin-1 is dropped.
func sanitize(s string) string {
	s = pdfReplacer.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || (r >= 0x20 && r <= 0xFF) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
