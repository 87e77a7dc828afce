package locate

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var nbspReplacer = strings.NewReplacer(
	"\u00a0 ", " ",
	" \u00a0", " ",
	"\u00a0", " ",
)

// quoteFolder maps typographic quotes to their ASCII forms, one rune for one
var quoteFolder = runes.Map(func(r rune) rune {
	switch r {
	case '\u2018', '\u2019', '\u201a', '\u201b', '\u2032':
		return '\''
	case '\u201c', '\u201d', '\u201e', '\u201f', '\u2033':
		return '"'
	}
	return r
})

// Clean collapses non-breaking spaces, folds typographic quotes to ASCII and
// trims surrounding whitespace. Essays and ground truth snippets are cleaned
// the same way so that offsets stay comparable.
func Clean(text string) string {
	text = nbspReplacer.Replace(text)
	folded, _, err := transform.String(quoteFolder, text)
	if err != nil {
		folded = text
	}
	return strings.TrimSpace(folded)
}
