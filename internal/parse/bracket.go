package parse

import "regexp"

var bracketPattern = regexp.MustCompile(`([^\[\]|]+)\|([^\]]+)\]`)

// Bracket parses spans written as [span text|Label]
type Bracket struct {
	Policy DuplicatePolicy
}

// Name returns the grammar name
func (b *Bracket) Name() string {
	return "bracket"
}

// Parse scans for non-overlapping [text|label] groups in document order
func (b *Bracket) Parse(output string) ([]Pair, error) {
	var pairs []Pair
	for _, m := range bracketPattern.FindAllStringSubmatch(output, -1) {
		pairs = append(pairs, Pair{Span: m[1], Label: m[2]})
	}
	return collect(pairs, b.Policy), nil
}
