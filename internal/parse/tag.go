package parse

import (
	"regexp"

	"github.com/ppiankov/spaneval/internal/label"
)

var tagPattern = regexp.MustCompile(`</?([^>]+)>`)

// Tag parses spans written as <Label>span text</Label>.
//
// Markers are paired by last-opener matching only: a closing marker produces
// a span when its name equals the marker seen immediately before it. Nested
// or interleaved markers are not paired.
type Tag struct {
	Policy DuplicatePolicy
}

// Name returns the grammar name
func (t *Tag) Name() string {
	return "tag"
}

// Parse returns the pairs closed in document order, labels normalized
func (t *Tag) Parse(output string) ([]Pair, error) {
	var pairs []Pair
	lastTag := ""
	lastEnd := 0
	seenAny := false

	for _, loc := range tagPattern.FindAllStringSubmatchIndex(output, -1) {
		start, end := loc[0], loc[1]
		name := output[loc[2]:loc[3]]
		closing := loc[2] == start+2 && output[start+1] == '/'

		if closing && seenAny && name == lastTag {
			pairs = append(pairs, Pair{
				Span:  output[lastEnd:start],
				Label: label.Parse(name).String(),
			})
		}

		lastTag = name
		lastEnd = end
		seenAny = true
	}

	return collect(pairs, t.Policy), nil
}
