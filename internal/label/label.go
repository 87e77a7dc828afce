// Package label normalizes free-form discourse type names onto the closed label set.
package label

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/ppiankov/spaneval/internal/model"
)

// SimilarityFloor is the minimum normalized similarity for a match
const SimilarityFloor = 0.6

// Parse maps a raw type name to the closest label of the closed set.
// Case, spaces, underscores and hyphens are ignored. It returns
// model.LabelNone when no label reaches SimilarityFloor.
func Parse(raw string) model.Label {
	folded := fold(raw)
	if folded == "" {
		return model.LabelNone
	}

	best := model.LabelNone
	bestScore := 0.0
	for _, candidate := range model.Labels() {
		score := Similarity(folded, fold(string(candidate)))
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if bestScore < SimilarityFloor {
		return model.LabelNone
	}
	return best
}

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) over runes
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1.0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(longest)
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, s)
}
