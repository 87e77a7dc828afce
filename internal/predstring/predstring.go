// Package predstring projects character spans onto whitespace token indices,
// the "predictionstring" convention of the Feedback Prize evaluation.
//
// Token counting is deliberately crude: text is split on whitespace only, so
// "word4," is one token. Scores are only comparable with the competition
// when this exact convention is kept.
package predstring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/spaneval/internal/model"
)

// WordRange returns the token indices covered by the rune range [start, end)
// of text. The first index is the number of tokens before start, the end is
// the number of tokens before end, so a partial trailing word is included.
func WordRange(text string, start, end int) []int {
	runes := []rune(text)
	first := countFields(runes, start)
	last := countFields(runes, end)

	if last <= first {
		return nil
	}
	words := make([]int, 0, last-first)
	for i := first; i < last; i++ {
		words = append(words, i)
	}
	return words
}

func countFields(runes []rune, end int) int {
	end = max(0, min(end, len(runes)))
	return len(strings.Fields(string(runes[:end])))
}

// String renders token indices as a space-separated predictionstring
func String(words []int) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strconv.Itoa(w)
	}
	return strings.Join(parts, " ")
}

// ParseString reads a space-separated predictionstring
func ParseString(s string) ([]int, error) {
	fields := strings.Fields(s)
	words := make([]int, 0, len(fields))
	for _, f := range fields {
		w, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("parse predictionstring %q: %w", s, err)
		}
		words = append(words, w)
	}
	return words, nil
}

// Row is one scoring record: a labeled set of token indices of an essay.
// ID is the row position within its table and identifies predictions when
// matches are selected.
type Row struct {
	ID      int
	EssayID string
	Label   string
	Words   []int
}

// Key is the predictionstring of the row
func (r Row) Key() string {
	return String(r.Words)
}

// TextFunc returns the essay text a unit's offsets refer to
type TextFunc func(essayID string) string

// SpanRows builds one row per unit covering the unit's whole token range
func SpanRows(units []model.DiscourseUnit, textOf TextFunc) []Row {
	rows := make([]Row, 0, len(units))
	for _, u := range units {
		rows = append(rows, Row{
			ID:      len(rows),
			EssayID: u.EssayID,
			Label:   string(u.Label),
			Words:   WordRange(textOf(u.EssayID), u.Start, u.End),
		})
	}
	return rows
}

// WordRows builds one row per token index, so every word is a unit of its own
func WordRows(units []model.DiscourseUnit, textOf TextFunc) []Row {
	var rows []Row
	for _, u := range units {
		for _, w := range WordRange(textOf(u.EssayID), u.Start, u.End) {
			rows = append(rows, Row{
				ID:      len(rows),
				EssayID: u.EssayID,
				Label:   string(u.Label),
				Words:   []int{w},
			})
		}
	}
	return rows
}

// TextIndex maps essay ids to their texts
type TextIndex map[string]string

// Lookup satisfies TextFunc
func (t TextIndex) Lookup(essayID string) string {
	return t[essayID]
}
