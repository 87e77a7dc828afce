// Package locate resolves span texts produced by a model to rune offsets in
// the essay they were taken from.
package locate

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/spaneval/internal/model"
)

// DefaultFuzzyFactor allows one edit per seven characters of span text
const DefaultFuzzyFactor = 7

var (
	// ErrUnlocated is the common cause of every failure to locate a span.
	ErrUnlocated = errors.New("locate: span not located")

	// ErrNoMatch indicates that approximate search found no candidate.
	ErrNoMatch = fmt.Errorf("%w: no approximate match", ErrUnlocated)

	// ErrAmbiguousMatch indicates more than one approximate candidate.
	ErrAmbiguousMatch = fmt.Errorf("%w: ambiguous approximate match", ErrUnlocated)
)

// Match is a located span. Start and End are rune offsets, End exclusive.
type Match struct {
	Start    int          `json:"start"`
	End      int          `json:"end"`
	Text     string       `json:"text"`
	Source   model.Source `json:"source"`
	Distance int          `json:"distance"`
}

// SpanLocator resolves a span text inside an essay
type SpanLocator interface {
	Locate(span, essay string) (Match, error)
}

// Locator finds spans verbatim, falling back to bounded approximate search
type Locator struct {
	// FuzzyFactor is the number of span characters per allowed edit.
	// Smaller values tolerate more edits and search longer.
	FuzzyFactor int
}

// NewLocator creates a locator; non-positive factors use DefaultFuzzyFactor
func NewLocator(fuzzyFactor int) *Locator {
	if fuzzyFactor <= 0 {
		fuzzyFactor = DefaultFuzzyFactor
	}
	return &Locator{FuzzyFactor: fuzzyFactor}
}

// Locate returns the first verbatim occurrence of span in essay. If there is
// none, it accepts an approximate match only when exactly one candidate lies
// within runeLen(span)/FuzzyFactor edits.
func (l *Locator) Locate(span, essay string) (Match, error) {
	if m, ok := FindVerbatim(span, essay); ok {
		return m, nil
	}

	factor := l.FuzzyFactor
	if factor <= 0 {
		factor = DefaultFuzzyFactor
	}
	maxDist := utf8.RuneCountInString(span) / factor

	candidates := FindNear(span, essay, maxDist)
	switch len(candidates) {
	case 0:
		return Match{Source: model.SourceUnmatched}, ErrNoMatch
	case 1:
		return candidates[0], nil
	default:
		return Match{Source: model.SourceUnmatched}, &AmbiguousError{Candidates: len(candidates), MaxDist: maxDist}
	}
}

// AmbiguousError reports how many approximate candidates competed
type AmbiguousError struct {
	Candidates int
	MaxDist    int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%v: %d candidates within %d edits", ErrAmbiguousMatch, e.Candidates, e.MaxDist)
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousMatch
}

// FindVerbatim returns the first exact occurrence of span in essay
func FindVerbatim(span, essay string) (Match, bool) {
	idx := strings.Index(essay, span)
	if idx < 0 {
		return Match{}, false
	}
	start := utf8.RuneCountInString(essay[:idx])
	return Match{
		Start:  start,
		End:    start + utf8.RuneCountInString(span),
		Text:   span,
		Source: model.SourceVerbatim,
	}, true
}
