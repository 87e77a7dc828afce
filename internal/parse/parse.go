// Package parse turns annotated model output into (span text, label) pairs.
//
// Three annotation grammars are supported:
//
//	bracket  [span text|Label]
//	tag      <Label>span text</Label>
//	dict     {"span text": "Label", ...}
//
// The bracket and tag grammars are best effort and never fail. The dict
// grammar is strict: output that is not a well-formed mapping literal fails
// with ErrSyntax.
package parse

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax indicates output that does not follow the strict dict grammar.
	ErrSyntax = errors.New("parse: syntax error")

	// ErrUnknownGrammar indicates an unsupported grammar name.
	ErrUnknownGrammar = errors.New("parse: unknown grammar")

	// ErrUnknownPolicy indicates an unsupported duplicate policy name.
	ErrUnknownPolicy = errors.New("parse: unknown duplicate policy")
)

// Pair is a span text with the raw label the model assigned to it
type Pair struct {
	Span  string
	Label string
}

// Parser extracts pairs from one model output, in document order
type Parser interface {
	Name() string
	Parse(output string) ([]Pair, error)
}

// DuplicatePolicy decides what happens to repeated span texts
type DuplicatePolicy string

const (
	// KeepLast behaves like a key-unique map: the entry stays at the
	// position of the first occurrence and takes the label of the last.
	KeepLast DuplicatePolicy = "keep-last"
	// KeepFirst ignores every repetition of a span text.
	KeepFirst DuplicatePolicy = "keep-first"
	// KeepAll keeps every occurrence as an ordered pair.
	KeepAll DuplicatePolicy = "keep-all"
)

// ParsePolicy validates a duplicate policy name
func ParsePolicy(name string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(name); p {
	case KeepLast, KeepFirst, KeepAll:
		return p, nil
	case "":
		return KeepLast, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Grammars lists the supported grammar names
func Grammars() []string {
	return []string{"bracket", "tag", "dict"}
}

// ForGrammar returns the parser for a grammar name
func ForGrammar(name string, policy DuplicatePolicy) (Parser, error) {
	switch name {
	case "bracket":
		return &Bracket{Policy: policy}, nil
	case "tag":
		return &Tag{Policy: policy}, nil
	case "dict":
		return &Dict{Policy: policy}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: bracket, tag, dict)", ErrUnknownGrammar, name)
	}
}

// collect applies the duplicate policy to pairs found in document order
func collect(pairs []Pair, policy DuplicatePolicy) []Pair {
	if policy == KeepAll || len(pairs) < 2 {
		return pairs
	}

	index := make(map[string]int, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		i, seen := index[p.Span]
		if !seen {
			index[p.Span] = len(out)
			out = append(out, p)
			continue
		}
		if policy != KeepFirst {
			out[i].Label = p.Label
		}
	}
	return out
}
