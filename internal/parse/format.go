package parse

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/ppiankov/spaneval/internal/model"
)

// FormatBracket renders the essay with every unit wrapped as [text|Label]
func FormatBracket(essayText string, units []model.DiscourseUnit) string {
	return inline(essayText, units, func(b *strings.Builder, span string, l model.Label) {
		fmt.Fprintf(b, "[%s|%s]", span, l)
	})
}

// FormatTag renders the essay with every unit wrapped as <Label>text</Label>,
// inside an xml code fence
func FormatTag(essayText string, units []model.DiscourseUnit) string {
	body := inline(essayText, units, func(b *strings.Builder, span string, l model.Label) {
		fmt.Fprintf(b, "<%s>%s</%s>", l, span, l)
	})
	return "```xml\n" + body + "```"
}

// FormatDict renders the units as a mapping literal of span text to label.
// Double quotes inside spans become single quotes.
func FormatDict(essayText string, units []model.DiscourseUnit) string {
	text := []rune(essayText)
	var b strings.Builder
	b.WriteString("{\n")
	for _, u := range sortedUnits(units) {
		span := string(text[clamp(u.Start, len(text)):clamp(u.End, len(text))])
		fmt.Fprintf(&b, "\"%s\": \"%s\",\n", dictEscape(span), u.Label)
	}
	b.WriteString("}")
	return b.String()
}

// Format renders units in the named grammar
func Format(grammar, essayText string, units []model.DiscourseUnit) (string, error) {
	switch grammar {
	case "bracket":
		return FormatBracket(essayText, units), nil
	case "tag":
		return FormatTag(essayText, units), nil
	case "dict":
		return FormatDict(essayText, units), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGrammar, grammar)
	}
}

var dictEscaper = strings.NewReplacer(
	`"`, "'",
	`\`, `\\`,
	"\n", `\n`,
	"\r", `\r`,
)

func dictEscape(s string) string {
	return dictEscaper.Replace(s)
}

// inline copies the essay text and lets wrap render each unit in place
func inline(essayText string, units []model.DiscourseUnit, wrap func(*strings.Builder, string, model.Label)) string {
	text := []rune(essayText)
	var b strings.Builder
	cursor := 0
	for _, u := range sortedUnits(units) {
		start := clamp(u.Start, len(text))
		end := clamp(u.End, len(text))
		if start > cursor {
			b.WriteString(string(text[cursor:start]))
		}
		if start < cursor {
			start = cursor
		}
		if end < start {
			end = start
		}
		wrap(&b, string(text[start:end]), u.Label)
		cursor = end
	}
	if cursor < len(text) {
		b.WriteString(string(text[cursor:]))
	}
	return b.String()
}

func sortedUnits(units []model.DiscourseUnit) []model.DiscourseUnit {
	sorted := slices.Clone(units)
	slices.SortStableFunc(sorted, func(a, b model.DiscourseUnit) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return sorted
}

func clamp(i, n int) int {
	return max(0, min(i, n))
}
