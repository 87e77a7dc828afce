package locate

import "slices"

// RepairStart corrects an approximate start offset of snippet in text.
//
// It starts from the first occurrence of snippet. While that occurrence is
// more than tolerance runes away from approxStart it moves on to the next
// occurrence past the previous one. It returns the corrected start and the
// number of occurrences skipped. An iteration count of -1 means no occurrence
// within tolerance exists; the returned start is then the first occurrence,
// or -1 when snippet does not occur in text at all.
func RepairStart(text, snippet string, approxStart, tolerance int) (int, int) {
	t := []rune(text)
	s := []rune(snippet)

	first := indexRunes(t, s, 0)
	if first < 0 {
		return -1, -1
	}
	if len(s) == 0 {
		return max(0, min(approxStart, len(t))), 0
	}

	start := first
	iterations := 0
	for abs(approxStart-start) > tolerance {
		next := indexRunes(t, s, start+len(s))
		if next < 0 {
			return first, -1
		}
		start = next
		iterations++
	}
	return start, iterations
}

// RepairStartEscalating retries RepairStart, widening the tolerance by step
// until an occurrence is accepted. It returns the corrected start, the
// iteration count and the tolerance that succeeded. A snippet absent from
// text fails immediately with start and iterations of -1.
func RepairStartEscalating(text, snippet string, approxStart, tolerance, step int) (int, int, int) {
	if step <= 0 {
		step = 10
	}
	for {
		start, iterations := RepairStart(text, snippet, approxStart, tolerance)
		if iterations >= 0 || start < 0 {
			return start, iterations, tolerance
		}
		tolerance += step
	}
}

// indexRunes returns the rune offset of the first occurrence of s in t at or
// after from, or -1
func indexRunes(t, s []rune, from int) int {
	if from > len(t) {
		return -1
	}
	if len(s) == 0 {
		return from
	}
	for i := from; i+len(s) <= len(t); i++ {
		if t[i] == s[0] && slices.Equal(t[i:i+len(s)], s) {
			return i
		}
	}
	return -1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
