package locate

import (
	"cmp"
	"slices"

	"github.com/ppiankov/spaneval/internal/model"
)

// FindNear returns the approximate occurrences of pattern in text within
// maxDist insertions, deletions or substitutions, one per group of
// overlapping candidates, ordered by start offset.
func FindNear(pattern, text string, maxDist int) []Match {
	p := []rune(pattern)
	t := []rune(text)
	if len(p) == 0 || maxDist < 0 {
		return nil
	}

	candidates := nearCandidates(p, t, maxDist)
	if len(candidates) == 0 {
		return nil
	}

	var matches []Match
	for _, group := range overlapGroups(candidates) {
		best := slices.MinFunc(group, func(a, b Match) int {
			if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
				return c
			}
			if c := cmp.Compare(b.End-b.Start, a.End-a.Start); c != 0 {
				return c
			}
			return cmp.Compare(a.Start, b.Start)
		})
		best.Text = string(t[best.Start:best.End])
		best.Source = model.SourceFuzzy
		matches = append(matches, best)
	}
	return matches
}

// nearCandidates runs the Sellers edit-distance recurrence, where a match may
// start anywhere in the text, and reports every end offset whose best
// distance is within budget together with the start of that alignment.
func nearCandidates(p, t []rune, maxDist int) []Match {
	m := len(p)
	cost := make([]int, m+1)
	start := make([]int, m+1)
	next := make([]int, m+1)
	nextStart := make([]int, m+1)

	for i := range cost {
		cost[i] = i
	}

	var out []Match
	for j := 1; j <= len(t); j++ {
		next[0] = 0
		nextStart[0] = j
		c := t[j-1]

		for i := 1; i <= m; i++ {
			sub := cost[i-1]
			if p[i-1] != c {
				sub++
			}
			best, bestStart := sub, start[i-1]

			// text character skipped
			if del := cost[i] + 1; del < best || (del == best && start[i] > bestStart) {
				best, bestStart = del, start[i]
			}
			// pattern character skipped
			if ins := next[i-1] + 1; ins < best || (ins == best && nextStart[i-1] > bestStart) {
				best, bestStart = ins, nextStart[i-1]
			}

			next[i] = best
			nextStart[i] = bestStart
		}

		if next[m] <= maxDist {
			out = append(out, Match{Start: nextStart[m], End: j, Distance: next[m]})
		}
		cost, next = next, cost
		start, nextStart = nextStart, start
	}
	return out
}

// overlapGroups partitions candidates into transitively overlapping groups
func overlapGroups(candidates []Match) [][]Match {
	sorted := slices.Clone(candidates)
	slices.SortFunc(sorted, func(a, b Match) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})

	var groups [][]Match
	groupEnd := -1
	for _, c := range sorted {
		if len(groups) > 0 && c.Start < groupEnd {
			last := len(groups) - 1
			groups[last] = append(groups[last], c)
			groupEnd = max(groupEnd, c.End)
			continue
		}
		groups = append(groups, []Match{c})
		groupEnd = c.End
	}
	return groups
}
