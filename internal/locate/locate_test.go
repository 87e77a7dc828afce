package locate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/spaneval/internal/cache"
	"github.com/ppiankov/spaneval/internal/model"
)

func TestLocate_Verbatim(t *testing.T) {
	essay := "Señor, the quick brown fox jumps."
	m, err := NewLocator(0).Locate("quick brown fox", essay)
	require.NoError(t, err)

	assert.Equal(t, model.SourceVerbatim, m.Source)
	assert.Equal(t, 11, m.Start, "offsets count runes, not bytes")
	assert.Equal(t, 26, m.End)
	assert.Equal(t, "quick brown fox", string([]rune(essay)[m.Start:m.End]))
}

func TestLocate_FuzzyUnique(t *testing.T) {
	essay := "The quick brown fox jumps over the lazy dog."
	m, err := NewLocator(DefaultFuzzyFactor).Locate("quick brwn fox", essay)
	require.NoError(t, err)

	assert.Equal(t, model.SourceFuzzy, m.Source)
	assert.Equal(t, "quick brown fox", m.Text)
	assert.Equal(t, 4, m.Start)
	assert.Equal(t, 19, m.End)
	assert.Equal(t, 1, m.Distance)
}

func TestLocate_Ambiguous(t *testing.T) {
	_, err := NewLocator(DefaultFuzzyFactor).Locate("the rat sat.", "the cat sat. the bat sat.")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousMatch)
	assert.ErrorIs(t, err, ErrUnlocated)

	var ambiguous *AmbiguousError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, 2, ambiguous.Candidates)
	assert.Equal(t, 1, ambiguous.MaxDist)
}

func TestLocate_NoMatch(t *testing.T) {
	m, err := NewLocator(DefaultFuzzyFactor).Locate("completely unrelated words", "The quick brown fox.")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, model.SourceUnmatched, m.Source)
}

func TestLocate_ShortSpanNeedsExactMatch(t *testing.T) {
	// five runes allow no edits at factor 7
	_, err := NewLocator(DefaultFuzzyFactor).Locate("quack", "The quick brown fox.")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestFindNear_GroupsOverlappingCandidates(t *testing.T) {
	matches := FindNear("brown fox", "the brown fox and the brown box", 1)
	require.Len(t, matches, 2)
	assert.Equal(t, "brown fox", matches[0].Text)
	assert.Equal(t, 0, matches[0].Distance)
	assert.Equal(t, "brown box", matches[1].Text)
	assert.Equal(t, 1, matches[1].Distance)
}

func TestRepairStart(t *testing.T) {
	text := "a cat and a cat and a cat"

	tests := []struct {
		name      string
		snippet   string
		approx    int
		tolerance int
		wantStart int
		wantIter  int
	}{
		{"first occurrence within tolerance", "cat", 2, 3, 2, 0},
		{"third occurrence", "cat", 20, 3, 22, 2},
		{"second occurrence", "cat", 13, 3, 12, 1},
		{"absent snippet", "dog", 5, 3, -1, -1},
		{"nothing within tolerance", "cat", 100, 3, 2, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, iter := RepairStart(text, tt.snippet, tt.approx, tt.tolerance)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantIter, iter)
		})
	}
}

func TestRepairStartEscalating(t *testing.T) {
	text := "a cat and a cat and a cat"

	start, iter, tol := RepairStartEscalating(text, "cat", 40, 3, 10)
	assert.Equal(t, 22, start)
	assert.Equal(t, 2, iter)
	assert.Equal(t, 23, tol)

	start, iter, _ = RepairStartEscalating(text, "dog", 40, 3, 10)
	assert.Equal(t, -1, start)
	assert.Equal(t, -1, iter)
}

func TestCheckOverlap(t *testing.T) {
	tests := []struct {
		s1, e1, s2, e2 int
		want           Interval
		ok             bool
	}{
		{0, 4, 1, 3, Interval{1, 3}, true},
		{0, 4, 4, 10, Interval{}, false},
		{0, 4, 2, 7, Interval{2, 4}, true},
		{1, 4, 1, 4, Interval{1, 4}, true},
		{0, 4, 5, 7, Interval{}, false},
		// shorter interval first
		{1, 3, 0, 4, Interval{1, 3}, true},
		{2, 3, 0, 10, Interval{2, 3}, true},
		{2, 7, 0, 4, Interval{2, 4}, true},
		{4, 10, 0, 4, Interval{}, false},
		{5, 7, 0, 4, Interval{}, false},
		{3, 3, 0, 4, Interval{}, false},
	}

	for _, tt := range tests {
		got, ok := CheckOverlap(tt.s1, tt.e1, tt.s2, tt.e2)
		assert.Equal(t, tt.ok, ok, "(%d,%d,%d,%d)", tt.s1, tt.e1, tt.s2, tt.e2)
		assert.Equal(t, tt.want, got, "(%d,%d,%d,%d)", tt.s1, tt.e1, tt.s2, tt.e2)

		swapped, swappedOK := CheckOverlap(tt.s2, tt.e2, tt.s1, tt.e1)
		assert.Equal(t, ok, swappedOK, "argument order (%d,%d,%d,%d)", tt.s1, tt.e1, tt.s2, tt.e2)
		assert.Equal(t, got, swapped, "argument order (%d,%d,%d,%d)", tt.s1, tt.e1, tt.s2, tt.e2)
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, `"Hi" 'em`, Clean("\u00a0\u201cHi\u201d \u2019em\u00a0"))
	assert.Equal(t, "a b", Clean("a\u00a0 b"))
	assert.Equal(t, "a b", Clean("a \u00a0b"))
	assert.Equal(t, "plain", Clean("  plain\n"))
}

// countingCache records lookups that reach the wrapped cache
type countingCache struct {
	cache.Cache
	hits int
}

func (c *countingCache) Get(key string) ([]byte, bool) {
	v, ok := c.Cache.Get(key)
	if ok {
		c.hits++
	}
	return v, ok
}

func TestCachedLocator(t *testing.T) {
	store := &countingCache{Cache: cache.NewMemoryCache(time.Minute, time.Minute)}
	l := NewCachedLocator(NewLocator(DefaultFuzzyFactor), store)

	essay := "The quick brown fox jumps over the lazy dog."
	first, err := l.Locate("quick brwn fox", essay)
	require.NoError(t, err)
	second, err := l.Locate("quick brwn fox", essay)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.hits)
}

func TestCachedLocator_PreservesFailures(t *testing.T) {
	store := &countingCache{Cache: cache.NewMemoryCache(time.Minute, time.Minute)}
	l := NewCachedLocator(NewLocator(DefaultFuzzyFactor), store)

	for i := 0; i < 2; i++ {
		_, err := l.Locate("the rat sat.", "the cat sat. the bat sat.")
		var ambiguous *AmbiguousError
		require.True(t, errors.As(err, &ambiguous))
		assert.Equal(t, 2, ambiguous.Candidates)

		_, err = l.Locate("nothing like it", "the cat sat.")
		assert.ErrorIs(t, err, ErrNoMatch)
	}
	assert.Equal(t, 2, store.hits)
}
