package locate

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/ppiankov/spaneval/internal/cache"
)

// CachedLocator memoizes located spans. Cached outcomes, failures included,
// are identical to what the wrapped Locator returns.
type CachedLocator struct {
	locator *Locator
	cache   cache.Cache
}

// NewCachedLocator wraps locator with c
func NewCachedLocator(locator *Locator, c cache.Cache) *CachedLocator {
	return &CachedLocator{locator: locator, cache: c}
}

type cachedOutcome struct {
	Match     Match           `json:"match"`
	NoMatch   bool            `json:"no_match,omitempty"`
	Ambiguous *AmbiguousError `json:"ambiguous,omitempty"`
}

// Locate returns the cached outcome for (factor, essay, span) or computes it
func (c *CachedLocator) Locate(span, essay string) (Match, error) {
	key := cache.Key("locate", strconv.Itoa(c.locator.FuzzyFactor), essay, span)

	if data, ok := c.cache.Get(key); ok {
		var out cachedOutcome
		if err := json.Unmarshal(data, &out); err == nil {
			return out.Match, out.err()
		}
	}

	m, err := c.locator.Locate(span, essay)
	out := cachedOutcome{Match: m}
	var ambiguous *AmbiguousError
	switch {
	case err == nil:
	case errors.As(err, &ambiguous):
		out.Ambiguous = ambiguous
	case errors.Is(err, ErrNoMatch):
		out.NoMatch = true
	default:
		return m, err
	}

	if data, mErr := json.Marshal(out); mErr == nil {
		_ = c.cache.Set(key, data, 0)
	}
	return m, err
}

func (o cachedOutcome) err() error {
	switch {
	case o.Ambiguous != nil:
		return o.Ambiguous
	case o.NoMatch:
		return ErrNoMatch
	default:
		return nil
	}
}
