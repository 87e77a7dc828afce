package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/spaneval/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("locate", "7", "essay", "span")
	assert.Equal(t, a, Key("locate", "7", "essay", "span"))
	assert.NotEqual(t, a, Key("locate", "8", "essay", "span"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Contains(t, a, "spaneval:v1:")
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("x")

	require.NoError(t, c.Set(key, []byte("payload"), 0))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))

	// a fresh instance over the same dir sees the entry
	got, ok = NewDiskCache(dir, time.Hour).Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))

	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key))
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestDiskCache_Expired(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	require.NoError(t, c.Set("old", []byte("v"), -time.Second))

	_, ok := c.Get("old")
	assert.False(t, ok)
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewDiskCache(dir, time.Hour).Set("k", []byte("v"), 0))

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	_, ok = c.memory.Get("k")
	assert.True(t, ok, "disk hit should be promoted to memory")

	require.NoError(t, c.Clear())
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	assert.Nil(t, New(model.CacheConfig{Enabled: false}))
	assert.IsType(t, &MemoryCache{}, New(model.CacheConfig{Enabled: true}))
	assert.IsType(t, &LayeredCache{}, New(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute}))
}
