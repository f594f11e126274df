package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t *time.Time) Clock {
	return func() time.Time { return *t }
}

func TestStoreGetSet(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := New(24*time.Hour, fixedClock(&now))

	key := Key("sale", "building:7", "2br", "1 year")

	_, ok := store.Get(key)
	assert.False(t, ok, "empty store should miss")

	store.Set(key, 42.0)
	v, ok := store.Get(key)
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	// Advance past the TTL.
	now = now.Add(24*time.Hour + time.Minute)
	_, ok = store.Get(key)
	assert.False(t, ok, "expired entry should miss")
}

func TestStoreGetOrCompute(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := New(time.Hour, fixedClock(&now))

	calls := 0
	compute := func() (interface{}, error) {
		calls++
		return "baseline", nil
	}

	v, err := store.GetOrCompute("k", compute)
	assert.NoError(t, err)
	assert.Equal(t, "baseline", v)
	assert.Equal(t, 1, calls)

	// Second call within the TTL hits the cache, no recompute.
	v, err = store.GetOrCompute("k", compute)
	assert.NoError(t, err)
	assert.Equal(t, "baseline", v)
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Hour)
	_, err = store.GetOrCompute("k", compute)
	assert.NoError(t, err)
	assert.Equal(t, 2, calls, "expired entry recomputes")
}

func TestStoreGetOrComputeError(t *testing.T) {
	store := New(time.Hour, nil)

	_, err := store.GetOrCompute("k", func() (interface{}, error) {
		return nil, errors.New("storage unavailable")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len(), "failed compute must not be cached")
}

func TestStorePurge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := New(time.Hour, fixedClock(&now))

	store.Set("a", 1)
	store.Set("b", 2)
	now = now.Add(30 * time.Minute)
	store.Set("c", 3)

	now = now.Add(45 * time.Minute) // a and b expired, c still live
	assert.Equal(t, 2, store.Purge())
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get("c")
	assert.True(t, ok)
}

func TestKeyDeterministic(t *testing.T) {
	a := Key("sale", "area:3", "", "6 months")
	b := Key("sale", "area:3", "", "6 months")
	c := Key("rent", "area:3", "", "6 months")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
