// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package lrucache

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, size int, ttl time.Duration, compress bool) (*Cache, *time.Time) {
	t.Helper()

	c, err := New(size, ttl, compress)
	require.NoError(t, err)

	clock := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return clock }

	return c, &clock
}

func TestNewRejectsInvalidSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		c, err := New(size, time.Second, false)
		require.ErrorIs(t, err, ErrInvalidSize)
		assert.Nil(t, c)
	}
}

func TestPutGet(t *testing.T) {
	t.Parallel()

	for _, compress := range []bool{false, true} {
		t.Run("compress="+strconv.FormatBool(compress), func(t *testing.T) {
			t.Parallel()

			c, _ := newTestCache(t, 4, time.Minute, compress)

			body := []byte(strings.Repeat(`{"replica":3},`, 100))
			assert.False(t, c.Put("k", "/api/services", body))

			got, ok := c.Get("k")
			require.True(t, ok)
			assert.Equal(t, body, got)

			got[0] = 'X'
			again, _ := c.Get("k")
			assert.Equal(t, byte('{'), again[0], "callers must not mutate cached bodies")

			_, ok = c.Get("missing")
			assert.False(t, ok)
		})
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 2, 0, false)

	c.Put("a", "/a", []byte("a"))
	c.Put("b", "/b", []byte("b"))

	_, ok := c.Get("a")
	require.True(t, ok)

	assert.True(t, c.Put("c", "/c", []byte("c")))
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok)

	for _, key := range []string{"a", "c"} {
		_, ok = c.Get(key)
		assert.True(t, ok, key)
	}
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache(t, 2, 10*time.Second, false)

	c.Put("k", "/api/cluster", []byte("{}"))

	*clock = clock.Add(9 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	*clock = clock.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestRemovePathPrefixes(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 8, 0, true)

	c.Put("1", "/api/services", []byte("1"))
	c.Put("2", "/api/services/web/taskgroups", []byte("2"))
	c.Put("3", "/api/taskgroups", []byte("3"))
	c.Put("4", "/api/cluster", []byte("4"))

	removed := c.RemovePathPrefixes("/api/services", "/api/taskgroups")

	assert.Equal(t, []string{"/api/services", "/api/services/web/taskgroups", "/api/taskgroups"}, removed)
	assert.Equal(t, 1, c.Len())

	body, ok := c.Get("4")
	require.True(t, ok)
	assert.Equal(t, []byte("4"), body)
	assert.Nil(t, c.RemovePathPrefixes())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 3, 0, false)

	c.Put("a", "/a", nil)
	c.Put("b", "/b", []byte("b"))

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 1, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c, err := New(16, time.Minute, true)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for worker := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 200 {
				key := strconv.Itoa((worker + i) % 32)
				c.Put(key, "/api/"+key, []byte(strings.Repeat(key, 64)))
				c.Get(key)

				if i%50 == 0 {
					c.RemovePathPrefixes("/api/1")
				}
			}
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
