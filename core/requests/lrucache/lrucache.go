// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package lrucache provides a fixed-capacity least-recently-used store for
master gateway response bodies.

Entries expire after a TTL and remember the request path they were fetched
from, so that a mutation can drop every response under a path prefix.
Bodies are optionally kept zstd-compressed.
*/
package lrucache

import (
	"container/list"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

var ErrInvalidSize = errors.New("must provide a positive size")

// Cache is safe for concurrent use. Construct it with [New].
type Cache struct {
	size      int
	ttl       time.Duration
	evictList *list.List
	items     map[string]*list.Element
	lock      sync.Mutex
	now       func() time.Time

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type entry struct {
	key        string
	path       string
	body       []byte
	compressed bool
	expiresAt  time.Time
}

// New creates a cache holding at most size entries, each fresh for ttl.
//
// A zero ttl keeps entries until they are evicted or invalidated.
func New(size int, ttl time.Duration, compress bool) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	c := &Cache{
		size:      size,
		ttl:       ttl,
		evictList: list.New(),
		items:     make(map[string]*list.Element, size),
		now:       time.Now,
	}

	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}

		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}

		c.encoder = enc
		c.decoder = dec
	}

	return c, nil
}

// Put stores body under key, remembering the request path it answers.
// It reports whether an older entry was evicted to make room.
func (c *Cache) Put(key, path string, body []byte) bool {
	stored, compressed := c.pack(body)

	c.lock.Lock()
	defer c.lock.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.items[key]; ok {
		c.evictList.MoveToFront(elem)

		ent := elem.Value.(*entry)
		ent.path = path
		ent.body = stored
		ent.compressed = compressed
		ent.expiresAt = expiresAt

		return false
	}

	c.items[key] = c.evictList.PushFront(&entry{
		key:        key,
		path:       path,
		body:       stored,
		compressed: compressed,
		expiresAt:  expiresAt,
	})

	if c.evictList.Len() <= c.size {
		return false
	}

	c.removeElement(c.evictList.Back())

	return true
}

// Get returns a copy of the body stored under key and marks it recently used.
// Expired entries are dropped and reported as missing.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.lock.Lock()

	elem, ok := c.items[key]
	if !ok {
		c.lock.Unlock()

		return nil, false
	}

	ent := elem.Value.(*entry)
	if !ent.expiresAt.IsZero() && !c.now().Before(ent.expiresAt) {
		c.removeElement(elem)
		c.lock.Unlock()

		return nil, false
	}

	c.evictList.MoveToFront(elem)

	stored, compressed := ent.body, ent.compressed

	c.lock.Unlock()

	return c.unpack(stored, compressed)
}

// Remove deletes key and reports whether it was present.
func (c *Cache) Remove(key string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	elem, ok := c.items[key]
	if ok {
		c.removeElement(elem)
	}

	return ok
}

// RemovePathPrefixes deletes every entry whose path starts with one of
// prefixes and returns the removed paths, oldest first.
func (c *Cache) RemovePathPrefixes(prefixes ...string) []string {
	if len(prefixes) == 0 {
		return nil
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	var removed []string

	for elem := c.evictList.Back(); elem != nil; {
		prev := elem.Prev()
		ent := elem.Value.(*entry)

		for _, prefix := range prefixes {
			if strings.HasPrefix(ent.path, prefix) {
				removed = append(removed, ent.path)
				c.removeElement(elem)

				break
			}
		}

		elem = prev
	}

	return removed
}

// Len returns the number of entries, expired ones included until they are touched.
func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.evictList.Len()
}

func (c *Cache) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}

// pack copies body, compressing it when that saves space. zstd encoders
// allow concurrent EncodeAll calls, so this runs outside the lock.
func (c *Cache) pack(body []byte) ([]byte, bool) {
	if c.encoder != nil && len(body) > 0 {
		if packed := c.encoder.EncodeAll(body, nil); len(packed) < len(body) {
			return packed, true
		}
	}

	return append([]byte(nil), body...), false
}

func (c *Cache) unpack(stored []byte, compressed bool) ([]byte, bool) {
	if !compressed {
		return append([]byte(nil), stored...), true
	}

	body, err := c.decoder.DecodeAll(stored, nil)
	if err != nil {
		return nil, false
	}

	return body, true
}
