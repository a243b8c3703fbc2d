// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package lrucache provides a thread-safe, fixed-capacity byte cache with
least-recently-used eviction and per-entry expiry.

Entries older than the TTL given to [New] are treated as missing and dropped
on access. When compression is enabled, values are stored zstd-compressed
whenever that makes them smaller.
*/
package lrucache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

var (
	ErrInvalidSize = errors.New("must provide a positive size")
	ErrInvalidTTL  = errors.New("ttl must not be negative")
)

// Cache is safe for concurrent use. The zero value is not usable; call [New].
type Cache struct {
	size int
	ttl  time.Duration // zero means entries never expire
	now  func() time.Time

	lock      sync.Mutex
	evictList *list.List
	items     map[string]*list.Element

	enc *zstd.Encoder // nil when compression is off
	dec *zstd.Decoder
}

type entry struct {
	key        string
	data       []byte
	compressed bool
	expiresAt  time.Time
}

// New creates a cache holding at most size entries, each living for ttl.
func New(size int, ttl time.Duration, compress bool) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	if ttl < 0 {
		return nil, ErrInvalidTTL
	}

	c := &Cache{
		size:      size,
		ttl:       ttl,
		now:       time.Now,
		evictList: list.New(),
		items:     make(map[string]*list.Element, size),
	}

	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}

		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}

		c.enc, c.dec = enc, dec
	}

	return c, nil
}

// Set stores a copy of value under key and makes it the most recently used
// entry. It reports whether another entry was evicted to make room.
func (c *Cache) Set(key string, value []byte) bool {
	data, compressed := c.encode(value)

	c.lock.Lock()
	defer c.lock.Unlock()

	expiresAt := c.expiry()

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)

		ent := el.Value.(*entry) //nolint:forcetypeassert // only *entry is ever pushed
		ent.data, ent.compressed, ent.expiresAt = data, compressed, expiresAt

		return false
	}

	c.items[key] = c.evictList.PushFront(&entry{
		key:        key,
		data:       data,
		compressed: compressed,
		expiresAt:  expiresAt,
	})

	if c.evictList.Len() <= c.size {
		return false
	}

	c.removeElement(c.evictList.Back())

	return true
}

// Get returns a copy of the value stored under key and marks it as most
// recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.lookup(key, true)
}

// Peek is Get without touching the eviction order.
func (c *Cache) Peek(key string) ([]byte, bool) {
	return c.lookup(key, false)
}

// Remove deletes key and reports whether it was present.
func (c *Cache) Remove(key string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	el, ok := c.items[key]
	if ok {
		c.removeElement(el)
	}

	return ok
}

// Keys returns the keys of all live entries, oldest first.
func (c *Cache) Keys() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.items))

	for el := c.evictList.Back(); el != nil; el = el.Prev() {
		ent := el.Value.(*entry) //nolint:forcetypeassert // only *entry is ever pushed
		if !c.expired(ent, now) {
			keys = append(keys, ent.key)
		}
	}

	return keys
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.evictList.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.evictList.Init()
	clear(c.items)
}

func (c *Cache) lookup(key string, touch bool) ([]byte, bool) {
	c.lock.Lock()

	el, ok := c.items[key]
	if !ok {
		c.lock.Unlock()

		return nil, false
	}

	ent := el.Value.(*entry) //nolint:forcetypeassert // only *entry is ever pushed
	if c.expired(ent, c.now()) {
		c.removeElement(el)
		c.lock.Unlock()

		return nil, false
	}

	if touch {
		c.evictList.MoveToFront(el)
	}

	data, compressed := ent.data, ent.compressed

	c.lock.Unlock()

	return c.decode(data, compressed)
}

func (c *Cache) expiry() time.Time {
	if c.ttl == 0 {
		return time.Time{}
	}

	return c.now().Add(c.ttl)
}

func (c *Cache) expired(ent *entry, now time.Time) bool {
	return !ent.expiresAt.IsZero() && !now.Before(ent.expiresAt)
}

func (c *Cache) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	delete(c.items, el.Value.(*entry).key) //nolint:forcetypeassert // only *entry is ever pushed
}

// encode returns the representation to store. It is called without the lock
// held; zstd.Encoder.EncodeAll is safe for concurrent use.
func (c *Cache) encode(value []byte) ([]byte, bool) {
	if c.enc != nil && len(value) > 0 {
		if packed := c.enc.EncodeAll(value, nil); len(packed) < len(value) {
			return packed, true
		}
	}

	return append([]byte(nil), value...), false
}

// decode reverses encode. A value that fails to decompress counts as a miss.
func (c *Cache) decode(data []byte, compressed bool) ([]byte, bool) {
	if !compressed {
		return append([]byte(nil), data...), true
	}

	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, false
	}

	return out, true
}
