// Package cache is a small in-process cache for upstream API responses.
// Entries are fresh for a TTL, then kept a while longer so they can be
// served when the upstream fails. Concurrent misses for one key share a
// single fetch.
package cache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultFetchTimeout = 30 * time.Second

// Outcome says where a value came from.
type Outcome int

const (
	Miss Outcome = iota
	Hit
	StaleHit
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case StaleHit:
		return "stale"
	default:
		return "miss"
	}
}

// Config tunes a Cache. Zero durations are replaced with the defaults
// passed to New.
type Config struct {
	// TTL is how long an entry is served without refetching.
	TTL time.Duration

	// StaleFor is how long past fetch time an entry may stand in for a
	// failed refetch. It should exceed TTL.
	StaleFor time.Duration

	// SweepEvery bounds how often entries past StaleFor are dropped.
	SweepEvery time.Duration

	// FetchTimeout bounds a shared fetch. The fetch does not inherit any
	// caller's cancellation, so one caller leaving does not fail the
	// others waiting on the same key.
	FetchTimeout time.Duration

	Now func() time.Time
}

func (c Config) withDefaults(def Config) Config {
	if c.TTL <= 0 {
		c.TTL = def.TTL
	}
	if c.StaleFor <= 0 {
		c.StaleFor = def.StaleFor
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = def.SweepEvery
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = def.FetchTimeout
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Stats is a point-in-time count of entries.
type Stats struct {
	Entries int `json:"entries"`
	Fresh   int `json:"fresh"`
	Stale   int `json:"stale"`
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache maps string keys to values of type V.
type Cache[V any] struct {
	cfg   Config
	group singleflight.Group

	mu        sync.Mutex
	entries   map[string]entry[V]
	lastSweep time.Time
}

// New creates a cache from cfg, filling zero fields from def.
func New[V any](cfg, def Config) *Cache[V] {
	return &Cache[V]{
		cfg:     cfg.withDefaults(def),
		entries: make(map[string]entry[V]),
	}
}

// Fetch loads a value from upstream.
type Fetch[V any] func(ctx context.Context) (V, error)

// Get returns the fresh entry for key or calls fetch. When fetch fails and
// useStale(err) is true, an entry younger than StaleFor is returned with
// StaleHit and a nil error. A nil useStale never serves stale entries.
// If ctx ends first, Get returns ctx's error and the fetch carries on for
// the remaining callers.
func (c *Cache[V]) Get(ctx context.Context, key string, fetch Fetch[V], useStale func(error) bool) (V, Outcome, error) {
	var zero V
	if v, ok := c.fresh(key); ok {
		return v, Hit, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// A concurrent caller may have filled the entry.
		if v, ok := c.fresh(key); ok {
			return v, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)
		defer cancel()
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.put(key, v)
		return v, nil
	})

	var err error
	select {
	case <-ctx.Done():
		return zero, Miss, ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(V), Miss, nil
		}
		err = res.Err
	}

	if useStale != nil && useStale(err) {
		if v, ok := c.stale(key); ok {
			return v, StaleHit, nil
		}
	}
	return zero, Miss, err
}

func (c *Cache[V]) fresh(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.cfg.Now().Before(e.fetchedAt.Add(c.cfg.TTL)) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) stale(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.cfg.Now().Before(e.fetchedAt.Add(c.cfg.StaleFor)) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) put(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cfg.Now()
	c.entries[key] = entry[V]{value: v, fetchedAt: now}

	if now.Sub(c.lastSweep) < c.cfg.SweepEvery {
		return
	}
	c.lastSweep = now
	for k, e := range c.entries {
		if !now.Before(e.fetchedAt.Add(c.cfg.StaleFor)) {
			delete(c.entries, k)
		}
	}
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Stats counts fresh and stale-servable entries.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cfg.Now()
	s := Stats{Entries: len(c.entries)}
	for _, e := range c.entries {
		switch {
		case now.Before(e.fetchedAt.Add(c.cfg.TTL)):
			s.Fresh++
		case now.Before(e.fetchedAt.Add(c.cfg.StaleFor)):
			s.Stale++
		}
	}
	return s
}

// GridKey snaps a coordinate to the south-west corner of its cell so nearby
// points share a key. prec is the number of decimals kept.
func GridKey(lat, lon, cell float64, prec int) string {
	return fmt.Sprintf("%.*f,%.*f", prec, math.Floor(lat/cell)*cell, prec, math.Floor(lon/cell)*cell)
}
