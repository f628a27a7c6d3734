// Package resultcache implements the (O, D, date, minute)-keyed route
// cache (component J): legs-only results, 1-hour TTL, explicit invalidation
// on static refresh or manual ingest. Risk scoring always runs fresh after
// a cache lookup, so the cache only bounds staleness of the candidate set.
package resultcache

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dcmshi/transit-planner/internal/routing"
)

// TTL is the fixed cache lifetime for one entry.
const TTL = time.Hour

// Key identifies one cached find_routes invocation at minute resolution on
// the requested departure.
type Key struct {
	Origin      string
	Destination string
	Date        string // YYYY-MM-DD
	HourMinute  string // HH:MM
}

type entry struct {
	id       string
	results  []routing.Result
	cachedAt time.Time
}

// Cache is a mutex-guarded map; each entry access requires mutual
// exclusion per the concurrency model's result-cache requirement.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]entry
}

// New returns an empty result cache.
func New() *Cache {
	return &Cache{entries: make(map[Key]entry)}
}

// Get returns the cached results for key if present and not older than
// TTL relative to now.
func (c *Cache) Get(key Key, now time.Time) ([]routing.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.Sub(e.cachedAt) > TTL {
		delete(c.entries, key)
		return nil, false
	}
	return e.results, true
}

// Put stores results for key, stamped with now. Each entry gets its own
// ID so cache hits/misses can be correlated in logs across a request's
// lifetime.
func (c *Cache) Put(key Key, results []routing.Result, now time.Time) {
	id := uuid.New().String()
	c.mu.Lock()
	c.entries[key] = entry{id: id, results: results, cachedAt: now}
	c.mu.Unlock()
	log.Printf("resultcache[%s]: stored %d candidate routes for %s->%s", id, len(results), key.Origin, key.Destination)
}

// InvalidateAll clears every entry: called after a static refresh or a
// manual ingest trigger, since either can change the candidate set.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]entry)
}

// Len reports the current entry count, for health reporting.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// KeyFor builds the minute-resolution cache key for a departure request.
func KeyFor(origin, destination string, departureDT time.Time) Key {
	return Key{
		Origin:      origin,
		Destination: destination,
		Date:        departureDT.Format("2006-01-02"),
		HourMinute:  departureDT.Format("15:04"),
	}
}
