package graph

import "sync/atomic"

// Cache is a process-wide singleton holding one immutable graph snapshot.
// Swap is atomic: a new snapshot is built in full before the pointer is
// replaced, so readers observe either the old or the new snapshot, never
// a partially-built one. A reader holding a reference from Current keeps
// seeing that snapshot for as long as it holds the reference, even after
// a later Swap.
type Cache struct {
	current atomic.Pointer[Snapshot]
}

// NewCache returns an empty cache with no current snapshot.
func NewCache() *Cache {
	return &Cache{}
}

// Current returns the active snapshot, or nil if none has been built yet.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// Swap atomically installs snap as the current snapshot.
func (c *Cache) Swap(snap *Snapshot) {
	c.current.Store(snap)
}
