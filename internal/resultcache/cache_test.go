package resultcache

import (
	"testing"
	"time"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/routing"
)

func TestCacheHitWithinTTL(t *testing.T) {
	c := New()
	now := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	key := KeyFor("A", "B", now)
	results := []routing.Result{{Legs: []model.Leg{{Kind: model.LegTrip, TripID: "T1"}}}}

	c.Put(key, results, now)

	got, ok := c.Get(key, now.Add(30*time.Minute))
	if !ok {
		t.Fatal("expected cache hit within TTL")
	}
	if len(got) != 1 {
		t.Errorf("got %d results, want 1", len(got))
	}
}

func TestCacheMissAfterTTL(t *testing.T) {
	c := New()
	now := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	key := KeyFor("A", "B", now)
	c.Put(key, []routing.Result{{}}, now)

	_, ok := c.Get(key, now.Add(TTL+time.Minute))
	if ok {
		t.Error("expected cache miss after TTL elapsed")
	}
}

func TestCacheInvalidateAll(t *testing.T) {
	c := New()
	key := KeyFor("A", "B", time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC))
	c.Put(key, []routing.Result{{}}, time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC))

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after InvalidateAll, want 0", c.Len())
	}
}

func TestKeyForMinuteResolution(t *testing.T) {
	a := KeyFor("A", "B", time.Date(2026, 2, 9, 8, 15, 30, 0, time.UTC))
	b := KeyFor("A", "B", time.Date(2026, 2, 9, 8, 15, 45, 0, time.UTC))
	if a != b {
		t.Errorf("expected keys at the same minute to be equal: %+v vs %+v", a, b)
	}

	c := KeyFor("A", "B", time.Date(2026, 2, 9, 8, 16, 0, 0, time.UTC))
	if a == c {
		t.Error("expected keys at different minutes to differ")
	}
}
