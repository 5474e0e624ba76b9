package web

import (
	"testing"
	"time"

	"github.com/hpungsan/carbonmatch/internal/ops"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(ttl time.Duration, max int) (*resultCache, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newResultCache(ttl, max)
	c.now = clock.now
	return c, clock
}

func TestResultCache_Expiry(t *testing.T) {
	c, clock := newTestCache(time.Minute, 10)
	c.Put(&ops.MatchOutput{ID: "a"})

	clock.t = clock.t.Add(30 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired early")
	}

	// Get extended the lifetime
	clock.t = clock.t.Add(50 * time.Second)
	if !c.Has("a") {
		t.Fatal("entry should still be live after access")
	}

	clock.t = clock.t.Add(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestResultCache_EvictsOldest(t *testing.T) {
	c, clock := newTestCache(time.Hour, 2)
	c.Put(&ops.MatchOutput{ID: "a"})
	clock.t = clock.t.Add(time.Second)
	c.Put(&ops.MatchOutput{ID: "b"})
	clock.t = clock.t.Add(time.Second)
	c.Put(&ops.MatchOutput{ID: "c"})

	if c.Has("a") {
		t.Error("oldest entry should have been evicted")
	}
	if !c.Has("b") || !c.Has("c") {
		t.Error("newer entries should remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}
