package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok { // a becomes most recent
		t.Fatalf("a missing")
	}
	c.Set("c", 3) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should be evicted")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("c=%d ok=%v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size=%d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("fresh entry missing")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("cleaned %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size=%d", c.Size())
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestLRUPurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted key returned")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge left %d", c.Size())
	}
	c.Set("a", 5)
	if v, _ := c.Get("a"); v != 5 {
		t.Fatalf("cache unusable after purge")
	}
}

func TestSweeper(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Hour)

	s := NewSweeper()
	s.Register(c)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("swept %d", n)
	}

	s.Start(context.Background(), 10*time.Millisecond)
	s.Stop()
	s.Stop() // second stop is a no-op
}
