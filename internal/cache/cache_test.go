package cache

import (
	"strconv"
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](0)
	if _, ok := c.Get("a"); ok {
		t.Error("Get on empty cache should miss")
	}
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v, want 1, true", v, ok)
	}
	if !c.Delete("a") || c.Delete("a") {
		t.Error("Delete should report presence once")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss", st)
	}
}

func TestCache_GetOrCreateOnce(t *testing.T) {
	c := New[string, int](0)
	calls := 0
	create := func() int { calls++; return 7 }
	for i := 0; i < 3; i++ {
		if v := c.GetOrCreate("k", create); v != 7 {
			t.Errorf("GetOrCreate = %d, want 7", v)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestCache_SoftLimitKeepsRecent(t *testing.T) {
	c := New[string, int](8)
	for i := 0; i < 8; i++ {
		c.Set(strconv.Itoa(i), i)
	}
	c.Get("0") // refresh the oldest entry
	c.Set("8", 8)

	if got := c.Len(); got != 6 {
		t.Errorf("Len() = %d, want 6", got)
	}
	if _, ok := c.Get("0"); !ok {
		t.Error("recently used entry evicted")
	}
	if _, ok := c.Get("1"); ok {
		t.Error("least recently used entry kept")
	}
	if got := c.Stats().Evictions; got != 3 {
		t.Errorf("Evictions = %d, want 3", got)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}

func BenchmarkCacheGetOrCreate(b *testing.B) {
	c := New[string, int](1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.GetOrCreate(strconv.Itoa(i%100), func() int { return i })
	}
}
