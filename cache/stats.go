package cache

import "sync/atomic"

// Stats contains layer statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Bytes is the pixel storage held by the entries.
	Bytes int64
	// Hits is the number of lookups that returned an image.
	Hits uint64
	// Misses is the number of lookups that returned nothing.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 when nothing was looked up.
	HitRate float64
	// Evictions is the number of entries removed by TryEvict or capacity
	// maintenance.
	Evictions uint64
}

// counters are the atomic statistics shared by all layers.
type counters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func (c *counters) lookup(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

func (c *counters) stats(n int, bytes int64) Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Len:       n,
		Bytes:     bytes,
		Hits:      hits,
		Misses:    misses,
		HitRate:   rate,
		Evictions: c.evictions.Load(),
	}
}

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}
