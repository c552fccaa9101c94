package cache

import (
	"sync"

	"github.com/gogpu/seqrender"
)

// Flags modify a Source lookup.
type Flags uint8

const (
	// NoCache bypasses the layer.
	NoCache Flags = 1 << iota
	// Proxy marks a proxy render pass; proxy frames are never cached.
	Proxy
)

func (f Flags) bypass() bool { return f&(NoCache|Proxy) != 0 }

type sourceKey struct {
	strip *seqrender.Strip
	frame int
	view  int
}

type sourceEntry struct {
	img *seqrender.Image
	// timeline is the timeline frame of the last Put, used for eviction.
	timeline float64
}

// SourceCache caches decoded source frames and generator output.
//
// Thread safety: SourceCache is safe for concurrent use.
type SourceCache struct {
	mu      sync.Mutex
	entries map[sourceKey]*sourceEntry
	bytes   int64
	counters
}

// NewSourceCache creates an empty layer.
func NewSourceCache() *SourceCache {
	return &SourceCache{entries: make(map[sourceKey]*sourceEntry)}
}

func sourceKeyOf(s *seqrender.Strip, frame float64, view int) sourceKey {
	return sourceKey{strip: s, frame: s.SourceFrame(frame), view: view}
}

// Get returns the cached frame of s shown at the timeline frame, or nil.
// A nil strip or a bypass flag always misses.
func (c *SourceCache) Get(s *seqrender.Strip, frame float64, view int, flags Flags) *seqrender.Image {
	if s == nil || flags.bypass() {
		return nil
	}
	key := sourceKeyOf(s, frame, view)

	c.mu.Lock()
	e, ok := c.entries[key]
	var img *seqrender.Image
	if ok {
		img = e.img.Acquire()
	}
	c.mu.Unlock()

	c.lookup(ok)
	return img
}

// Put stores img for s at the timeline frame, releasing any previous image
// under the same key.
func (c *SourceCache) Put(s *seqrender.Strip, frame float64, view int, flags Flags, img *seqrender.Image) {
	if s == nil || img == nil || flags.bypass() {
		return
	}
	key := sourceKeyOf(s, frame, view)
	img.Acquire()

	c.mu.Lock()
	old := c.entries[key]
	c.entries[key] = &sourceEntry{img: img, timeline: frame}
	c.bytes += img.Size()
	if old != nil {
		c.bytes -= old.img.Size()
	}
	c.mu.Unlock()

	if old != nil {
		old.img.Release()
	}
}

// Invalidate removes every entry of s and returns how many were removed.
func (c *SourceCache) Invalidate(s *seqrender.Strip) int {
	var dropped []*seqrender.Image
	c.mu.Lock()
	for k, e := range c.entries {
		if k.strip == s {
			dropped = append(dropped, e.img)
			c.bytes -= e.img.Size()
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()

	for _, img := range dropped {
		img.Release()
	}
	return len(dropped)
}

// TryEvict removes the highest-scoring unprotected entry and reports whether
// anything was removed.
func (c *SourceCache) TryEvict(st EvictionState) bool {
	c.mu.Lock()
	v := c.scan(st)
	if !v.found {
		c.mu.Unlock()
		return false
	}
	e := c.entries[v.key]
	delete(c.entries, v.key)
	c.bytes -= e.img.Size()
	c.mu.Unlock()

	e.img.Release()
	c.evictions.Add(1)
	seqrender.Logger().Debug("cache: source evicted",
		"strip", v.key.strip.Name, "frame", v.key.frame, "score", v.score)
	return true
}

// bestScore reports the score TryEvict would evict at, for comparing layers.
func (c *SourceCache) bestScore(st EvictionState) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.scan(st)
	return v.score, v.found
}

// scan must be called with c.mu held.
func (c *SourceCache) scan(st EvictionState) victim[sourceKey] {
	var v victim[sourceKey]
	for k, e := range c.entries {
		v.offer(k, e.timeline, st)
	}
	return v
}

// Clear releases every entry.
func (c *SourceCache) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[sourceKey]*sourceEntry)
	c.bytes = 0
	c.mu.Unlock()

	for _, e := range entries {
		e.img.Release()
	}
}

// Len returns the number of entries.
func (c *SourceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Bytes returns the pixel storage held by the layer.
func (c *SourceCache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Stats returns layer statistics.
func (c *SourceCache) Stats() Stats {
	c.mu.Lock()
	n, b := len(c.entries), c.bytes
	c.mu.Unlock()
	return c.stats(n, b)
}

// ResetStats resets the hit, miss and eviction counters.
func (c *SourceCache) ResetStats() { c.reset() }
