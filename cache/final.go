package cache

import (
	"math"
	"slices"
	"sync"

	"github.com/gogpu/seqrender"
)

type finalKey struct {
	frame   int
	view    int
	channel int
}

// output is the size and format every Final entry was rendered at.
type output struct {
	width, height int
	format        seqrender.Format
}

// FinalCache caches fully composited output frames.
//
// All entries share one output size and format. SetOutput with a different
// one empties the layer.
//
// Thread safety: FinalCache is safe for concurrent use.
type FinalCache struct {
	mu       sync.Mutex
	entries  map[finalKey]*seqrender.Image
	bytes    int64
	out      output
	outValid bool
	counters
}

// NewFinalCache creates an empty layer.
func NewFinalCache() *FinalCache {
	return &FinalCache{entries: make(map[finalKey]*seqrender.Image)}
}

// FrameKey rounds a timeline frame to its Final cache key.
func FrameKey(frame float64) int {
	return int(math.Round(frame))
}

// SetOutput makes the output size and format current, releasing every entry
// when it differs from the stored one. It reports whether the layer was
// cleared.
func (c *FinalCache) SetOutput(width, height int, format seqrender.Format) bool {
	o := output{width: width, height: height, format: format}

	c.mu.Lock()
	if c.outValid && c.out == o {
		c.mu.Unlock()
		return false
	}
	prev, had := c.out, c.outValid
	c.out, c.outValid = o, true
	entries := c.entries
	c.entries = make(map[finalKey]*seqrender.Image)
	c.bytes = 0
	c.mu.Unlock()

	for _, img := range entries {
		img.Release()
	}
	if had && len(entries) > 0 {
		seqrender.Logger().Debug("cache: final output changed",
			"width", width, "height", height, "format", format,
			"prev_width", prev.width, "prev_height", prev.height, "entries", len(entries))
	}
	return true
}

// Get returns the composite for the frame, view and channel shown, or nil.
func (c *FinalCache) Get(frame float64, view, channel int) *seqrender.Image {
	key := finalKey{frame: FrameKey(frame), view: view, channel: channel}

	c.mu.Lock()
	img, ok := c.entries[key]
	if ok {
		img = img.Acquire()
	}
	c.mu.Unlock()

	c.lookup(ok)
	return img
}

// Has reports whether a composite is cached without touching statistics.
func (c *FinalCache) Has(frame float64, view, channel int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[finalKey{frame: FrameKey(frame), view: view, channel: channel}]
	return ok
}

// Put stores img, releasing any previous composite under the same key. An
// image that does not match the current output is not stored.
func (c *FinalCache) Put(frame float64, view, channel int, img *seqrender.Image) {
	if img == nil {
		return
	}
	key := finalKey{frame: FrameKey(frame), view: view, channel: channel}

	c.mu.Lock()
	if c.outValid && c.out != (output{width: img.Width(), height: img.Height(), format: img.Format()}) {
		c.mu.Unlock()
		return
	}
	img.Acquire()
	old := c.entries[key]
	c.entries[key] = img
	c.bytes += img.Size()
	if old != nil {
		c.bytes -= old.Size()
	}
	c.mu.Unlock()

	if old != nil {
		old.Release()
	}
}

// InvalidateFrameRange removes every entry with a frame key in
// [floor(start), ceil(end)] and returns how many were removed.
func (c *FinalCache) InvalidateFrameRange(start, end float64) int {
	lo, hi := int(math.Floor(start)), int(math.Ceil(end))
	var dropped []*seqrender.Image

	c.mu.Lock()
	for k, img := range c.entries {
		if k.frame >= lo && k.frame <= hi {
			dropped = append(dropped, img)
			c.bytes -= img.Size()
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()

	for _, img := range dropped {
		img.Release()
	}
	if len(dropped) > 0 {
		seqrender.Logger().Debug("cache: final range invalidated", "start", lo, "end", hi, "entries", len(dropped))
	}
	return len(dropped)
}

// TryEvict removes the highest-scoring unprotected entry and reports whether
// anything was removed.
func (c *FinalCache) TryEvict(st EvictionState) bool {
	c.mu.Lock()
	v := c.scan(st)
	if !v.found {
		c.mu.Unlock()
		return false
	}
	img := c.entries[v.key]
	delete(c.entries, v.key)
	c.bytes -= img.Size()
	c.mu.Unlock()

	img.Release()
	c.evictions.Add(1)
	seqrender.Logger().Debug("cache: final evicted", "frame", v.key.frame, "score", v.score)
	return true
}

func (c *FinalCache) bestScore(st EvictionState) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.scan(st)
	return v.score, v.found
}

// scan must be called with c.mu held.
func (c *FinalCache) scan(st EvictionState) victim[finalKey] {
	var v victim[finalKey]
	for k := range c.entries {
		v.offer(k, float64(k.frame), st)
	}
	return v
}

// Frames returns the sorted distinct frame keys currently cached.
func (c *FinalCache) Frames() []int {
	c.mu.Lock()
	frames := make([]int, 0, len(c.entries))
	for k := range c.entries {
		frames = append(frames, k.frame)
	}
	c.mu.Unlock()

	slices.Sort(frames)
	return slices.Compact(frames)
}

// Clear releases every entry.
func (c *FinalCache) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[finalKey]*seqrender.Image)
	c.bytes = 0
	c.mu.Unlock()

	for _, img := range entries {
		img.Release()
	}
}

// Len returns the number of entries.
func (c *FinalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Bytes returns the pixel storage held by the layer.
func (c *FinalCache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Stats returns layer statistics.
func (c *FinalCache) Stats() Stats {
	c.mu.Lock()
	n, b := len(c.entries), c.bytes
	c.mu.Unlock()
	return c.stats(n, b)
}

// ResetStats resets the hit, miss and eviction counters.
func (c *FinalCache) ResetStats() { c.reset() }
