package cache

import (
	"sync"

	"github.com/gogpu/seqrender"
)

// frameTuple scopes the IntraFrame layer.
type frameTuple struct {
	frame         float64
	view          int
	width, height int
	format        seqrender.Format
}

// IntraFrameCache memoizes per-strip results while one output frame is being
// rendered: the preprocessed strip image and the composite of the strip over
// everything beneath it.
//
// Entries are valid only for the current (frame, view, width, height, format)
// tuple.
// SetCurrentFrame with any different component empties the layer.
//
// Thread safety: IntraFrameCache is safe for concurrent use, but one tuple
// is current at a time; renderers working on different frames use separate
// instances.
type IntraFrameCache struct {
	mu           sync.Mutex
	cur          frameTuple
	valid        bool
	preprocessed map[*seqrender.Strip]*seqrender.Image
	composite    map[*seqrender.Strip]*seqrender.Image
	counters
}

// NewIntraFrameCache creates an empty layer.
func NewIntraFrameCache() *IntraFrameCache {
	return &IntraFrameCache{
		preprocessed: make(map[*seqrender.Strip]*seqrender.Image),
		composite:    make(map[*seqrender.Strip]*seqrender.Image),
	}
}

// SetCurrentFrame makes the tuple current, clearing both sub-maps when it
// differs from the stored one. It reports whether the layer was cleared.
func (c *IntraFrameCache) SetCurrentFrame(frame float64, view, width, height int, format seqrender.Format) bool {
	t := frameTuple{frame: frame, view: view, width: width, height: height, format: format}

	c.mu.Lock()
	if c.valid && c.cur == t {
		c.mu.Unlock()
		return false
	}
	c.cur, c.valid = t, true
	pre, comp := c.swapLocked()
	c.mu.Unlock()

	releaseAll(pre)
	releaseAll(comp)
	return true
}

// GetPreprocessed returns the preprocessed image of s, or nil.
func (c *IntraFrameCache) GetPreprocessed(s *seqrender.Strip) *seqrender.Image {
	return c.get(c.preprocessedMap, s)
}

// PutPreprocessed stores the preprocessed image of s.
func (c *IntraFrameCache) PutPreprocessed(s *seqrender.Strip, img *seqrender.Image) {
	c.put(c.preprocessedMap, s, img)
}

// GetComposite returns the composite up to and including s, or nil.
func (c *IntraFrameCache) GetComposite(s *seqrender.Strip) *seqrender.Image {
	return c.get(c.compositeMap, s)
}

// PutComposite stores the composite up to and including s.
func (c *IntraFrameCache) PutComposite(s *seqrender.Strip, img *seqrender.Image) {
	c.put(c.compositeMap, s, img)
}

func (c *IntraFrameCache) preprocessedMap() map[*seqrender.Strip]*seqrender.Image {
	return c.preprocessed
}

func (c *IntraFrameCache) compositeMap() map[*seqrender.Strip]*seqrender.Image {
	return c.composite
}

func (c *IntraFrameCache) get(m func() map[*seqrender.Strip]*seqrender.Image, s *seqrender.Strip) *seqrender.Image {
	if s == nil {
		return nil
	}
	c.mu.Lock()
	img, ok := m()[s]
	if ok {
		img = img.Acquire()
	}
	c.mu.Unlock()

	c.lookup(ok)
	return img
}

func (c *IntraFrameCache) put(m func() map[*seqrender.Strip]*seqrender.Image, s *seqrender.Strip, img *seqrender.Image) {
	if s == nil || img == nil {
		return
	}
	img.Acquire()

	c.mu.Lock()
	entries := m()
	old := entries[s]
	entries[s] = img
	c.mu.Unlock()

	if old != nil {
		old.Release()
	}
}

// Invalidate removes s and every strip on a channel at or above s.Channel
// from both sub-maps. Strips below s are untouched.
func (c *IntraFrameCache) Invalidate(s *seqrender.Strip) int {
	if s == nil {
		return 0
	}
	var dropped []*seqrender.Image

	c.mu.Lock()
	for _, m := range [...]map[*seqrender.Strip]*seqrender.Image{c.preprocessed, c.composite} {
		for k, img := range m {
			if k == s || k.Channel >= s.Channel {
				dropped = append(dropped, img)
				delete(m, k)
			}
		}
	}
	c.mu.Unlock()

	for _, img := range dropped {
		img.Release()
	}
	return len(dropped)
}

// Clear releases every entry and forgets the current tuple.
func (c *IntraFrameCache) Clear() {
	c.mu.Lock()
	c.valid = false
	pre, comp := c.swapLocked()
	c.mu.Unlock()

	releaseAll(pre)
	releaseAll(comp)
}

// swapLocked replaces both sub-maps and returns the old ones.
// Caller must hold c.mu.
func (c *IntraFrameCache) swapLocked() (pre, comp map[*seqrender.Strip]*seqrender.Image) {
	pre, comp = c.preprocessed, c.composite
	c.preprocessed = make(map[*seqrender.Strip]*seqrender.Image)
	c.composite = make(map[*seqrender.Strip]*seqrender.Image)
	return pre, comp
}

// Len returns the number of preprocessed and composite entries.
func (c *IntraFrameCache) Len() (preprocessed, composite int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.preprocessed), len(c.composite)
}

// Stats returns layer statistics over both sub-maps.
func (c *IntraFrameCache) Stats() Stats {
	c.mu.Lock()
	n := len(c.preprocessed) + len(c.composite)
	var b int64
	for _, img := range c.preprocessed {
		b += img.Size()
	}
	for _, img := range c.composite {
		b += img.Size()
	}
	c.mu.Unlock()
	return c.stats(n, b)
}

func releaseAll(m map[*seqrender.Strip]*seqrender.Image) {
	for _, img := range m {
		img.Release()
	}
}
