package cache

import (
	"slices"
	"sync"

	"github.com/gogpu/seqrender"
)

// Config configures a SceneCache.
type Config struct {
	// MemoryLimit caps the pixel bytes held by the Source and Final layers.
	// Zero means unlimited.
	MemoryLimit int64

	// StoreFinal keeps every composited frame. Prefetching relies on it and
	// the prefetch window is only protected from eviction when it is set.
	StoreFinal bool

	// StoreSource keeps decoded source frames.
	StoreSource bool

	// MaxThumbnails is the thumbnail count ceiling.
	MaxThumbnails int

	// PoolBuckets is the number of idle buffers kept per image size.
	PoolBuckets int
}

// DefaultConfig returns the default configuration: 1 GiB for Source and
// Final, both stores enabled and 5000 thumbnails.
func DefaultConfig() Config {
	return Config{
		MemoryLimit:   1 << 30,
		StoreFinal:    true,
		StoreSource:   true,
		MaxThumbnails: DefaultMaxThumbnails,
		PoolBuckets:   8,
	}
}

// SceneCache owns the cache layers of one scene and the playback state the
// eviction heuristic needs. It is created with the scene and dropped with it.
//
// Thread safety: SceneCache is safe for concurrent use.
type SceneCache struct {
	scene *seqrender.Scene
	cfg   Config

	Source     *SourceCache
	Intra      *IntraFrameCache
	Final      *FinalCache
	Thumbnails *ThumbnailCache

	// Pool recycles image buffers for renders of this scene.
	Pool *seqrender.Pool

	mu      sync.Mutex
	current float64
	guard   struct {
		active     bool
		start, end float64
	}
}

// NewSceneCache creates the cache layers for scene.
func NewSceneCache(scene *seqrender.Scene, cfg Config) *SceneCache {
	return &SceneCache{
		scene:      scene,
		cfg:        cfg,
		Source:     NewSourceCache(),
		Intra:      NewIntraFrameCache(),
		Final:      NewFinalCache(),
		Thumbnails: NewThumbnailCache(cfg.MaxThumbnails),
		Pool:       seqrender.NewPool(cfg.PoolBuckets),
	}
}

// Scene returns the scene the cache belongs to.
func (c *SceneCache) Scene() *seqrender.Scene { return c.scene }

// Config returns the configuration.
func (c *SceneCache) Config() Config { return c.cfg }

// SetCurrentFrame records the playhead used for eviction scoring.
func (c *SceneCache) SetCurrentFrame(frame float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = frame
}

// SetPrefetchRange protects [start, end] from eviction while prefetching.
// end may exceed the scene end; the window then wraps to the scene start.
func (c *SceneCache) SetPrefetchRange(start, end float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guard.active = true
	c.guard.start, c.guard.end = start, end
}

// ClearPrefetchRange removes the eviction protection.
func (c *SceneCache) ClearPrefetchRange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guard.active = false
}

// EvictionState returns the state eviction scores against. The prefetch
// window is inactive unless StoreFinal is set.
func (c *SceneCache) EvictionState() EvictionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := EvictionState{
		Current:     c.current,
		GuardActive: c.guard.active && c.cfg.StoreFinal,
		GuardStart:  c.guard.start,
		GuardEnd:    c.guard.end,
	}
	if c.scene != nil {
		st.LoopStart, st.LoopEnd = float64(c.scene.Start), float64(c.scene.End)
	}
	return st
}

// Bytes returns the pixel bytes held by the Source and Final layers.
func (c *SceneCache) Bytes() int64 {
	return c.Source.Bytes() + c.Final.Bytes()
}

// Full reports whether the Source and Final layers exceed the memory limit.
func (c *SceneCache) Full() bool {
	return c.cfg.MemoryLimit > 0 && c.Bytes() > c.cfg.MemoryLimit
}

// Recycle evicts Source and Final entries, best candidate first, until the
// layers fit the memory limit. It returns false when the limit is still
// exceeded and nothing more can be evicted: the cache is full.
func (c *SceneCache) Recycle() bool {
	if c.cfg.MemoryLimit <= 0 {
		return true
	}
	st := c.EvictionState()
	for c.Bytes() > c.cfg.MemoryLimit {
		ss, sok := c.Source.bestScore(st)
		fs, fok := c.Final.bestScore(st)
		evicted := false
		switch {
		case sok && (!fok || ss >= fs):
			evicted = c.Source.TryEvict(st)
		case fok:
			evicted = c.Final.TryEvict(st)
		}
		if !evicted {
			seqrender.Logger().Debug("cache: full", "bytes", c.Bytes(), "limit", c.cfg.MemoryLimit)
			return false
		}
	}
	return true
}

// InvalidateRaw drops the decoded source frames of s and everything derived
// from them: intermediate results of s and the strips above it, effects that
// use s and the composited frames s is visible in.
func (c *SceneCache) InvalidateRaw(s *seqrender.Strip) {
	c.invalidate(s, true)
}

// InvalidatePreprocessed drops the intermediate results of s after a crop,
// transform or modifier change, keeping decoded source frames.
func (c *SceneCache) InvalidatePreprocessed(s *seqrender.Strip) {
	c.invalidate(s, false)
}

// InvalidateComposite drops composites involving s after a blend or opacity
// change.
func (c *SceneCache) InvalidateComposite(s *seqrender.Strip) {
	c.invalidate(s, false)
}

// RemoveStrip drops every entry keyed by s. Call it before s is removed
// from the timeline.
func (c *SceneCache) RemoveStrip(s *seqrender.Strip) {
	c.invalidate(s, true)
}

func (c *SceneCache) invalidate(s *seqrender.Strip, raw bool) {
	if s == nil {
		return
	}
	affected := []*seqrender.Strip{s}
	var top []*seqrender.Strip
	if c.scene != nil && c.scene.Timeline != nil {
		affected = append(affected, c.scene.Timeline.Affected(s)...)
		top = c.scene.Timeline.Strips()
	}
	// Strips of nested timelines use their own frame numbers; the Final
	// range comes from the outermost strip holding them.
	nested := len(affected) > 1 && !slices.Contains(top, s)
	for _, st := range affected {
		if raw {
			c.Source.Invalidate(st)
		}
		c.Intra.Invalidate(st)
		if !nested || slices.Contains(top, st) {
			c.Final.InvalidateFrameRange(float64(st.Left()), float64(st.Right()))
		}
	}
	seqrender.Logger().Debug("cache: strip invalidated", "strip", s.Name, "raw", raw, "affected", len(affected))
}

// InvalidateScene drops the composites of every scene strip rendering sc
// after sc was edited.
func (c *SceneCache) InvalidateScene(sc *seqrender.Scene) {
	if sc == nil || c.scene == nil {
		return
	}
	for _, s := range c.scene.Timeline.Users(sc) {
		c.invalidate(s, false)
	}
}

// InvalidateAll releases every cached image of the scene.
func (c *SceneCache) InvalidateAll() {
	c.Source.Clear()
	c.Intra.Clear()
	c.Final.Clear()
	c.Thumbnails.Clear()
}

// SceneStats groups the statistics of all layers.
type SceneStats struct {
	Source, Intra, Final, Thumbnails Stats
	Pool                             seqrender.PoolStats
}

// Stats returns statistics of all layers.
func (c *SceneCache) Stats() SceneStats {
	return SceneStats{
		Source:     c.Source.Stats(),
		Intra:      c.Intra.Stats(),
		Final:      c.Final.Stats(),
		Thumbnails: c.Thumbnails.Stats(),
		Pool:       c.Pool.Stats(),
	}
}
