package cache

import (
	"cmp"
	"slices"
	"sync"

	"github.com/gogpu/seqrender"
)

// Thumbnail capacity defaults.
const (
	// DefaultMaxThumbnails is the thumbnail count above which
	// MaintainCapacity starts removing entries.
	DefaultMaxThumbnails = 5000

	// fileGrace is how many ticks a file stays protected after use.
	fileGrace = 10

	// frameGrace is how many ticks a single frame stays protected after use.
	frameGrace = 100
)

// ThumbnailRequest asks for one thumbnail.
type ThumbnailRequest struct {
	Path   string
	Frame  int // media frame index
	Stream int
	Type   seqrender.StripType

	// TimelineFrame and Channel place the request on screen so pending
	// requests can be discarded when the view scrolls away.
	TimelineFrame float64
	Channel       int
}

type requestKey struct {
	path   string
	frame  int
	stream int
	typ    seqrender.StripType
}

func (r ThumbnailRequest) key() requestKey {
	return requestKey{path: r.Path, frame: r.Frame, stream: r.Stream, typ: r.Type}
}

// View is the visible timeline rectangle.
type View struct {
	Start, End             float64
	MinChannel, MaxChannel int
}

// Contains reports whether a timeline frame and channel are visible.
func (v View) Contains(frame float64, channel int) bool {
	return frame >= v.Start && frame <= v.End && channel >= v.MinChannel && channel <= v.MaxChannel
}

type thumbFrame struct {
	index  int
	stream int
	img    *seqrender.Image
	used   int64
}

type thumbFile struct {
	frames []thumbFrame
	used   int64
}

// ThumbnailCache stores preview images per media file and queues decode
// requests for frames it does not have yet.
//
// Thread safety: ThumbnailCache is safe for concurrent use.
type ThumbnailCache struct {
	mu       sync.Mutex
	files    map[string]*thumbFile
	count    int
	clock    int64
	max      int
	requests map[requestKey]ThumbnailRequest
	hook     func()
	counters
}

// NewThumbnailCache creates an empty layer that keeps roughly limit
// thumbnails. A non-positive limit uses DefaultMaxThumbnails.
func NewThumbnailCache(limit int) *ThumbnailCache {
	if limit <= 0 {
		limit = DefaultMaxThumbnails
	}
	return &ThumbnailCache{
		files:    make(map[string]*thumbFile),
		max:      limit,
		requests: make(map[requestKey]ThumbnailRequest),
	}
}

// SetRequestHook installs fn, called outside the lock whenever Get queues a
// new request. The thumbnail job uses it to start itself.
func (c *ThumbnailCache) SetRequestHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = fn
}

// Get returns the cached thumbnail nearest to req.Frame in the same file and
// stream, or nil. Unless the frame matched exactly, a decode request is
// queued.
func (c *ThumbnailCache) Get(req ThumbnailRequest) *seqrender.Image {
	var (
		img    *seqrender.Image
		exact  bool
		queued bool
		hook   func()
	)

	c.mu.Lock()
	if f, ok := c.files[req.Path]; ok {
		best, bestDist := -1, 0
		for i := range f.frames {
			fr := &f.frames[i]
			if fr.stream != req.Stream {
				continue
			}
			d := abs(fr.index - req.Frame)
			if best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			fr := &f.frames[best]
			fr.used = c.clock
			f.used = c.clock
			img = fr.img.Acquire()
			exact = bestDist == 0
		}
	}
	if !exact {
		k := req.key()
		if _, ok := c.requests[k]; !ok {
			c.requests[k] = req
			queued = true
			hook = c.hook
		}
	}
	c.mu.Unlock()

	c.lookup(exact)
	if queued && hook != nil {
		hook()
	}
	return img
}

// Put stores the decoded thumbnail for req, replacing an older one.
func (c *ThumbnailCache) Put(req ThumbnailRequest, img *seqrender.Image) {
	if img == nil {
		return
	}
	img.Acquire()

	var old *seqrender.Image
	c.mu.Lock()
	f, ok := c.files[req.Path]
	if !ok {
		f = &thumbFile{}
		c.files[req.Path] = f
	}
	f.used = c.clock
	replaced := false
	for i := range f.frames {
		fr := &f.frames[i]
		if fr.index == req.Frame && fr.stream == req.Stream {
			old, fr.img, fr.used = fr.img, img, c.clock
			replaced = true
			break
		}
	}
	if !replaced {
		f.frames = append(f.frames, thumbFrame{index: req.Frame, stream: req.Stream, img: img, used: c.clock})
		c.count++
	}
	c.mu.Unlock()

	if old != nil {
		old.Release()
	}
}

// TakeRequests removes and returns all pending requests sorted by path,
// stream and frame, so a reader can walk each file forward.
func (c *ThumbnailCache) TakeRequests() []ThumbnailRequest {
	c.mu.Lock()
	reqs := make([]ThumbnailRequest, 0, len(c.requests))
	for _, r := range c.requests {
		reqs = append(reqs, r)
	}
	clear(c.requests)
	c.mu.Unlock()

	slices.SortFunc(reqs, func(a, b ThumbnailRequest) int {
		return cmp.Or(
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Stream, b.Stream),
			cmp.Compare(a.Frame, b.Frame),
			cmp.Compare(a.Type, b.Type),
		)
	})
	return reqs
}

// PendingRequests returns the number of queued requests.
func (c *ThumbnailCache) PendingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// DiscardRequestsOutside drops pending requests that are not visible in v
// and returns how many were dropped.
func (c *ThumbnailCache) DiscardRequestsOutside(v View) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, r := range c.requests {
		if !v.Contains(r.TimelineFrame, r.Channel) {
			delete(c.requests, k)
			n++
		}
	}
	return n
}

// MaintainCapacity advances the logical clock and, when the cache holds
// more than its ceiling, removes the least recently used file if it was not
// used in the last 10 ticks. While still over the ceiling it then removes
// least recently used frames not used in the last 100.
func (c *ThumbnailCache) MaintainCapacity() {
	var dropped []*seqrender.Image

	c.mu.Lock()
	c.clock++
	if path, f := c.oldestFileLocked(); c.count > c.max && f != nil && f.used < c.clock-fileGrace {
		for _, fr := range f.frames {
			dropped = append(dropped, fr.img)
		}
		c.count -= len(f.frames)
		delete(c.files, path)
	}
	for c.count > c.max {
		path, idx, used := c.oldestFrameLocked()
		if idx < 0 || used >= c.clock-frameGrace {
			break
		}
		f := c.files[path]
		dropped = append(dropped, f.frames[idx].img)
		f.frames = slices.Delete(f.frames, idx, idx+1)
		c.count--
		if len(f.frames) == 0 {
			delete(c.files, path)
		}
	}
	c.mu.Unlock()

	for _, img := range dropped {
		img.Release()
	}
	if len(dropped) > 0 {
		c.evictions.Add(uint64(len(dropped)))
		seqrender.Logger().Debug("cache: thumbnails trimmed", "removed", len(dropped))
	}
}

// Caller must hold c.mu.
func (c *ThumbnailCache) oldestFileLocked() (string, *thumbFile) {
	var (
		path   string
		oldest *thumbFile
	)
	for p, f := range c.files {
		if oldest == nil || f.used < oldest.used || f.used == oldest.used && p < path {
			path, oldest = p, f
		}
	}
	return path, oldest
}

// Caller must hold c.mu.
func (c *ThumbnailCache) oldestFrameLocked() (string, int, int64) {
	var (
		path string
		idx  = -1
		used int64
	)
	for p, f := range c.files {
		for i, fr := range f.frames {
			if idx < 0 || fr.used < used {
				path, idx, used = p, i, fr.used
			}
		}
	}
	return path, idx, used
}

// Invalidate drops every thumbnail of a file.
func (c *ThumbnailCache) Invalidate(path string) {
	c.mu.Lock()
	f, ok := c.files[path]
	if ok {
		delete(c.files, path)
		c.count -= len(f.frames)
	}
	c.mu.Unlock()

	if ok {
		for _, fr := range f.frames {
			fr.img.Release()
		}
	}
}

// Clear releases every thumbnail and drops pending requests.
func (c *ThumbnailCache) Clear() {
	c.mu.Lock()
	files := c.files
	c.files = make(map[string]*thumbFile)
	c.count = 0
	clear(c.requests)
	c.mu.Unlock()

	for _, f := range files {
		for _, fr := range f.frames {
			fr.img.Release()
		}
	}
}

// Len returns the number of thumbnails.
func (c *ThumbnailCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Clock returns the logical clock.
func (c *ThumbnailCache) Clock() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock
}

// Stats returns layer statistics.
func (c *ThumbnailCache) Stats() Stats {
	c.mu.Lock()
	n := c.count
	var b int64
	for _, f := range c.files {
		for _, fr := range f.frames {
			b += fr.img.Size()
		}
	}
	c.mu.Unlock()
	return c.stats(n, b)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
