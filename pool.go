package seqrender

import (
	"sync"
	"sync/atomic"
)

// Pool recycles the pixel storage of released images.
//
// Pool groups buffers by dimensions and format so that the identically sized
// frames produced during playback reuse memory instead of pressuring the GC.
// Images obtained from a Pool return their storage to it on the final
// Release. A nil *Pool is valid and simply allocates.
//
// Thread safety: all methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[poolKey][]poolBuf
	maxSize int // max buffers per bucket

	allocs atomic.Uint64
	reuses atomic.Uint64
}

// poolKey identifies a bucket of identical image specifications.
type poolKey struct {
	width  int
	height int
	format Format
}

type poolBuf struct {
	bytes  []uint8
	floats []float32
}

// NewPool creates a pool retaining at most maxPerBucket buffers per size.
// A maxPerBucket of 0 means unlimited.
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[poolKey][]poolBuf),
		maxSize: maxPerBucket,
	}
}

// Get returns a cleared image with one reference. Reused buffers are zeroed.
// Get returns nil for non-positive dimensions.
func (p *Pool) Get(width, height int, format Format) *Image {
	if p == nil {
		return NewImage(width, height, format)
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	key := poolKey{width: width, height: height, format: format}

	p.mu.Lock()
	bucket := p.buckets[key]
	if len(bucket) == 0 {
		p.mu.Unlock()
		p.allocs.Add(1)
		img := NewImage(width, height, format)
		img.pool = p
		return img
	}
	buf := bucket[len(bucket)-1]
	p.buckets[key] = bucket[:len(bucket)-1]
	p.mu.Unlock()

	p.reuses.Add(1)
	clear(buf.bytes)
	clear(buf.floats)
	img := &Image{
		width:  width,
		height: height,
		format: format,
		bytes:  buf.bytes,
		floats: buf.floats,
		pool:   p,
	}
	img.refs.Store(1)
	return img
}

// put takes back the storage of a fully released image.
func (p *Pool) put(img *Image) {
	key := poolKey{width: img.width, height: img.height, format: img.format}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, poolBuf{bytes: img.bytes, floats: img.floats})
}

// PoolStats reports allocation behaviour of a Pool.
type PoolStats struct {
	// Allocs is the number of images that needed fresh storage.
	Allocs uint64
	// Reuses is the number of images served from recycled storage.
	Reuses uint64
	// Idle is the number of buffers currently waiting for reuse.
	Idle int
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	if p == nil {
		return PoolStats{}
	}
	p.mu.Lock()
	idle := 0
	for _, b := range p.buckets {
		idle += len(b)
	}
	p.mu.Unlock()
	return PoolStats{Allocs: p.allocs.Load(), Reuses: p.reuses.Load(), Idle: idle}
}
