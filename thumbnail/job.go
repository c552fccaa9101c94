// Package thumbnail decodes strip thumbnails in the background.
//
// The Job drains the request queue of a cache.ThumbnailCache: requests are
// taken sorted by file, stream and frame so that one reader walks each file
// forward, decoded frames are scaled down and stored, and the cache's
// capacity is maintained after every batch. The cache starts the job
// through its request hook whenever a request is queued.
package thumbnail

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/cache"
	"github.com/gogpu/seqrender/media"
)

// DefaultSize is the default longest edge of a thumbnail in pixels.
const DefaultSize = 256

// Option configures a Job.
type Option func(*Job)

// WithSize sets the longest edge of decoded thumbnails.
func WithSize(px int) Option {
	return func(j *Job) {
		if px > 0 {
			j.size = px
		}
	}
}

// Stats counts job work.
type Stats struct {
	Runs    uint64
	Decoded uint64
	Failed  uint64
	Dropped uint64 // requests discarded by Stop
}

// Job is the background thumbnail decoder of one ThumbnailCache.
//
// Thread safety: all methods are safe for concurrent use. At most one
// decoding goroutine runs at a time.
type Job struct {
	cache  *cache.ThumbnailCache
	opener media.Opener
	size   int

	mu  sync.Mutex
	ctx context.Context
	wg  sync.WaitGroup

	running atomic.Bool
	stop    atomic.Bool

	runs, decoded, failed, dropped atomic.Uint64
}

// New creates a job decoding through opener into c.
func New(c *cache.ThumbnailCache, opener media.Opener, opts ...Option) *Job {
	j := &Job{cache: c, opener: opener, size: DefaultSize}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start hooks the job to the cache: every queued request wakes it. Pending
// requests are processed right away.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	j.ctx = ctx
	j.stop.Store(false)
	j.mu.Unlock()

	j.cache.SetRequestHook(j.Kick)
	if j.cache.PendingRequests() > 0 {
		j.Kick()
	}
}

// Stop unhooks the job and waits for the request being decoded to finish.
// Requests not yet decoded are dropped; the cache queues them again when
// the thumbnails are requested again.
func (j *Job) Stop() {
	j.cache.SetRequestHook(nil)
	j.mu.Lock()
	j.stop.Store(true)
	j.mu.Unlock()
	j.wg.Wait()
}

// Kick starts a decoding goroutine unless one is running.
func (j *Job) Kick() {
	// j.mu orders wg.Add before the wg.Wait in Stop.
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.ctx == nil || j.stop.Load() {
		return
	}
	if !j.running.CompareAndSwap(false, true) {
		return
	}
	j.wg.Add(1)
	go j.run(j.ctx)
}

// Wait blocks until the job is idle.
func (j *Job) Wait() { j.wg.Wait() }

// IsRunning reports whether a decoding goroutine is active.
func (j *Job) IsRunning() bool { return j.running.Load() }

// Stats returns job counters.
func (j *Job) Stats() Stats {
	return Stats{
		Runs:    j.runs.Load(),
		Decoded: j.decoded.Load(),
		Failed:  j.failed.Load(),
		Dropped: j.dropped.Load(),
	}
}

func (j *Job) run(ctx context.Context) {
	defer j.wg.Done()
	j.runs.Add(1)
	log := seqrender.Logger().With("run", uuid.NewString())
	log.Info("thumbnail: job started")

	for {
		reqs := j.cache.TakeRequests()
		if len(reqs) > 0 {
			j.batch(ctx, log, reqs)
			j.cache.MaintainCapacity()
			continue
		}
		j.running.Store(false)
		// A request queued after TakeRequests saw its Kick rejected.
		if j.cache.PendingRequests() == 0 || j.stop.Load() || !j.running.CompareAndSwap(false, true) {
			break
		}
	}
	log.Info("thumbnail: job finished", "decoded", j.decoded.Load(), "failed", j.failed.Load())
}

// batch decodes reqs in order, reusing one reader per stream.
func (j *Job) batch(ctx context.Context, log *slog.Logger, reqs []cache.ThumbnailRequest) {
	var (
		r      media.Reader
		cur    media.Ref
		broken bool
	)
	defer func() {
		if r != nil {
			r.Close()
		}
	}()

	for i, req := range reqs {
		if j.stop.Load() || ctx.Err() != nil {
			j.dropped.Add(uint64(len(reqs) - i))
			log.Debug("thumbnail: stopped", "dropped", len(reqs)-i)
			return
		}
		if !req.Type.HasSource() {
			continue
		}

		ref := media.Ref{Path: req.Path, Stream: req.Stream}
		if r == nil && !broken || ref != cur {
			if r != nil {
				r.Close()
				r = nil
			}
			cur, broken = ref, false
			var err error
			if r, err = j.opener.Open(ref); err != nil {
				log.Warn("thumbnail: open failed", "path", req.Path, "err", err)
				r, broken = nil, true
			}
		}
		if broken {
			j.failed.Add(1)
			continue
		}

		img, err := r.ReadFrame(req.Frame)
		if err != nil {
			log.Warn("thumbnail: decode failed", "path", req.Path, "frame", req.Frame, "err", err)
			j.failed.Add(1)
			continue
		}
		th := Scale(img, j.size)
		img.Release()
		j.cache.Put(req, th)
		th.Release()
		j.decoded.Add(1)
	}
}

// Scale returns img scaled to fit a size×size box, keeping its aspect
// ratio. Images already inside the box are returned with a new reference.
func Scale(img *seqrender.Image, size int) *seqrender.Image {
	w, h := img.Width(), img.Height()
	if w <= size && h <= size {
		return img.Acquire()
	}
	tw, th := size, size
	if w >= h {
		th = max(1, h*size/w)
	} else {
		tw = max(1, w*size/h)
	}
	out := seqrender.NewImage(tw, th, seqrender.FormatByte)
	dst := out.RGBA()
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img.RGBA(), img.Bounds(), xdraw.Src, nil)
	return out
}
