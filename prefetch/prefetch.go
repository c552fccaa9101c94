// Package prefetch renders frames ahead of the playhead in the background.
//
// A Scheduler walks forward from the frame it was started at, wrapping
// from the scene end to the scene start, and renders every frame that is
// not yet in the Final cache. The frames it has covered are protected from
// eviction, so the walk always makes progress and ends when the cache
// reports itself full, when it has gone once around the scene, or when it
// is stopped.
//
// Usage:
//
//	s := prefetch.New(caches)
//	s.Start(ctx, playhead)
//	defer s.Stop()
package prefetch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/cache"
	"github.com/gogpu/seqrender/render"
)

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	render []render.Option
	frame  []render.FrameOption
}

// WithRenderOptions passes options to the scheduler's compositor, for
// example a shared effect registry or media decoder.
func WithRenderOptions(opts ...render.Option) Option {
	return func(o *options) {
		o.render = append(o.render, opts...)
	}
}

// WithFrameOptions sets the render context of prefetched frames. It must
// match the foreground render context for the frames to be reused; a
// different output size or format empties the Final layer on every switch.
func WithFrameOptions(opts ...render.FrameOption) Option {
	return func(o *options) {
		o.frame = append(o.frame, opts...)
	}
}

// Scheduler prefetches frames of one scene into its SceneCache.
//
// Thread safety: all methods are safe for concurrent use. The scheduler
// renders through its own Compositor and IntraFrame cache, so foreground
// renders of the same scene are not blocked by it.
type Scheduler struct {
	caches *cache.SceneCache
	comp   *render.Compositor
	frame  []render.FrameOption

	mu      sync.Mutex
	done    chan struct{}
	running atomic.Bool
	stop    atomic.Bool
	start   float64
	ahead   atomic.Int64
	runs    atomic.Uint64
}

// New creates a scheduler for the scene of caches.
func New(caches *cache.SceneCache, opts ...Option) *Scheduler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	ropts := append([]render.Option{render.WithIntraFrame(cache.NewIntraFrameCache())}, o.render...)
	return &Scheduler{
		caches: caches,
		comp:   render.NewCompositor(caches.Scene(), caches, ropts...),
		frame:  append([]render.FrameOption{render.AsPrefetch()}, o.frame...),
	}
}

// Compositor returns the compositor prefetched frames are rendered with.
func (s *Scheduler) Compositor() *render.Compositor { return s.comp }

// Start begins prefetching from frame. A scheduler already running from
// the same frame keeps going; one running from another frame is restarted.
// Start does nothing when the cache does not store final frames.
func (s *Scheduler) Start(ctx context.Context, frame float64) {
	if !s.caches.Config().StoreFinal {
		seqrender.Logger().Debug("prefetch: disabled, final frames are not stored")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() && s.start == frame {
		return
	}
	s.stopLocked()

	s.start = frame
	s.ahead.Store(0)
	s.stop.Store(false)
	s.running.Store(true)
	s.runs.Add(1)
	s.done = make(chan struct{})
	go s.run(ctx, uuid.NewString(), frame, s.done)
}

// Stop stops prefetching and waits for the frame being rendered to finish.
// The prefetch window is no longer protected from eviction afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.caches.ClearPrefetchRange()
}

func (s *Scheduler) stopLocked() {
	if s.done == nil {
		return
	}
	s.stop.Store(true)
	<-s.done
	s.done = nil
}

// Wait blocks until the current run ends.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// IsRunning reports whether the scheduler is rendering frames.
func (s *Scheduler) IsRunning() bool { return s.running.Load() }

// TimeRange returns the frames covered by the current or last run: from the
// start frame to the last frame known to be in the Final cache. The end
// may lie past the scene end when the run wrapped around.
func (s *Scheduler) TimeRange() (start, end float64) {
	s.mu.Lock()
	start = s.start
	s.mu.Unlock()
	return start, start + float64(s.ahead.Load())
}

// Runs returns the number of runs started.
func (s *Scheduler) Runs() uint64 { return s.runs.Load() }

func (s *Scheduler) run(ctx context.Context, id string, start float64, done chan struct{}) {
	defer close(done)
	defer s.running.Store(false)

	sc := s.caches.Scene()
	log := seqrender.Logger().With("run", id)
	log.Info("prefetch: started", "frame", start)

	rc := s.comp.NewRenderContext(s.frame...)
	length := sc.End - sc.Start + 1
	rendered := 0
	reason := "scene covered"
	for n := 1; n < length; n++ {
		if s.stop.Load() {
			reason = "stopped"
			break
		}
		if ctx.Err() != nil {
			reason = "canceled"
			break
		}
		ahead := start + float64(n)
		frame := wrap(ahead, sc)

		s.caches.SetPrefetchRange(start, ahead)
		if !s.caches.Final.Has(frame, rc.View, rc.ChannelShown) {
			img := s.comp.Render(ctx, rc, frame)
			if img == nil {
				reason = "render failed"
				break
			}
			img.Release()
			rendered++
		}
		if ctx.Err() != nil {
			reason = "canceled"
			break
		}
		s.ahead.Store(int64(n))
		if !s.caches.Recycle() {
			reason = "cache full"
			break
		}
	}
	log.Info("prefetch: finished", "reason", reason, "rendered", rendered, "ahead", s.ahead.Load())
}

// wrap maps a frame past the scene end back to the scene start.
func wrap(frame float64, sc *seqrender.Scene) float64 {
	end := float64(sc.End)
	if frame <= end {
		return frame
	}
	length := end - float64(sc.Start) + 1
	for frame > end {
		frame -= length
	}
	return frame
}
