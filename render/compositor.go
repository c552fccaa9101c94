package render

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/cache"
	"github.com/gogpu/seqrender/effect"
	"github.com/gogpu/seqrender/media"
	"github.com/gogpu/seqrender/modifier"
)

// Compositor renders frames of one scene through its SceneCache.
//
// Thread safety: RenderFrame is safe for concurrent use; renders on one
// Compositor are serialized because its IntraFrame layer holds a single
// frame. Use separate compositors (see WithIntraFrame) to render different
// frames in parallel against the same SceneCache.
type Compositor struct {
	scene  *seqrender.Scene
	caches *cache.SceneCache
	intra  *cache.IntraFrameCache
	opts   options

	mu sync.Mutex

	missingMu sync.Mutex
	missing   map[*seqrender.Strip]bool

	renders      atomic.Uint64
	finalHits    atomic.Uint64
	stripRenders atomic.Uint64
}

// Stats counts compositor work.
type Stats struct {
	// Renders is the number of RenderFrame calls.
	Renders uint64
	// FinalHits is the number of renders served from the Final cache.
	FinalHits uint64
	// StripRenders is the number of strip images produced: decoded,
	// generated, computed by effects or rendered from nested content.
	StripRenders uint64
}

// NewCompositor creates a compositor for scene. A nil caches creates a
// SceneCache with the default configuration.
func NewCompositor(scene *seqrender.Scene, caches *cache.SceneCache, opts ...Option) *Compositor {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if caches == nil {
		caches = cache.NewSceneCache(scene, cache.DefaultConfig())
	}
	if o.registry == nil {
		o.registry = effect.Default()
	}
	if o.modifiers == nil {
		o.modifiers = modifier.NewDefault()
	}
	if o.decoder == nil {
		d, err := media.NewFileDecoder()
		if err != nil {
			seqrender.Logger().Warn("render: no media decoder", "err", err)
		} else {
			o.decoder = d
		}
	}
	intra := o.intra
	if intra == nil {
		intra = caches.Intra
	}
	return &Compositor{
		scene:   scene,
		caches:  caches,
		intra:   intra,
		opts:    o,
		missing: make(map[*seqrender.Strip]bool),
	}
}

// Scene returns the rendered scene.
func (c *Compositor) Scene() *seqrender.Scene { return c.scene }

// Caches returns the scene cache the compositor reads and fills.
func (c *Compositor) Caches() *cache.SceneCache { return c.caches }

// Registry returns the effect handlers in use.
func (c *Compositor) Registry() *effect.Registry { return c.opts.registry }

// NewRenderContext returns the default render context for the scene with
// opts applied: scene size, view 0, all channels, missing media shown.
func (c *Compositor) NewRenderContext(opts ...FrameOption) RenderContext {
	rc := RenderContext{
		Width:            c.scene.Width,
		Height:           c.scene.Height,
		ShowMissingMedia: true,
	}
	for _, opt := range opts {
		opt(&rc)
	}
	return rc
}

// RenderFrame renders the timeline frame with the default render context
// adjusted by opts. The result holds one reference owned by the caller.
func (c *Compositor) RenderFrame(ctx context.Context, frame float64, opts ...FrameOption) *seqrender.Image {
	return c.Render(ctx, c.NewRenderContext(opts...), frame)
}

// Render renders the timeline frame. It never returns nil for a valid
// output size: failures degrade to placeholders or transparent pixels.
func (c *Compositor) Render(ctx context.Context, rc RenderContext, frame float64) *seqrender.Image {
	c.renders.Add(1)
	if rc.Width <= 0 || rc.Height <= 0 {
		seqrender.Logger().Warn("render: invalid output size",
			"width", rc.Width, "height", rc.Height, "err", seqrender.ErrInvalidDimensions)
		return nil
	}
	if !rc.Prefetch {
		c.caches.SetCurrentFrame(frame)
	}
	if !rc.NoCache {
		c.caches.Final.SetOutput(rc.Width, rc.Height, rc.format())
	}
	if img := c.finalGet(rc, frame); img != nil {
		return img
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another render may have published the frame while we waited.
	if img := c.finalGet(rc, frame); img != nil {
		return img
	}

	intra := c.intra
	if rc.NoCache {
		intra = cache.NewIntraFrameCache()
		defer intra.Clear()
	}
	st := &renderState{
		ctx:     ctx,
		rc:      rc,
		intra:   intra,
		visited: map[*seqrender.Scene]bool{c.scene: true},
	}
	intra.SetCurrentFrame(frame, rc.View, rc.Width, rc.Height, st.format())
	out := c.renderStack(st, c.scene.Timeline, frame, rc.ChannelShown)
	if out == nil {
		out = c.blank(st)
	}
	if out.Format() != rc.format() {
		var conv *seqrender.Image
		if rc.Float {
			conv = out.ToFloat()
		} else {
			conv = out.ToByte()
		}
		out.Release()
		out = conv
	}

	if !rc.NoCache && ctx.Err() == nil {
		if !c.caches.Config().StoreFinal {
			c.caches.Final.Clear()
		}
		c.caches.Final.Put(frame, rc.View, rc.ChannelShown, out)
		if !rc.Prefetch {
			c.caches.Recycle()
		}
	}
	return out
}

func (c *Compositor) finalGet(rc RenderContext, frame float64) *seqrender.Image {
	if rc.NoCache {
		return nil
	}
	img := c.caches.Final.Get(frame, rc.View, rc.ChannelShown)
	if img != nil && !rc.matches(img) {
		img.Release()
		return nil
	}
	if img != nil {
		c.finalHits.Add(1)
		seqrender.Logger().Debug("render: final hit", "frame", frame)
	}
	return img
}

// Stats returns compositor counters.
func (c *Compositor) Stats() Stats {
	return Stats{
		Renders:      c.renders.Load(),
		FinalHits:    c.finalHits.Load(),
		StripRenders: c.stripRenders.Load(),
	}
}

// IsMissing reports whether a strip was flagged as having missing media.
func (c *Compositor) IsMissing(s *seqrender.Strip) bool {
	c.missingMu.Lock()
	defer c.missingMu.Unlock()
	return c.missing[s]
}

// ClearMissing forgets the missing-media flag of the given strips, or of
// every strip when called without arguments, so their media is retried.
func (c *Compositor) ClearMissing(strips ...*seqrender.Strip) {
	c.missingMu.Lock()
	defer c.missingMu.Unlock()
	if len(strips) == 0 {
		clear(c.missing)
		return
	}
	for _, s := range strips {
		delete(c.missing, s)
	}
}

func (c *Compositor) flagMissing(s *seqrender.Strip) {
	c.missingMu.Lock()
	defer c.missingMu.Unlock()
	c.missing[s] = true
}

// renderState is the per-call state threaded through the recursion.
type renderState struct {
	ctx     context.Context
	rc      RenderContext
	intra   *cache.IntraFrameCache
	visited map[*seqrender.Scene]bool
}

func (st *renderState) flags() cache.Flags {
	var f cache.Flags
	if st.rc.NoCache {
		f |= cache.NoCache
	}
	if st.rc.Proxy {
		f |= cache.Proxy
	}
	return f
}

func (st *renderState) format() seqrender.Format { return st.rc.format() }

func (rc RenderContext) format() seqrender.Format {
	if rc.Float {
		return seqrender.FormatFloat
	}
	return seqrender.FormatByte
}

// matches reports whether img has the output size and format of rc.
func (rc RenderContext) matches(img *seqrender.Image) bool {
	return img.Width() == rc.Width && img.Height() == rc.Height && img.Format() == rc.format()
}

func (c *Compositor) effectContext(st *renderState) *effect.Context {
	return &effect.Context{
		Width:   st.rc.Width,
		Height:  st.rc.Height,
		Format:  st.format(),
		Pool:    c.caches.Pool,
		Workers: c.opts.workers,
	}
}

func (c *Compositor) blank(st *renderState) *seqrender.Image {
	return c.caches.Pool.Get(st.rc.Width, st.rc.Height, st.format())
}
