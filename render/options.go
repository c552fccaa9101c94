package render

import (
	"github.com/gogpu/seqrender/cache"
	"github.com/gogpu/seqrender/effect"
	"github.com/gogpu/seqrender/internal/parallel"
	"github.com/gogpu/seqrender/media"
	"github.com/gogpu/seqrender/modifier"
)

// Option configures a Compositor during creation.
//
// Example:
//
//	comp := render.NewCompositor(scene, caches,
//	    render.WithRegistry(reg),
//	    render.WithDecoder(dec))
type Option func(*options)

type options struct {
	registry  *effect.Registry
	modifiers modifier.Stack
	decoder   media.Decoder
	intra     *cache.IntraFrameCache
	workers   *parallel.WorkerPool
}

// WithRegistry sets the effect and blend handlers. Defaults to effect.Default().
func WithRegistry(r *effect.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithModifiers sets the modifier stack. Defaults to modifier.NewDefault().
func WithModifiers(m modifier.Stack) Option {
	return func(o *options) {
		o.modifiers = m
	}
}

// WithDecoder sets the media decoder. Defaults to a media.FileDecoder.
func WithDecoder(d media.Decoder) Option {
	return func(o *options) {
		o.decoder = d
	}
}

// WithIntraFrame gives the compositor its own IntraFrame layer instead of the
// scene's. Background renderers use it so that they do not clear the
// foreground's intermediate results when they move to another frame.
func WithIntraFrame(c *cache.IntraFrameCache) Option {
	return func(o *options) {
		o.intra = c
	}
}

// WithWorkers sets the worker pool used for pixel work. Defaults to
// the process-wide pool.
func WithWorkers(p *parallel.WorkerPool) Option {
	return func(o *options) {
		o.workers = p
	}
}

// RenderContext holds the parameters of one frame render.
type RenderContext struct {
	// Width and Height are the output size.
	Width, Height int
	// View is the multi-view id; 0 for mono.
	View int
	// ChannelShown limits the stack to channels up to it; 0 shows all.
	ChannelShown int
	// Proxy renders from proxy media when available.
	Proxy bool
	// NoCache bypasses every cache layer.
	NoCache bool
	// Float produces float output.
	Float bool
	// ShowMissingMedia draws a placeholder for missing media instead of
	// leaving the strip empty.
	ShowMissingMedia bool
	// Prefetch marks a background render; it does not move the playhead used
	// by eviction.
	Prefetch bool
}

// FrameOption adjusts a RenderContext.
type FrameOption func(*RenderContext)

// WithSize sets the output size.
func WithSize(w, h int) FrameOption {
	return func(rc *RenderContext) {
		rc.Width, rc.Height = w, h
	}
}

// WithView sets the view id.
func WithView(view int) FrameOption {
	return func(rc *RenderContext) {
		rc.View = view
	}
}

// WithChannel shows channels up to ch only.
func WithChannel(ch int) FrameOption {
	return func(rc *RenderContext) {
		rc.ChannelShown = ch
	}
}

// WithProxy renders from proxy media.
func WithProxy() FrameOption {
	return func(rc *RenderContext) {
		rc.Proxy = true
	}
}

// WithoutCache bypasses all caches.
func WithoutCache() FrameOption {
	return func(rc *RenderContext) {
		rc.NoCache = true
	}
}

// WithFloat requests float output.
func WithFloat() FrameOption {
	return func(rc *RenderContext) {
		rc.Float = true
	}
}

// WithMissingMedia sets whether missing media is drawn as a placeholder.
func WithMissingMedia(show bool) FrameOption {
	return func(rc *RenderContext) {
		rc.ShowMissingMedia = show
	}
}

// AsPrefetch marks the render as a background prefetch.
func AsPrefetch() FrameOption {
	return func(rc *RenderContext) {
		rc.Prefetch = true
	}
}
