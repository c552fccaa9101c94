// Package effect defines the effect handler contract used by the compositor
// and provides the built-in handlers.
//
// The compositor never inspects effect parameters itself. It asks a Handler
// how many inputs it needs, whether it can short-circuit (EarlyOut), and
// finally to Execute. Strip blend modes are handlers too: the composite
// beneath a strip is input 1 and the strip's own image is input 2.
package effect

import (
	"fmt"
	"sync"

	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/internal/parallel"
)

// EarlyOut tells the compositor whether a handler needs to run.
type EarlyOut uint8

const (
	// NoInput means the handler generates its output without inputs.
	NoInput EarlyOut = iota
	// UseInput1 means the output equals input 1.
	UseInput1
	// UseInput2 means the output equals input 2.
	UseInput2
	// DoEffect means Execute must run.
	DoEffect
)

// String implements fmt.Stringer.
func (e EarlyOut) String() string {
	switch e {
	case NoInput:
		return "NoInput"
	case UseInput1:
		return "UseInput1"
	case UseInput2:
		return "UseInput2"
	case DoEffect:
		return "DoEffect"
	default:
		return fmt.Sprintf("EarlyOut(%d)", uint8(e))
	}
}

// Context carries the output format of an Execute call.
type Context struct {
	Width, Height int
	// Format is the preferred output format. Handlers produce float output
	// when it is FormatFloat or when any input is float.
	Format seqrender.Format
	// Pool provides output buffers; nil allocates.
	Pool *seqrender.Pool
	// Workers splits pixel work; nil uses the process-wide pool.
	Workers *parallel.WorkerPool
}

func (c *Context) workers() *parallel.WorkerPool {
	if c.Workers != nil {
		return c.Workers
	}
	return parallel.Default()
}

// outputFormat picks float when requested or when any input is float.
func (c *Context) outputFormat(inputs ...*seqrender.Image) seqrender.Format {
	if c.Format == seqrender.FormatFloat {
		return seqrender.FormatFloat
	}
	for _, in := range inputs {
		if in != nil && in.Format() == seqrender.FormatFloat {
			return seqrender.FormatFloat
		}
	}
	return seqrender.FormatByte
}

// Handler is the contract between the compositor and an effect or blend mode.
//
// Execute borrows its inputs and returns a new image holding one reference
// owned by the caller. Inputs that the handler does not need may be nil.
// Execute must not modify its inputs.
type Handler interface {
	// NumInputs returns how many input strips the effect consumes (0 to 3).
	NumInputs() int
	// EarlyOut reports whether Execute can be skipped for this factor.
	EarlyOut(s *seqrender.Strip, factor float64) EarlyOut
	// Execute renders the effect at the timeline frame.
	Execute(ctx *Context, s *seqrender.Strip, frame, factor float64, in1, in2, in3 *seqrender.Image) *seqrender.Image
}

// Registry maps strip types and blend modes to handlers.
//
// Thread safety: Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	effects map[seqrender.StripType]Handler
	blends  map[seqrender.BlendMode]Handler
}

// NewRegistry returns a registry populated with the built-in handlers.
func NewRegistry() *Registry {
	r := &Registry{
		effects: make(map[seqrender.StripType]Handler),
		blends:  make(map[seqrender.BlendMode]Handler),
	}
	for _, mode := range seqrender.BlendModes() {
		r.blends[mode] = NewBlend(mode)
	}
	r.effects[seqrender.TypeColor] = colorHandler{}
	r.effects[seqrender.TypeText] = NewText()
	r.effects[seqrender.TypeCross] = NewBlend(seqrender.BlendCross)
	r.effects[seqrender.TypeGammaCross] = NewBlend(seqrender.BlendGammaCross)
	r.effects[seqrender.TypeAlphaOver] = NewBlend(seqrender.BlendAlphaOver)
	r.effects[seqrender.TypeAlphaUnder] = NewBlend(seqrender.BlendAlphaUnder)
	r.effects[seqrender.TypeAdd] = NewBlend(seqrender.BlendAdd)
	r.effects[seqrender.TypeSubtract] = NewBlend(seqrender.BlendSubtract)
	r.effects[seqrender.TypeMultiply] = multiplyEffect()
	r.effects[seqrender.TypeGaussianBlur] = blurHandler{}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared registry of built-in handlers.
func Default() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Effect returns the handler rendering strips of type t, or nil.
func (r *Registry) Effect(t seqrender.StripType) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.effects[t]
}

// Blend returns the handler for a blend mode, falling back to alpha over.
func (r *Registry) Blend(mode seqrender.BlendMode) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.blends[mode]; ok {
		return h
	}
	return r.blends[seqrender.BlendAlphaOver]
}

// SetEffect replaces the handler for a strip type.
func (r *Registry) SetEffect(t seqrender.StripType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects[t] = h
}

// SetBlend replaces the handler for a blend mode.
func (r *Registry) SetBlend(mode seqrender.BlendMode, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blends[mode] = h
}

// Clone returns an independent copy, useful to instrument handlers in tests
// without touching Default.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{
		effects: make(map[seqrender.StripType]Handler, len(r.effects)),
		blends:  make(map[seqrender.BlendMode]Handler, len(r.blends)),
	}
	for k, v := range r.effects {
		c.effects[k] = v
	}
	for k, v := range r.blends {
		c.blends[k] = v
	}
	return c
}

// pixelAt returns the pixel at (x, y), transparent outside img or for nil.
func pixelAt(img *seqrender.Image, x, y int) [4]float32 {
	if img == nil || x >= img.Width() || y >= img.Height() {
		return [4]float32{}
	}
	return img.Pixel(y*img.Width() + x)
}
