// Package modifier applies a strip's post-render modifier stack.
//
// Modifiers run once per rendered strip, after crop and transform and before
// the strip is blended with the stack beneath it. A Stack never writes into
// the image it is given: it returns either a new image or a new reference to
// the input when nothing changes.
package modifier

import (
	"math"
	"sync"

	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/effect"
	"github.com/gogpu/seqrender/internal/parallel"
)

// Stack applies a strip's modifiers.
type Stack interface {
	// ApplyStack borrows img and returns an image owned by the caller.
	ApplyStack(ctx *effect.Context, s *seqrender.Strip, img *seqrender.Image, frame float64) *seqrender.Image
}

// Func adjusts one straight-alpha color in place.
type Func func(m *seqrender.Modifier, rgb *[3]float32)

// Default is the built-in modifier stack.
type Default struct {
	mu    sync.RWMutex
	funcs map[seqrender.ModifierType]Func
}

// NewDefault returns a stack with the brightness/contrast and color balance
// modifiers registered.
func NewDefault() *Default {
	return &Default{funcs: map[seqrender.ModifierType]Func{
		seqrender.ModifierBrightContrast: BrightContrast,
		seqrender.ModifierColorBalance:   ColorBalance,
	}}
}

// Register installs fn for a modifier type.
func (d *Default) Register(t seqrender.ModifierType, fn Func) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.funcs[t] = fn
}

// ApplyStack implements Stack.
func (d *Default) ApplyStack(ctx *effect.Context, s *seqrender.Strip, img *seqrender.Image, _ float64) *seqrender.Image {
	if img == nil {
		return nil
	}
	active := d.active(s)
	if len(active) == 0 {
		return img.Acquire()
	}

	out := ctx.Pool.Get(img.Width(), img.Height(), img.Format())
	if out == nil {
		return img.Acquire()
	}
	clamp := img.Format() == seqrender.FormatByte
	n := img.Width()
	workers := ctx.Workers
	if workers == nil {
		workers = parallel.Default()
	}
	workers.Rows(img.Height(), func(y0, y1 int) {
		for i := y0 * n; i < y1*n; i++ {
			out.SetPixel(i, applyPixel(img.Pixel(i), active, clamp))
		}
	})
	return out
}

type bound struct {
	m  *seqrender.Modifier
	fn Func
}

func (d *Default) active(s *seqrender.Strip) []bound {
	if s == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []bound
	for i := range s.Modifiers {
		m := &s.Modifiers[i]
		if m.Mute {
			continue
		}
		if fn, ok := d.funcs[m.Type]; ok {
			out = append(out, bound{m: m, fn: fn})
		}
	}
	return out
}

func applyPixel(c [4]float32, stack []bound, clamp bool) [4]float32 {
	a := c[3]
	if a <= 0 {
		return c
	}
	rgb := [3]float32{c[0] / a, c[1] / a, c[2] / a}
	for _, b := range stack {
		b.fn(b.m, &rgb)
	}
	for i, v := range rgb {
		if clamp {
			v = min(max(v, 0), 1)
		}
		c[i] = v * a
	}
	return c
}

// BrightContrast shifts brightness and scales contrast. Bright and Contrast
// are in percent; zero leaves the color unchanged.
func BrightContrast(m *seqrender.Modifier, rgb *[3]float32) {
	bright := m.Bright / 100
	delta := m.Contrast / 200
	var a, b float64
	if m.Contrast > 0 {
		a = 1 / math.Max(1-delta*2, 1e-6)
		b = a * (bright - delta)
	} else {
		delta = -delta
		a = math.Max(1-delta*2, 0)
		b = a*bright + delta
	}
	for i, v := range rgb {
		rgb[i] = float32(a*float64(v) + b)
	}
}

// ColorBalance applies lift, gamma and gain per channel. Zero components
// are treated as 1 (neutral).
func ColorBalance(m *seqrender.Modifier, rgb *[3]float32) {
	for i, v := range rgb {
		lift, gamma, gain := neutral(m.Lift[i]), neutral(m.Gamma[i]), neutral(m.Gain[i])
		x := ((float64(v)-1)*lift + 1) * gain
		if x < 0 {
			x = 0
		}
		rgb[i] = float32(math.Pow(x, 1/gamma))
	}
}

func neutral(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
