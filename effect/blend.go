package effect

import (
	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/internal/blend"
)

// Blend is a two-input handler mixing input 2 over input 1 with a blend kernel.
// It serves both strip blend modes and the transition effect strips.
type Blend struct {
	mode seqrender.BlendMode
	fn   blend.Func
}

// NewBlend returns the handler for a blend mode.
func NewBlend(mode seqrender.BlendMode) *Blend {
	return &Blend{mode: mode, fn: blend.For(mode)}
}

func multiplyEffect() *Blend {
	return &Blend{mode: seqrender.BlendMultiply, fn: blend.MultiplyEffect}
}

// Mode returns the blend mode.
func (b *Blend) Mode() seqrender.BlendMode { return b.mode }

// NumInputs implements Handler.
func (b *Blend) NumInputs() int { return 2 }

// EarlyOut implements Handler. A zero factor leaves input 1. Replace and
// the cross fades reduce to input 2 at full strength.
func (b *Blend) EarlyOut(_ *seqrender.Strip, factor float64) EarlyOut {
	if factor <= 0 {
		return UseInput1
	}
	if factor >= 1 {
		switch b.mode {
		case seqrender.BlendReplace, seqrender.BlendCross, seqrender.BlendGammaCross:
			return UseInput2
		}
	}
	return DoEffect
}

// Execute implements Handler.
func (b *Blend) Execute(ctx *Context, _ *seqrender.Strip, _ float64, factor float64, in1, in2, _ *seqrender.Image) *seqrender.Image {
	out := ctx.Pool.Get(ctx.Width, ctx.Height, ctx.outputFormat(in1, in2))
	if out == nil {
		return nil
	}
	fac := float32(factor)
	w := ctx.Width
	ctx.workers().Rows(ctx.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				out.SetPixel(y*w+x, b.fn(pixelAt(in1, x, y), pixelAt(in2, x, y), fac))
			}
		}
	})
	return out
}
