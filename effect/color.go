package effect

import "github.com/gogpu/seqrender"

// colorHandler generates a solid color frame.
type colorHandler struct{}

func (colorHandler) NumInputs() int { return 0 }

func (colorHandler) EarlyOut(*seqrender.Strip, float64) EarlyOut { return NoInput }

func (colorHandler) Execute(ctx *Context, s *seqrender.Strip, _, _ float64, _, _, _ *seqrender.Image) *seqrender.Image {
	out := ctx.Pool.Get(ctx.Width, ctx.Height, ctx.outputFormat())
	if out == nil {
		return nil
	}
	out.Fill(Premultiply(s.Color))
	return out
}

// Premultiply converts a straight RGBA color to premultiplied form.
func Premultiply(c [4]float32) [4]float32 {
	return [4]float32{c[0] * c[3], c[1] * c[3], c[2] * c[3], c[3]}
}
