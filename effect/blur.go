package effect

import (
	"math"

	"github.com/gogpu/seqrender"
)

// blurHandler applies a separable gaussian blur to input 1.
type blurHandler struct{}

func (blurHandler) NumInputs() int { return 1 }

func (blurHandler) EarlyOut(s *seqrender.Strip, factor float64) EarlyOut {
	if s.BlurSize <= 0 || factor <= 0 {
		return UseInput1
	}
	return DoEffect
}

func (blurHandler) Execute(ctx *Context, s *seqrender.Strip, _, factor float64, in1, _, _ *seqrender.Image) *seqrender.Image {
	if in1 == nil {
		return ctx.Pool.Get(ctx.Width, ctx.Height, ctx.outputFormat())
	}
	kernel := gaussianKernel(s.BlurSize * factor)
	format := ctx.outputFormat(in1)
	w, h := in1.Width(), in1.Height()

	tmp := ctx.Pool.Get(w, h, seqrender.FormatFloat)
	defer tmp.Release()
	out := ctx.Pool.Get(w, h, format)

	r := len(kernel) / 2
	ctx.workers().Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				var acc [4]float32
				for k, wt := range kernel {
					sx := min(max(x+k-r, 0), w-1)
					p := in1.Pixel(y*w + sx)
					for c := range acc {
						acc[c] += p[c] * wt
					}
				}
				tmp.SetPixel(y*w+x, acc)
			}
		}
	})
	ctx.workers().Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				var acc [4]float32
				for k, wt := range kernel {
					sy := min(max(y+k-r, 0), h-1)
					p := tmp.Pixel(sy*w + x)
					for c := range acc {
						acc[c] += p[c] * wt
					}
				}
				out.SetPixel(y*w+x, acc)
			}
		}
	})
	return out
}

// gaussianKernel returns normalised weights for a blur of the given radius.
func gaussianKernel(radius float64) []float32 {
	r := int(math.Ceil(radius))
	if r < 1 {
		return []float32{1}
	}
	sigma := radius / 3
	if sigma < 0.5 {
		sigma = 0.5
	}
	kernel := make([]float32, 2*r+1)
	var sum float32
	for i := range kernel {
		d := float64(i - r)
		v := float32(math.Exp(-d * d / (2 * sigma * sigma)))
		kernel[i] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}
