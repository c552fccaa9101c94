// Package blend implements the per-pixel blend kernels behind strip blend
// modes and the two-input blend effects.
//
// All kernels work on premultiplied RGBA in the range [0, 1]. The factor
// scales the contribution of the upper (source) image: 0 leaves the lower
// (destination) image untouched, 1 applies the mode fully.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
package blend

import (
	"math"

	"github.com/gogpu/seqrender"
)

// Func blends src over dst with strength fac and returns the result.
// All colors are premultiplied.
type Func func(dst, src [4]float32, fac float32) [4]float32

// For returns the kernel for a blend mode.
// Returns the alpha-over kernel for unknown modes.
func For(mode seqrender.BlendMode) Func {
	switch mode {
	case seqrender.BlendReplace, seqrender.BlendCross:
		return Cross
	case seqrender.BlendGammaCross:
		return GammaCross
	case seqrender.BlendAlphaOver:
		return AlphaOver
	case seqrender.BlendAlphaUnder:
		return AlphaUnder
	case seqrender.BlendAdd:
		return Add
	case seqrender.BlendSubtract:
		return Subtract
	case seqrender.BlendMultiply:
		return separable(multiply)
	case seqrender.BlendScreen:
		return separable(screen)
	case seqrender.BlendOverlay:
		return separable(overlay)
	case seqrender.BlendDarken:
		return separable(darken)
	case seqrender.BlendLighten:
		return separable(lighten)
	case seqrender.BlendColorDodge:
		return separable(colorDodge)
	case seqrender.BlendColorBurn:
		return separable(colorBurn)
	case seqrender.BlendLinearBurn:
		return separable(linearBurn)
	case seqrender.BlendHardLight:
		return separable(hardLight)
	case seqrender.BlendSoftLight:
		return separable(softLight)
	case seqrender.BlendDifference:
		return separable(difference)
	case seqrender.BlendExclusion:
		return separable(exclusion)
	default:
		return AlphaOver
	}
}

// Cross mixes linearly: D*(1-f) + S*f.
func Cross(dst, src [4]float32, fac float32) [4]float32 {
	inv := 1 - fac
	return [4]float32{
		dst[0]*inv + src[0]*fac,
		dst[1]*inv + src[1]*fac,
		dst[2]*inv + src[2]*fac,
		dst[3]*inv + src[3]*fac,
	}
}

// GammaCross mixes in gamma 2.0 space, which keeps mid-fade brightness closer
// to the endpoints than a linear cross.
func GammaCross(dst, src [4]float32, fac float32) [4]float32 {
	inv := 1 - fac
	var out [4]float32
	for i := 0; i < 3; i++ {
		v := dst[i]*dst[i]*inv + src[i]*src[i]*fac
		out[i] = float32(math.Sqrt(float64(v)))
	}
	out[3] = dst[3]*inv + src[3]*fac
	return out
}

// AlphaOver puts the faded source over the destination: S' + D*(1-S'a).
func AlphaOver(dst, src [4]float32, fac float32) [4]float32 {
	invSa := 1 - src[3]*fac
	return [4]float32{
		src[0]*fac + dst[0]*invSa,
		src[1]*fac + dst[1]*invSa,
		src[2]*fac + dst[2]*invSa,
		src[3]*fac + dst[3]*invSa,
	}
}

// AlphaUnder puts the faded source under the destination: D + S'*(1-Da).
func AlphaUnder(dst, src [4]float32, fac float32) [4]float32 {
	invDa := 1 - dst[3]
	f := fac * invDa
	return [4]float32{
		dst[0] + src[0]*f,
		dst[1] + src[1]*f,
		dst[2] + src[2]*f,
		dst[3] + src[3]*f,
	}
}

// Add adds the faded source colors; destination alpha is kept.
func Add(dst, src [4]float32, fac float32) [4]float32 {
	return [4]float32{
		dst[0] + src[0]*fac,
		dst[1] + src[1]*fac,
		dst[2] + src[2]*fac,
		dst[3],
	}
}

// Subtract subtracts the faded source colors, clamping at zero.
func Subtract(dst, src [4]float32, fac float32) [4]float32 {
	return [4]float32{
		max(0, dst[0]-src[0]*fac),
		max(0, dst[1]-src[1]*fac),
		max(0, dst[2]-src[2]*fac),
		dst[3],
	}
}

// MultiplyEffect scales the destination by the source: D * (1 - f + f*S).
func MultiplyEffect(dst, src [4]float32, fac float32) [4]float32 {
	inv := 1 - fac
	return [4]float32{
		dst[0] * (inv + fac*src[0]),
		dst[1] * (inv + fac*src[1]),
		dst[2] * (inv + fac*src[2]),
		dst[3] * (inv + fac*src[3]),
	}
}
