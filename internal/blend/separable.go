package blend

import "math"

// separable builds a kernel from a per-channel blend function B(Cs, Cd)
// operating on unmultiplied values, using the standard formula:
//
//	Result = (1 - Sa) * D + (1 - Da) * S + Sa * Da * B(Cs, Cd)
//
// where the source alpha is first scaled by the factor.
func separable(b func(s, d float32) float32) Func {
	return func(dst, src [4]float32, fac float32) [4]float32 {
		sa := src[3] * fac
		da := dst[3]
		if sa == 0 {
			return dst
		}
		if da == 0 {
			return [4]float32{src[0] * fac, src[1] * fac, src[2] * fac, sa}
		}

		var out [4]float32
		for i := 0; i < 3; i++ {
			// Unpremultiply: color = alpha * unmultiplied_color.
			cs := src[i] / src[3]
			cd := dst[i] / da
			out[i] = (1-sa)*dst[i] + (1-da)*src[i]*fac + sa*da*b(cs, cd)
		}
		out[3] = sa + da - sa*da
		return out
	}
}

// multiply: B(Cs, Cd) = Cs * Cd
func multiply(s, d float32) float32 { return s * d }

// screen: B(Cs, Cd) = 1 - (1 - Cs) * (1 - Cd)
func screen(s, d float32) float32 { return 1 - (1-s)*(1-d) }

// overlay is HardLight with swapped layers.
func overlay(s, d float32) float32 { return hardLight(d, s) }

func darken(s, d float32) float32 { return min(s, d) }

func lighten(s, d float32) float32 { return max(s, d) }

// colorDodge: if Cs == 1: 1, else min(1, Cd / (1 - Cs))
func colorDodge(s, d float32) float32 {
	if d == 0 {
		return 0
	}
	if s >= 1 {
		return 1
	}
	return min(1, d/(1-s))
}

// colorBurn: if Cs == 0: 0, else 1 - min(1, (1 - Cd) / Cs)
func colorBurn(s, d float32) float32 {
	if d >= 1 {
		return 1
	}
	if s <= 0 {
		return 0
	}
	return 1 - min(1, (1-d)/s)
}

// linearBurn: max(0, Cs + Cd - 1)
func linearBurn(s, d float32) float32 { return max(0, s+d-1) }

// hardLight: Multiply or Screen depending on source.
func hardLight(s, d float32) float32 {
	if s <= 0.5 {
		return multiply(2*s, d)
	}
	return screen(2*s-1, d)
}

// softLight is a softer version of HardLight.
func softLight(s, d float32) float32 {
	if s <= 0.5 {
		return d - (1-2*s)*d*(1-d)
	}
	var dx float32
	if d <= 0.25 {
		dx = ((16*d-12)*d + 4) * d
	} else {
		dx = float32(math.Sqrt(float64(d)))
	}
	return d + (2*s-1)*(dx-d)
}

// difference: |Cs - Cd|
func difference(s, d float32) float32 {
	if s > d {
		return s - d
	}
	return d - s
}

// exclusion: Cs + Cd - 2 * Cs * Cd
func exclusion(s, d float32) float32 { return s + d - 2*s*d }
