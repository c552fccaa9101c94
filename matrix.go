package seqrender

import "math"

// Point is a 2D point in pixel space.
type Point struct {
	X, Y float64
}

// Matrix represents a 2D affine transformation matrix.
// It uses a 2x3 matrix in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// This represents the transformation:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transformation matrix.
func Identity() Matrix {
	return Matrix{A: 1, E: 1}
}

// Translate creates a translation matrix.
func Translate(x, y float64) Matrix {
	return Matrix{A: 1, C: x, E: 1, F: y}
}

// Scale creates a scaling matrix.
func Scale(x, y float64) Matrix {
	return Matrix{A: x, E: y}
}

// Rotate creates a rotation matrix (angle in radians).
func Rotate(angle float64) Matrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Matrix{
		A: cos, B: -sin,
		D: sin, E: cos,
	}
}

// Multiply multiplies two matrices (m * other).
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// TransformPoint applies the transformation to a point.
func (m Matrix) TransformPoint(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.C,
		Y: m.D*p.X + m.E*p.Y + m.F,
	}
}

// IsIdentity reports whether m is the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m.A == 1 && m.B == 0 && m.C == 0 && m.D == 0 && m.E == 1 && m.F == 0
}

// IsTranslation reports whether m only translates by whole pixels.
func (m Matrix) IsTranslation() bool {
	return m.A == 1 && m.B == 0 && m.D == 0 && m.E == 1 &&
		m.C == math.Trunc(m.C) && m.F == math.Trunc(m.F)
}

// StripMatrix returns the transform mapping source pixel coordinates of a
// srcW x srcH image into an outW x outH frame: the image is centered, scaled
// and rotated about its center, then offset.
func StripMatrix(s *Strip, srcW, srcH, outW, outH int) Matrix {
	sx, sy := s.Transform.Scale()
	m := Translate(float64(outW)/2+s.Transform.OffsetX, float64(outH)/2+s.Transform.OffsetY)
	m = m.Multiply(Rotate(s.Transform.Rotation))
	m = m.Multiply(Scale(sx, sy))
	return m.Multiply(Translate(-float64(srcW)/2, -float64(srcH)/2))
}
