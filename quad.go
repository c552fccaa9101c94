package seqrender

// quadEpsilon absorbs floating point noise when comparing coincident edges.
const quadEpsilon = 1e-6

// Quad is a convex quadrilateral in output pixel space, corners in order.
type Quad [4]Point

// RectQuad returns the quad of the axis-aligned rectangle [0,w] x [0,h].
func RectQuad(w, h int) Quad {
	fw, fh := float64(w), float64(h)
	return Quad{{0, 0}, {fw, 0}, {fw, fh}, {0, fh}}
}

// ScreenQuad returns the on-screen quad of a strip's cropped image inside an
// outW x outH frame, derived from its media size, crop and transform.
func ScreenQuad(s *Strip, outW, outH int) Quad {
	w, h := s.MediaSize(outW, outH)
	m := StripMatrix(s, w, h, outW, outH)

	x0, y0 := float64(s.Crop.Left), float64(s.Crop.Top)
	x1, y1 := float64(w-s.Crop.Right), float64(h-s.Crop.Bottom)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return Quad{
		m.TransformPoint(Point{x0, y0}),
		m.TransformPoint(Point{x1, y0}),
		m.TransformPoint(Point{x1, y1}),
		m.TransformPoint(Point{x0, y1}),
	}
}

// Area returns the signed area (positive for clockwise corners in y-down space).
func (q Quad) Area() float64 {
	var a float64
	for i := range q {
		j := (i + 1) % 4
		a += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return a / 2
}

// IsEmpty reports whether the quad has no area.
func (q Quad) IsEmpty() bool {
	a := q.Area()
	return a < quadEpsilon && a > -quadEpsilon
}

// ContainsPoint reports whether p lies inside or on the border of q.
func (q Quad) ContainsPoint(p Point) bool {
	sign := 1.0
	if q.Area() < 0 {
		sign = -1
	}
	for i := range q {
		a, b := q[i], q[(i+1)%4]
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if cross*sign < -quadEpsilon {
			return false
		}
	}
	return true
}

// Contains reports whether other lies entirely inside q. Both quads are
// convex, so checking the corners is sufficient. An empty q contains nothing.
func (q Quad) Contains(other Quad) bool {
	if q.IsEmpty() {
		return false
	}
	for _, p := range other {
		if !q.ContainsPoint(p) {
			return false
		}
	}
	return true
}

// CoversRect reports whether q covers the whole [0,w] x [0,h] frame.
func (q Quad) CoversRect(w, h int) bool {
	return q.Contains(RectQuad(w, h))
}
