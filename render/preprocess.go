package render

import (
	"image"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/seqrender"
)

// preprocess places raw into an output-sized image: the raw image is
// stretched over the strip's media size (proxies and nested scenes differ
// from it), cropped, transformed, then run through the modifier stack.
// raw is borrowed; the result is owned by the caller.
func (c *Compositor) preprocess(st *renderState, s *seqrender.Strip, frame float64, raw *seqrender.Image) *seqrender.Image {
	w, h := st.rc.Width, st.rc.Height
	img := c.place(st, s, raw, w, h)

	if s.HasModifiers() {
		next := c.opts.modifiers.ApplyStack(c.effectContext(st), s, img, frame)
		if next != nil {
			img.Release()
			img = next
		}
	}
	if st.rc.Float && img.Format() != seqrender.FormatFloat {
		f := img.ToFloat()
		img.Release()
		img = f
	}
	return img
}

func (c *Compositor) place(st *renderState, s *seqrender.Strip, raw *seqrender.Image, w, h int) *seqrender.Image {
	mw, mh := s.MediaSize(w, h)
	rw, rh := raw.Width(), raw.Height()
	if isIdentityPlacement(s, rw, rh, mw, mh, w, h) {
		return raw.Acquire()
	}

	sx, sy := float64(mw)/float64(rw), float64(mh)/float64(rh)
	m := seqrender.StripMatrix(s, mw, mh, w, h).Multiply(seqrender.Scale(sx, sy))

	cr := s.Crop
	sr := image.Rect(
		int(float64(cr.Left)/sx), int(float64(cr.Top)/sy),
		rw-int(float64(cr.Right)/sx), rh-int(float64(cr.Bottom)/sy),
	)
	out := c.caches.Pool.Get(w, h, seqrender.FormatByte)
	if sr.Empty() {
		return out
	}

	var interp xdraw.Transformer = xdraw.BiLinear
	if m.IsTranslation() {
		interp = xdraw.NearestNeighbor
	}
	src := raw.RGBA()
	interp.Transform(out.RGBA(), f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}, src, sr, xdraw.Src, nil)
	return out
}

// isIdentityPlacement reports whether raw already is the output image.
func isIdentityPlacement(s *seqrender.Strip, rw, rh, mw, mh, w, h int) bool {
	if rw != w || rh != h || mw != w || mh != h {
		return false
	}
	if s.Crop != (seqrender.Crop{}) {
		return false
	}
	t := s.Transform
	sx, sy := t.Scale()
	return t.OffsetX == 0 && t.OffsetY == 0 && t.Rotation == 0 && sx == 1 && sy == 1
}
