package render

import (
	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/effect"
)

// layer is the plan for one strip of the stack.
type layer struct {
	strip    *seqrender.Strip
	blend    effect.Handler
	early    effect.EarlyOut
	occluded bool
}

// renderStack composites the strips of tl visible at frame and returns an
// owned image, or nil when nothing is visible.
func (c *Compositor) renderStack(st *renderState, tl *seqrender.Timeline, frame float64, channelShown int) *seqrender.Image {
	if tl == nil {
		return nil
	}
	strips := tl.StripsAt(frame, channelShown)
	if len(strips) == 0 {
		return nil
	}
	w, h := st.rc.Width, st.rc.Height
	layers := make([]layer, len(strips))

	var (
		occluders []seqrender.Quad
		out       *seqrender.Image
		base      = -1
		cached    bool
	)
	for i := len(strips) - 1; i >= 0 && out == nil; i-- {
		s := strips[i]
		l := &layers[i]
		l.strip = s
		l.blend = c.opts.registry.Blend(s.Blend)
		l.early = l.blend.EarlyOut(s, s.Opacity)

		quad := seqrender.ScreenQuad(s, w, h)
		for _, q := range occluders {
			if q.Contains(quad) {
				l.occluded = true
				break
			}
		}
		if l.occluded {
			seqrender.Logger().Debug("render: strip occluded", "strip", s.Name, "frame", frame)
			if i == 0 {
				out, base = c.blank(st), 0
			}
			continue
		}
		opaque := isOpaque(s)
		if opaque {
			occluders = append(occluders, quad)
		}

		if img := st.intra.GetComposite(s); img != nil {
			out, base, cached = img, i, true
			continue
		}

		switch {
		case l.early == effect.NoInput || l.early == effect.UseInput2 || opaque && quad.CoversRect(w, h):
			out, base = c.renderStrip(st, s, frame), i
		case i > 0:
			// Needs the image beneath: keep walking down.
		case l.early == effect.UseInput1:
			out, base = c.blank(st), 0
		default:
			below := c.blank(st)
			img := c.renderStrip(st, s, frame)
			out, base = l.blend.Execute(c.effectContext(st), s, frame, s.Opacity, below, img, nil), 0
			img.Release()
			below.Release()
			if out == nil {
				out = c.blank(st)
			}
		}
	}

	if !cached && !layers[base].occluded {
		st.intra.PutComposite(strips[base], out)
	}

	for i := base + 1; i < len(strips); i++ {
		l := &layers[i]
		if l.occluded {
			continue
		}
		if l.early == effect.DoEffect {
			img := c.renderStrip(st, l.strip, frame)
			next := l.blend.Execute(c.effectContext(st), l.strip, frame, l.strip.Opacity, out, img, nil)
			img.Release()
			if next != nil {
				out.Release()
				out = next
			}
		}
		st.intra.PutComposite(l.strip, out)
	}
	return out
}

// isOpaque reports whether a strip is guaranteed to paint every pixel of its
// on-screen quad with full alpha, hiding whatever lies beneath it.
func isOpaque(s *seqrender.Strip) bool {
	if s.Opacity < 1 || s.HasModifiers() {
		return false
	}
	switch s.Blend {
	case seqrender.BlendReplace:
		return true
	case seqrender.BlendAlphaOver:
	default:
		return false
	}
	switch s.Type {
	case seqrender.TypeColor:
		return s.Color[3] >= 1
	case seqrender.TypeImage, seqrender.TypeMovie:
		return s.Media.Opaque
	default:
		return false
	}
}
