package render

import (
	"errors"

	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/cache"
	"github.com/gogpu/seqrender/effect"
	"github.com/gogpu/seqrender/media"
)

// placeholderColor marks strips whose media could not be loaded.
var placeholderColor = [4]float32{0.85, 0, 0.55, 1}

// renderStrip returns the preprocessed image of s at frame: cropped,
// transformed into the output frame and passed through the modifier stack.
// The result is owned by the caller and never nil.
func (c *Compositor) renderStrip(st *renderState, s *seqrender.Strip, frame float64) *seqrender.Image {
	if img := st.intra.GetPreprocessed(s); img != nil {
		return img
	}
	raw := c.produce(st, s, frame)
	var out *seqrender.Image
	if raw == nil {
		out = c.blank(st)
	} else {
		out = c.preprocess(st, s, frame, raw)
		raw.Release()
	}
	if st.ctx.Err() == nil {
		st.intra.PutPreprocessed(s, out)
	}
	return out
}

// produce returns the unprocessed image of s in its own size, or nil when
// the strip renders as nothing.
func (c *Compositor) produce(st *renderState, s *seqrender.Strip, frame float64) *seqrender.Image {
	if st.ctx.Err() != nil {
		return nil
	}
	switch {
	case s.Type.HasSource():
		return c.decode(st, s, frame)
	case s.Type == seqrender.TypeMeta:
		c.stripRenders.Add(1)
		return c.renderStack(st, s.Meta, s.LocalFrame(frame), 0)
	case s.Type == seqrender.TypeScene:
		return c.renderScene(st, s, frame)
	case s.Type.IsEffect():
		return c.renderEffect(st, s, frame)
	default:
		return nil
	}
}

// decode returns a source frame through the Source cache. Missing media
// flags the strip; a broken proxy falls back to the full resolution file.
func (c *Compositor) decode(st *renderState, s *seqrender.Strip, frame float64) *seqrender.Image {
	flags := st.flags()
	if img := c.caches.Source.Get(s, frame, st.rc.View, flags); img != nil {
		return img
	}
	if c.IsMissing(s) {
		return c.placeholder(st, s)
	}
	if c.opts.decoder == nil {
		return c.placeholder(st, s)
	}

	c.stripRenders.Add(1)
	idx := s.SourceFrame(frame)
	var (
		img *seqrender.Image
		err error
	)
	if st.rc.Proxy && s.Media.ProxyPath != "" {
		img, err = c.opts.decoder.DecodeSource(st.ctx, media.RefOf(s, true), idx, st.rc.View)
		if err != nil {
			seqrender.Logger().Warn("render: proxy decode failed, using full resolution",
				"strip", s.Name, "frame", idx, "err", err)
		}
	}
	if img == nil {
		img, err = c.opts.decoder.DecodeSource(st.ctx, media.RefOf(s, false), idx, st.rc.View)
	}
	if err != nil || img == nil {
		if st.ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, seqrender.ErrMissingMedia) {
			c.flagMissing(s)
		}
		seqrender.Logger().Warn("render: media unavailable", "strip", s.Name, "frame", idx, "err", err)
		return c.placeholder(st, s)
	}
	if c.caches.Config().StoreSource {
		c.caches.Source.Put(s, frame, st.rc.View, flags, img)
	}
	return img
}

// placeholder returns the missing-media image for s, or nil when missing
// media is not shown.
func (c *Compositor) placeholder(st *renderState, s *seqrender.Strip) *seqrender.Image {
	if !st.rc.ShowMissingMedia {
		return nil
	}
	w, h := s.MediaSize(st.rc.Width, st.rc.Height)
	img := c.caches.Pool.Get(w, h, seqrender.FormatByte)
	if img != nil {
		img.Fill(placeholderColor)
	}
	return img
}

// renderEffect runs the effect handler of s. Generators go through the
// Source cache; effects with inputs render their inputs first.
func (c *Compositor) renderEffect(st *renderState, s *seqrender.Strip, frame float64) *seqrender.Image {
	h := c.opts.registry.Effect(s.Type)
	if h == nil {
		seqrender.Logger().Warn("render: no handler for effect", "strip", s.Name, "type", s.Type)
		return nil
	}
	factor := s.EffectFactor(frame)
	generator := h.NumInputs() == 0
	flags := st.flags()
	if generator {
		if img := c.caches.Source.Get(s, frame, st.rc.View, flags); img != nil {
			if img.Width() == st.rc.Width && img.Height() == st.rc.Height {
				return img
			}
			img.Release()
		}
	}

	var out *seqrender.Image
	switch h.EarlyOut(s, factor) {
	case effect.UseInput1:
		return c.renderInput(st, s.Input1, frame)
	case effect.UseInput2:
		return c.renderInput(st, s.Input2, frame)
	case effect.NoInput:
		c.stripRenders.Add(1)
		out = h.Execute(c.effectContext(st), s, frame, factor, nil, nil, nil)
	default:
		var in [3]*seqrender.Image
		n := min(max(h.NumInputs(), 0), len(in))
		for i, src := range []*seqrender.Strip{s.Input1, s.Input2, s.Input3}[:n] {
			in[i] = c.renderInput(st, src, frame)
		}
		c.stripRenders.Add(1)
		out = h.Execute(c.effectContext(st), s, frame, factor, in[0], in[1], in[2])
		for _, img := range in {
			img.Release()
		}
	}
	if generator && out != nil && c.caches.Config().StoreSource {
		c.caches.Source.Put(s, frame, st.rc.View, flags, out)
	}
	return out
}

func (c *Compositor) renderInput(st *renderState, s *seqrender.Strip, frame float64) *seqrender.Image {
	if s == nil {
		return nil
	}
	return c.renderStrip(st, s, frame)
}

// renderScene renders the scene referenced by s at its own resolution.
// A scene already being rendered up the call chain renders as nothing.
func (c *Compositor) renderScene(st *renderState, s *seqrender.Strip, frame float64) *seqrender.Image {
	sc := s.Scene
	if sc == nil {
		return nil
	}
	if st.visited[sc] {
		seqrender.Logger().Warn("render: scene recursion", "strip", s.Name, "scene", sc.Name, "err", seqrender.ErrRecursion)
		return nil
	}
	st.visited[sc] = true
	defer delete(st.visited, sc)

	c.stripRenders.Add(1)
	inner := float64(sc.Start) + s.LocalFrame(frame) - float64(s.Start)

	sub := &renderState{
		ctx:     st.ctx,
		rc:      st.rc,
		intra:   cache.NewIntraFrameCache(),
		visited: st.visited,
	}
	sub.rc.Width, sub.rc.Height = sc.Width, sc.Height
	sub.rc.ChannelShown = 0
	defer sub.intra.Clear()
	sub.intra.SetCurrentFrame(inner, sub.rc.View, sc.Width, sc.Height, sub.format())

	return c.renderStack(sub, sc.Timeline, inner, 0)
}
