package effect

import (
	"bytes"
	"image"
	"image/color"
	"slices"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/internal/cache"
)

// defaultTextSize is used when TextParams.Size is zero.
const defaultTextSize = 48

// maxShapedLines bounds the memo of shaped line widths.
const maxShapedLines = 256

type lineKey struct {
	text string
	size float64
}

// Text generates a frame with a single line of text centered on the strip's
// anchor point. Line width comes from HarfBuzz shaping so kerning is taken
// into account; glyphs are rasterised with the Go Regular font.
type Text struct {
	once    sync.Once
	err     error
	raster  *opentype.Font
	shaping *gtfont.Font

	// shaperPool pools HarfbuzzShaper instances; a shaper is not safe for
	// concurrent use but is cheap to reuse across sequential calls.
	shaperPool sync.Pool

	// widths memoizes shaped line widths by text and size.
	widths *cache.Cache[lineKey, float64]
}

// NewText returns the text generator handler.
func NewText() *Text {
	return &Text{
		shaperPool: sync.Pool{New: func() any { return &shaping.HarfbuzzShaper{} }},
		widths:     cache.New[lineKey, float64](maxShapedLines),
	}
}

func (t *Text) load() error {
	t.once.Do(func() {
		t.raster, t.err = opentype.Parse(goregular.TTF)
		if t.err != nil {
			return
		}
		var face *gtfont.Face
		face, t.err = gtfont.ParseTTF(bytes.NewReader(goregular.TTF))
		if t.err == nil {
			t.shaping = face.Font
		}
	})
	return t.err
}

// NumInputs implements Handler.
func (t *Text) NumInputs() int { return 0 }

// EarlyOut implements Handler.
func (t *Text) EarlyOut(*seqrender.Strip, float64) EarlyOut { return NoInput }

// Execute implements Handler.
func (t *Text) Execute(ctx *Context, s *seqrender.Strip, _, _ float64, _, _, _ *seqrender.Image) *seqrender.Image {
	canvas := ctx.Pool.Get(ctx.Width, ctx.Height, seqrender.FormatByte)
	if canvas == nil {
		return nil
	}
	if s.Text.Text != "" {
		if err := t.load(); err != nil {
			seqrender.Logger().Warn("text: font unavailable", "strip", s.Name, "err", err)
		} else {
			t.draw(canvas, s.Text)
		}
	}
	if ctx.outputFormat() == seqrender.FormatFloat {
		out := canvas.ToFloat()
		canvas.Release()
		return out
	}
	return canvas
}

func (t *Text) draw(canvas *seqrender.Image, p seqrender.TextParams) {
	size := p.Size
	if size <= 0 {
		size = defaultTextSize
	}
	face, err := opentype.NewFace(t.raster, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		seqrender.Logger().Warn("text: face creation failed", "err", err)
		return
	}
	defer face.Close()

	runes := []rune(p.Text)
	rtl := baseDirectionRTL(runes)
	width := t.widths.GetOrCreate(lineKey{p.Text, size}, func() float64 {
		return t.advance(runes, size, rtl)
	})

	visual := runes
	if rtl {
		visual = slices.Clone(runes)
		slices.Reverse(visual)
	}

	m := face.Metrics()
	x := p.X*float64(canvas.Width()) - width/2
	baseline := fixed.Int26_6(p.Y*float64(canvas.Height())*64) + (m.Ascent-m.Descent)/2

	c := p.Color
	d := &xfont.Drawer{
		Dst: canvas.RGBA(),
		Src: image.NewUniform(color.NRGBA{
			R: unit8(c[0]), G: unit8(c[1]), B: unit8(c[2]), A: unit8(c[3]),
		}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: baseline},
	}
	d.DrawString(string(visual))
}

// advance measures the shaped line width in pixels.
func (t *Text) advance(runes []rune, size float64, rtl bool) float64 {
	dir := di.DirectionLTR
	if rtl {
		dir = di.DirectionRTL
	}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      gtfont.NewFace(t.shaping),
		Size:      fixed.Int26_6(size * 64),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}
	hb := t.shaperPool.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	t.shaperPool.Put(hb)

	adv := out.Advance
	if adv < 0 {
		adv = -adv
	}
	return float64(adv) / 64
}

// baseDirectionRTL reports whether the first strong character is right-to-left.
func baseDirectionRTL(runes []rune) bool {
	for _, r := range runes {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return false
		case bidi.R, bidi.AL:
			return true
		}
	}
	return false
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func unit8(v float32) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}
