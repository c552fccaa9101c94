package seqrender

import (
	"fmt"
	"math"
)

// StripType identifies what a strip produces.
type StripType uint8

const (
	// TypeImage is a still image or an image sequence.
	TypeImage StripType = iota
	// TypeMovie is a movie file decoded by a pluggable reader.
	TypeMovie
	// TypeColor generates a solid color.
	TypeColor
	// TypeText generates rendered text.
	TypeText
	// TypeMeta groups a nested timeline.
	TypeMeta
	// TypeScene renders another scene.
	TypeScene

	// TypeCross fades from Input1 to Input2.
	TypeCross
	// TypeGammaCross fades from Input1 to Input2 in gamma 2.0 space.
	TypeGammaCross
	// TypeAlphaOver puts Input2 over Input1.
	TypeAlphaOver
	// TypeAlphaUnder puts Input2 under Input1.
	TypeAlphaUnder
	// TypeAdd adds Input2 to Input1.
	TypeAdd
	// TypeSubtract subtracts Input2 from Input1.
	TypeSubtract
	// TypeMultiply multiplies Input1 by Input2.
	TypeMultiply
	// TypeGaussianBlur blurs Input1.
	TypeGaussianBlur

	typeCount
)

var stripTypeNames = [typeCount]string{
	TypeImage:        "image",
	TypeMovie:        "movie",
	TypeColor:        "color",
	TypeText:         "text",
	TypeMeta:         "meta",
	TypeScene:        "scene",
	TypeCross:        "cross",
	TypeGammaCross:   "gamma_cross",
	TypeAlphaOver:    "alpha_over",
	TypeAlphaUnder:   "alpha_under",
	TypeAdd:          "add",
	TypeSubtract:     "subtract",
	TypeMultiply:     "multiply",
	TypeGaussianBlur: "gaussian_blur",
}

// String implements fmt.Stringer.
func (t StripType) String() string {
	if t < typeCount {
		return stripTypeNames[t]
	}
	return fmt.Sprintf("StripType(%d)", uint8(t))
}

// ParseStripType is the inverse of StripType.String.
func ParseStripType(s string) (StripType, error) {
	for i, name := range stripTypeNames {
		if name == s {
			return StripType(i), nil
		}
	}
	return 0, fmt.Errorf("seqrender: unknown strip type %q", s)
}

// HasSource reports whether the strip decodes media from disk.
func (t StripType) HasSource() bool { return t == TypeImage || t == TypeMovie }

// IsGenerator reports whether the strip synthesises pixels without inputs.
func (t StripType) IsGenerator() bool { return t == TypeColor || t == TypeText }

// IsEffect reports whether the strip is rendered by an effect handler,
// generators included.
func (t StripType) IsEffect() bool { return t.IsGenerator() || t >= TypeCross && t < typeCount }

// BlendMode is how a strip's image combines with the composite beneath it.
// The zero value is BlendAlphaOver.
type BlendMode uint8

const (
	BlendAlphaOver BlendMode = iota
	BlendReplace
	BlendCross
	BlendAlphaUnder
	BlendGammaCross
	BlendAdd
	BlendSubtract
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDarken
	BlendLighten
	BlendColorDodge
	BlendColorBurn
	BlendLinearBurn
	BlendHardLight
	BlendSoftLight
	BlendDifference
	BlendExclusion

	blendCount
)

var blendNames = [blendCount]string{
	BlendAlphaOver:  "alpha_over",
	BlendReplace:    "replace",
	BlendCross:      "cross",
	BlendAlphaUnder: "alpha_under",
	BlendGammaCross: "gamma_cross",
	BlendAdd:        "add",
	BlendSubtract:   "subtract",
	BlendMultiply:   "multiply",
	BlendScreen:     "screen",
	BlendOverlay:    "overlay",
	BlendDarken:     "darken",
	BlendLighten:    "lighten",
	BlendColorDodge: "color_dodge",
	BlendColorBurn:  "color_burn",
	BlendLinearBurn: "linear_burn",
	BlendHardLight:  "hard_light",
	BlendSoftLight:  "soft_light",
	BlendDifference: "difference",
	BlendExclusion:  "exclusion",
}

// String implements fmt.Stringer.
func (m BlendMode) String() string {
	if m < blendCount {
		return blendNames[m]
	}
	return fmt.Sprintf("BlendMode(%d)", uint8(m))
}

// ParseBlendMode is the inverse of BlendMode.String. The empty string is
// BlendAlphaOver.
func ParseBlendMode(s string) (BlendMode, error) {
	if s == "" {
		return BlendAlphaOver, nil
	}
	for i, name := range blendNames {
		if name == s {
			return BlendMode(i), nil
		}
	}
	return 0, fmt.Errorf("seqrender: unknown blend mode %q", s)
}

// BlendModes returns every defined blend mode.
func BlendModes() []BlendMode {
	modes := make([]BlendMode, blendCount)
	for i := range modes {
		modes[i] = BlendMode(i)
	}
	return modes
}

// Media references the file a source strip decodes.
type Media struct {
	// Path is a file path. Image sequences use a single %d verb
	// (for example "shot/frame_%04d.png").
	Path string
	// ProxyPath is an optional lower resolution rendition with the same numbering.
	ProxyPath string
	// StartIndex is the index of the first frame in the file or sequence.
	StartIndex int
	// Stream selects the stream of multi-stream files.
	Stream int
	// Width and Height are the original media size; zero means output size.
	Width, Height int
	// Opaque is set when the media is known to carry no alpha.
	Opaque bool
}

// Crop trims pixels from each edge of the source image.
type Crop struct {
	Left, Right, Top, Bottom int
}

// Transform places the cropped image in the output frame. The image is
// centered, scaled and rotated about its center, then offset. Zero scale
// factors mean 1.
type Transform struct {
	OffsetX, OffsetY float64
	ScaleX, ScaleY   float64
	Rotation         float64 // radians
}

// Scale returns the effective scale factors.
func (t Transform) Scale() (float64, float64) {
	sx, sy := t.ScaleX, t.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return sx, sy
}

// ModifierType identifies a modifier of the post-render stack.
type ModifierType uint8

const (
	// ModifierBrightContrast adjusts brightness and contrast.
	ModifierBrightContrast ModifierType = iota
	// ModifierColorBalance applies lift/gamma/gain.
	ModifierColorBalance
)

// Modifier is one entry of a strip's modifier stack.
type Modifier struct {
	Type ModifierType
	Mute bool

	Bright, Contrast float64

	Lift, Gamma, Gain [3]float64
}

// TextParams configures a text generator strip.
type TextParams struct {
	Text  string
	Size  float64    // pixels; 0 means 48
	Color [4]float32 // straight RGBA
	// X and Y place the text anchor in normalised frame coordinates.
	X, Y float64
}

// Strip is a timeline entity: a clip, an effect or a generator.
//
// Strips are owned by their Timeline. The rendering engine treats them as
// read-only and caches refer to them by pointer; editing code must tell the
// cache which strips changed (see cache.SceneCache).
type Strip struct {
	Name    string
	Type    StripType
	Channel int

	// Start is the timeline frame where source frame 0 is shown.
	Start int
	// Length is the content length in source frames.
	Length int
	// StartOffset and EndOffset trim the visible range, in timeline frames.
	StartOffset, EndOffset int
	// Speed is the playback rate; zero means 1.
	Speed float64

	Input1, Input2, Input3 *Strip

	Blend   BlendMode
	Opacity float64

	Crop      Crop
	Transform Transform
	Modifiers []Modifier

	Media Media

	Color [4]float32 // straight RGBA, TypeColor
	Text  TextParams

	// EffectFader is the effect factor when DefaultFade is false.
	EffectFader float64
	// DefaultFade derives the effect factor from the position within the strip.
	DefaultFade bool
	// BlurSize is the blur radius in pixels for TypeGaussianBlur.
	BlurSize float64

	Meta  *Timeline
	Scene *Scene

	Mute bool
}

// NewStrip returns a strip with full opacity and default blending.
func NewStrip(name string, typ StripType, channel, start, length int) *Strip {
	return &Strip{
		Name:    name,
		Type:    typ,
		Channel: channel,
		Start:   start,
		Length:  length,
		Opacity: 1,
	}
}

// String implements fmt.Stringer.
func (s *Strip) String() string {
	if s == nil {
		return "<nil strip>"
	}
	return fmt.Sprintf("%s(%s ch%d)", s.Name, s.Type, s.Channel)
}

func (s *Strip) speed() float64 {
	if s.Speed <= 0 || !s.Type.HasSource() && s.Type != TypeMeta && s.Type != TypeScene {
		return 1
	}
	return s.Speed
}

// ContentEnd returns the timeline frame after the last content frame.
func (s *Strip) ContentEnd() int {
	return s.Start + int(math.Ceil(float64(s.Length)/s.speed()))
}

// Left returns the first visible timeline frame.
func (s *Strip) Left() int { return s.Start + s.StartOffset }

// Right returns the timeline frame after the last visible one.
func (s *Strip) Right() int { return s.ContentEnd() - s.EndOffset }

// IsVisibleAt reports whether the strip covers the timeline frame.
func (s *Strip) IsVisibleAt(frame float64) bool {
	return !s.Mute && frame >= float64(s.Left()) && frame < float64(s.Right())
}

// SourceFrame maps a timeline frame to the decoded frame index, accounting
// for playback speed and the media start offset.
func (s *Strip) SourceFrame(frame float64) int {
	idx := int(math.Floor((frame - float64(s.Start)) * s.speed()))
	if idx < 0 {
		idx = 0
	}
	if s.Length > 0 && idx > s.Length-1 {
		idx = s.Length - 1
	}
	return idx + s.Media.StartIndex
}

// LocalFrame maps a timeline frame into the strip's retimed time, still
// expressed in timeline frames. Meta and scene strips use it to pick the
// frame of their nested content.
func (s *Strip) LocalFrame(frame float64) float64 {
	return float64(s.Start) + (frame-float64(s.Start))*s.speed()
}

// EffectFactor returns the effect strength at the timeline frame.
func (s *Strip) EffectFactor(frame float64) float64 {
	if !s.DefaultFade {
		return s.EffectFader
	}
	left, right := float64(s.Left()), float64(s.Right())
	if right-left <= 1 {
		return 1
	}
	f := (frame - left) / (right - left - 1)
	return math.Max(0, math.Min(1, f))
}

// Inputs returns the non-nil effect inputs in order.
func (s *Strip) Inputs() []*Strip {
	in := make([]*Strip, 0, 3)
	for _, i := range [...]*Strip{s.Input1, s.Input2, s.Input3} {
		if i != nil {
			in = append(in, i)
		}
	}
	return in
}

// HasModifiers reports whether any modifier is active.
func (s *Strip) HasModifiers() bool {
	for _, m := range s.Modifiers {
		if !m.Mute {
			return true
		}
	}
	return false
}

// MediaSize returns the original media size, falling back to the output size.
func (s *Strip) MediaSize(outW, outH int) (int, int) {
	w, h := s.Media.Width, s.Media.Height
	if w <= 0 || h <= 0 {
		return outW, outH
	}
	return w, h
}
