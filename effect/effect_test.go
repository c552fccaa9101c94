package effect

import (
	"math"
	"testing"

	"github.com/gogpu/seqrender"
)

func newCtx(w, h int) *Context {
	return &Context{Width: w, Height: h, Pool: seqrender.NewPool(4)}
}

func solid(w, h int, c [4]float32) *seqrender.Image {
	img := seqrender.NewImage(w, h, seqrender.FormatByte)
	img.Fill(c)
	return img
}

// =============================================================================
// Registry Tests
// =============================================================================

func TestRegistry_BuiltinsPresent(t *testing.T) {
	r := NewRegistry()
	for _, typ := range []seqrender.StripType{
		seqrender.TypeColor, seqrender.TypeText, seqrender.TypeCross, seqrender.TypeGammaCross,
		seqrender.TypeAlphaOver, seqrender.TypeAlphaUnder, seqrender.TypeAdd,
		seqrender.TypeSubtract, seqrender.TypeMultiply, seqrender.TypeGaussianBlur,
	} {
		if r.Effect(typ) == nil {
			t.Errorf("Effect(%v) = nil", typ)
		}
	}
	for _, mode := range seqrender.BlendModes() {
		if r.Blend(mode) == nil {
			t.Errorf("Blend(%v) = nil", mode)
		}
	}
	if r.Effect(seqrender.TypeImage) != nil {
		t.Error("source strips have no effect handler")
	}
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	r := NewRegistry()
	c := r.Clone()
	c.SetBlend(seqrender.BlendAdd, colorHandler{})
	if _, ok := r.Blend(seqrender.BlendAdd).(*Blend); !ok {
		t.Error("SetBlend on a clone changed the original")
	}
}

func TestNumInputs(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		typ  seqrender.StripType
		want int
	}{
		{seqrender.TypeColor, 0},
		{seqrender.TypeText, 0},
		{seqrender.TypeGaussianBlur, 1},
		{seqrender.TypeCross, 2},
	}
	for _, tt := range tests {
		if got := r.Effect(tt.typ).NumInputs(); got != tt.want {
			t.Errorf("%v NumInputs() = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

// =============================================================================
// EarlyOut Tests
// =============================================================================

func TestBlend_EarlyOut(t *testing.T) {
	tests := []struct {
		mode   seqrender.BlendMode
		factor float64
		want   EarlyOut
	}{
		{seqrender.BlendAlphaOver, 0, UseInput1},
		{seqrender.BlendAlphaOver, 0.5, DoEffect},
		{seqrender.BlendAlphaOver, 1, DoEffect},
		{seqrender.BlendCross, 1, UseInput2},
		{seqrender.BlendCross, 0.5, DoEffect},
		{seqrender.BlendReplace, 1, UseInput2},
		{seqrender.BlendMultiply, 0, UseInput1},
	}
	for _, tt := range tests {
		got := NewBlend(tt.mode).EarlyOut(nil, tt.factor)
		if got != tt.want {
			t.Errorf("%v.EarlyOut(%v) = %v, want %v", tt.mode, tt.factor, got, tt.want)
		}
	}
}

func TestBlur_EarlyOut(t *testing.T) {
	s := seqrender.NewStrip("blur", seqrender.TypeGaussianBlur, 1, 0, 10)
	if got := (blurHandler{}).EarlyOut(s, 1); got != UseInput1 {
		t.Errorf("zero size EarlyOut = %v, want UseInput1", got)
	}
	s.BlurSize = 3
	if got := (blurHandler{}).EarlyOut(s, 1); got != DoEffect {
		t.Errorf("EarlyOut = %v, want DoEffect", got)
	}
}

// =============================================================================
// Execute Tests
// =============================================================================

func TestBlend_ExecuteCross(t *testing.T) {
	ctx := newCtx(8, 4)
	a := solid(8, 4, [4]float32{1, 0, 0, 1})
	b := solid(8, 4, [4]float32{0, 0, 1, 1})
	defer a.Release()
	defer b.Release()

	out := NewBlend(seqrender.BlendCross).Execute(ctx, nil, 0, 0.5, a, b, nil)
	defer out.Release()

	if out == a || out == b {
		t.Fatal("Execute must return a new image")
	}
	c := out.Pixel(5)
	if math.Abs(float64(c[0]-0.5)) > 0.01 || math.Abs(float64(c[2]-0.5)) > 0.01 {
		t.Errorf("cross pixel = %v, want half red half blue", c)
	}
	if a.Pixel(0)[0] != 1 {
		t.Error("Execute modified its input")
	}
}

func TestBlend_ExecuteNilBelowIsTransparent(t *testing.T) {
	ctx := newCtx(4, 4)
	src := solid(4, 4, [4]float32{0, 1, 0, 1})
	defer src.Release()

	out := NewBlend(seqrender.BlendAlphaOver).Execute(ctx, nil, 0, 1, nil, src, nil)
	defer out.Release()
	if c := out.Pixel(0); c != [4]float32{0, 1, 0, 1} {
		t.Errorf("pixel = %v, want opaque green", c)
	}
}

func TestBlend_FloatInputGivesFloatOutput(t *testing.T) {
	ctx := newCtx(2, 2)
	a := seqrender.NewImage(2, 2, seqrender.FormatFloat)
	a.Fill([4]float32{2, 2, 2, 1})
	defer a.Release()

	out := NewBlend(seqrender.BlendAdd).Execute(ctx, nil, 0, 1, a, a, nil)
	defer out.Release()
	if out.Format() != seqrender.FormatFloat {
		t.Fatalf("Format() = %v, want float", out.Format())
	}
	if c := out.Pixel(0); c[0] != 4 {
		t.Errorf("float add = %v, want unclamped 4", c[0])
	}
}

func TestColor_Execute(t *testing.T) {
	ctx := newCtx(3, 3)
	s := seqrender.NewStrip("c", seqrender.TypeColor, 1, 0, 10)
	s.Color = [4]float32{1, 1, 1, 0.5}

	out := colorHandler{}.Execute(ctx, s, 0, 0, nil, nil, nil)
	defer out.Release()
	c := out.Pixel(4)
	if math.Abs(float64(c[0]-0.5)) > 0.01 || math.Abs(float64(c[3]-0.5)) > 0.01 {
		t.Errorf("pixel = %v, want premultiplied half white", c)
	}
}

func TestBlur_Execute(t *testing.T) {
	ctx := newCtx(32, 32)
	in := seqrender.NewImage(32, 32, seqrender.FormatByte)
	defer in.Release()
	in.SetPixel(16*32+16, [4]float32{1, 1, 1, 1})

	s := seqrender.NewStrip("blur", seqrender.TypeGaussianBlur, 1, 0, 10)
	s.BlurSize = 4
	out := blurHandler{}.Execute(ctx, s, 0, 1, in, nil, nil)
	defer out.Release()

	center := out.Pixel(16*32 + 16)
	neighbor := out.Pixel(16*32 + 17)
	if center[3] >= 1 || center[3] <= 0 {
		t.Errorf("center alpha = %v, want spread below 1", center[3])
	}
	if neighbor[3] <= 0 {
		t.Errorf("neighbor alpha = %v, want > 0", neighbor[3])
	}
}

func TestGaussianKernel_Normalised(t *testing.T) {
	for _, r := range []float64{0, 0.4, 1, 5.5} {
		var sum float32
		for _, w := range gaussianKernel(r) {
			sum += w
		}
		if math.Abs(float64(sum-1)) > 1e-4 {
			t.Errorf("kernel(%v) sum = %v, want 1", r, sum)
		}
	}
}

func TestText_Execute(t *testing.T) {
	ctx := newCtx(200, 80)
	s := seqrender.NewStrip("title", seqrender.TypeText, 1, 0, 10)
	s.Text = seqrender.TextParams{Text: "Hello", Size: 32, Color: [4]float32{1, 1, 1, 1}, X: 0.5, Y: 0.5}

	gen := NewText()
	out := gen.Execute(ctx, s, 0, 0, nil, nil, nil)
	defer out.Release()
	gen.Execute(ctx, s, 1, 0, nil, nil, nil).Release()
	if st := gen.widths.Stats(); st.Len != 1 || st.Hits != 1 {
		t.Errorf("width memo = %+v, want one entry hit once", st)
	}

	var covered int
	for i := 0; i < out.Width()*out.Height(); i++ {
		if out.Pixel(i)[3] > 0 {
			covered++
		}
	}
	if covered == 0 {
		t.Error("text generator drew nothing")
	}
	if out.IsOpaque() {
		t.Error("text frame should keep a transparent background")
	}
}

func TestBaseDirectionRTL(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"hello", false},
		{"123 abc", false},
		{"שלום", true},
		{"  مرحبا", true},
	}
	for _, tt := range tests {
		if got := baseDirectionRTL([]rune(tt.text)); got != tt.want {
			t.Errorf("baseDirectionRTL(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
