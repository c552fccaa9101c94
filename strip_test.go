package seqrender

import "testing"

func TestStrip_VisibleRange(t *testing.T) {
	s := NewStrip("clip", TypeImage, 1, 10, 20)
	s.StartOffset = 2
	s.EndOffset = 3

	if s.Left() != 12 || s.Right() != 27 {
		t.Fatalf("range = [%d, %d), want [12, 27)", s.Left(), s.Right())
	}
	tests := []struct {
		frame float64
		want  bool
	}{
		{11, false},
		{12, true},
		{26.5, true},
		{27, false},
	}
	for _, tt := range tests {
		if got := s.IsVisibleAt(tt.frame); got != tt.want {
			t.Errorf("IsVisibleAt(%v) = %v, want %v", tt.frame, got, tt.want)
		}
	}

	s.Mute = true
	if s.IsVisibleAt(15) {
		t.Error("muted strip should not be visible")
	}
}

func TestStrip_SourceFrame(t *testing.T) {
	tests := []struct {
		name       string
		speed      float64
		startIndex int
		frame      float64
		want       int
	}{
		{"first frame", 1, 0, 10, 0},
		{"offset into clip", 1, 0, 15, 5},
		{"media start offset", 1, 100, 15, 105},
		{"double speed", 2, 0, 15, 10},
		{"clamped past end", 1, 0, 500, 19},
		{"clamped before start", 1, 0, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStrip("clip", TypeMovie, 1, 10, 20)
			s.Speed = tt.speed
			s.Media.StartIndex = tt.startIndex
			if got := s.SourceFrame(tt.frame); got != tt.want {
				t.Errorf("SourceFrame(%v) = %d, want %d", tt.frame, got, tt.want)
			}
		})
	}
}

func TestStrip_SpeedShortensRange(t *testing.T) {
	s := NewStrip("clip", TypeMovie, 1, 0, 100)
	s.Speed = 2
	if s.Right() != 50 {
		t.Errorf("Right() = %d, want 50", s.Right())
	}

	gen := NewStrip("color", TypeColor, 1, 0, 100)
	gen.Speed = 2
	if gen.Right() != 100 {
		t.Errorf("generator Right() = %d, want 100 (speed ignored)", gen.Right())
	}
}

func TestStrip_LocalFrame(t *testing.T) {
	tests := []struct {
		typ   StripType
		speed float64
		frame float64
		want  float64
	}{
		{TypeMeta, 1, 15, 15},
		{TypeMeta, 2, 15, 20},
		{TypeScene, 0.5, 20, 15},
		{TypeColor, 2, 15, 15}, // generators ignore speed
	}
	for _, tt := range tests {
		s := NewStrip("s", tt.typ, 1, 10, 100)
		s.Speed = tt.speed
		if got := s.LocalFrame(tt.frame); got != tt.want {
			t.Errorf("%v speed %v: LocalFrame(%v) = %v, want %v", tt.typ, tt.speed, tt.frame, got, tt.want)
		}
	}
}

func TestStrip_EffectFactor(t *testing.T) {
	s := NewStrip("fx", TypeCross, 2, 0, 11)
	s.EffectFader = 0.25
	if got := s.EffectFactor(5); got != 0.25 {
		t.Errorf("EffectFactor = %v, want 0.25", got)
	}

	s.DefaultFade = true
	if got := s.EffectFactor(0); got != 0 {
		t.Errorf("EffectFactor(0) = %v, want 0", got)
	}
	if got := s.EffectFactor(5); got != 0.5 {
		t.Errorf("EffectFactor(5) = %v, want 0.5", got)
	}
	if got := s.EffectFactor(10); got != 1 {
		t.Errorf("EffectFactor(10) = %v, want 1", got)
	}
}

func TestParseNames(t *testing.T) {
	for _, m := range BlendModes() {
		got, err := ParseBlendMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseBlendMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseBlendMode("nope"); err == nil {
		t.Error("ParseBlendMode should reject unknown names")
	}
	typ, err := ParseStripType("gaussian_blur")
	if err != nil || typ != TypeGaussianBlur {
		t.Errorf("ParseStripType = %v, %v", typ, err)
	}
}

func TestStripType_Classes(t *testing.T) {
	if !TypeImage.HasSource() || TypeColor.HasSource() {
		t.Error("HasSource misclassified")
	}
	if !TypeColor.IsEffect() || !TypeCross.IsEffect() || TypeMeta.IsEffect() {
		t.Error("IsEffect misclassified")
	}
}
