package seqrender

import (
	"math"
	"testing"
)

func TestScreenQuad_FullFrame(t *testing.T) {
	s := NewStrip("s", TypeColor, 1, 0, 10)
	q := ScreenQuad(s, 100, 50)
	want := RectQuad(100, 50)
	for i := range q {
		if math.Abs(q[i].X-want[i].X) > 1e-9 || math.Abs(q[i].Y-want[i].Y) > 1e-9 {
			t.Fatalf("corner %d = %v, want %v", i, q[i], want[i])
		}
	}
	if !q.CoversRect(100, 50) {
		t.Error("untransformed strip should cover the frame")
	}
}

func TestQuad_Contains(t *testing.T) {
	big := NewStrip("big", TypeColor, 2, 0, 10)
	small := NewStrip("small", TypeColor, 1, 0, 10)
	small.Transform.ScaleX, small.Transform.ScaleY = 0.5, 0.5

	bq := ScreenQuad(big, 100, 100)
	sq := ScreenQuad(small, 100, 100)

	if !bq.Contains(sq) {
		t.Error("full frame quad should contain the half-size quad")
	}
	if sq.Contains(bq) {
		t.Error("half-size quad should not contain the full frame")
	}
	if !bq.Contains(bq) {
		t.Error("a quad should contain itself")
	}
}

func TestQuad_Transforms(t *testing.T) {
	tests := []struct {
		name   string
		tr     Transform
		crop   Crop
		covers bool
	}{
		{"identity", Transform{}, Crop{}, true},
		{"offset", Transform{OffsetX: 10}, Crop{}, false},
		{"cropped", Transform{}, Crop{Left: 1}, false},
		{"upscaled", Transform{ScaleX: 2, ScaleY: 2}, Crop{}, true},
		{"rotated", Transform{Rotation: math.Pi / 4}, Crop{}, false},
		{"rotated upscaled", Transform{Rotation: math.Pi / 4, ScaleX: 2, ScaleY: 2}, Crop{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStrip("s", TypeImage, 1, 0, 10)
			s.Transform = tt.tr
			s.Crop = tt.crop
			if got := ScreenQuad(s, 64, 64).CoversRect(64, 64); got != tt.covers {
				t.Errorf("CoversRect = %v, want %v", got, tt.covers)
			}
		})
	}
}

func TestQuad_EmptyContainsNothing(t *testing.T) {
	s := NewStrip("s", TypeImage, 1, 0, 10)
	s.Crop = Crop{Left: 40, Right: 40}
	q := ScreenQuad(s, 64, 64)
	if !q.IsEmpty() {
		t.Fatalf("fully cropped quad area = %v, want 0", q.Area())
	}
	if q.Contains(Quad{}) {
		t.Error("empty quad should contain nothing")
	}
}

func TestStripMatrix_MediaSize(t *testing.T) {
	s := NewStrip("s", TypeImage, 1, 0, 10)
	s.Media.Width, s.Media.Height = 50, 50
	m := StripMatrix(s, 50, 50, 100, 100)
	p := m.TransformPoint(Point{0, 0})
	if p.X != 25 || p.Y != 25 {
		t.Errorf("top-left = %v, want (25, 25)", p)
	}
}
