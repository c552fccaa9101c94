package cache

import (
	"testing"

	"github.com/gogpu/seqrender"
)

func fillIntra(c *IntraFrameCache, strips ...*seqrender.Strip) {
	for _, s := range strips {
		img := testImage()
		c.PutPreprocessed(s, img)
		c.PutComposite(s, img)
		img.Release()
	}
}

func TestIntraFrame_SetCurrentFrameClears(t *testing.T) {
	base := frameTuple{frame: 10, view: 0, width: 64, height: 32, format: seqrender.FormatByte}
	tests := []struct {
		name string
		next frameTuple
	}{
		{"frame", frameTuple{11, 0, 64, 32, seqrender.FormatByte}},
		{"view", frameTuple{10, 1, 64, 32, seqrender.FormatByte}},
		{"width", frameTuple{10, 0, 65, 32, seqrender.FormatByte}},
		{"height", frameTuple{10, 0, 64, 33, seqrender.FormatByte}},
		{"format", frameTuple{10, 0, 64, 32, seqrender.FormatFloat}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewIntraFrameCache()
			c.SetCurrentFrame(base.frame, base.view, base.width, base.height, base.format)
			s := seqrender.NewStrip("a", seqrender.TypeColor, 1, 0, 10)
			fillIntra(c, s)

			if !c.SetCurrentFrame(tt.next.frame, tt.next.view, tt.next.width, tt.next.height, tt.next.format) {
				t.Error("SetCurrentFrame() = false, want true")
			}
			pre, comp := c.Len()
			if pre != 0 || comp != 0 {
				t.Errorf("Len() = (%d, %d), want (0, 0)", pre, comp)
			}
		})
	}
}

func TestIntraFrame_SameTupleKeeps(t *testing.T) {
	c := NewIntraFrameCache()
	c.SetCurrentFrame(10, 0, 64, 32, seqrender.FormatByte)
	s := seqrender.NewStrip("a", seqrender.TypeColor, 1, 0, 10)
	fillIntra(c, s)

	if c.SetCurrentFrame(10, 0, 64, 32, seqrender.FormatByte) {
		t.Error("SetCurrentFrame() with the same tuple = true, want false")
	}
	got := c.GetComposite(s)
	if got == nil {
		t.Fatal("entry lost on identical tuple")
	}
	got.Release()
}

func TestIntraFrame_InvalidateByChannel(t *testing.T) {
	c := NewIntraFrameCache()
	c.SetCurrentFrame(1, 0, 8, 8, seqrender.FormatByte)
	ch1 := seqrender.NewStrip("ch1", seqrender.TypeColor, 1, 0, 10)
	ch2 := seqrender.NewStrip("ch2", seqrender.TypeColor, 2, 0, 10)
	ch2b := seqrender.NewStrip("ch2b", seqrender.TypeColor, 2, 20, 10)
	ch3 := seqrender.NewStrip("ch3", seqrender.TypeColor, 3, 0, 10)
	fillIntra(c, ch1, ch2, ch2b, ch3)

	if n := c.Invalidate(ch2); n != 6 {
		t.Errorf("Invalidate() = %d, want 6", n)
	}
	for _, s := range []*seqrender.Strip{ch2, ch2b, ch3} {
		if c.GetPreprocessed(s) != nil || c.GetComposite(s) != nil {
			t.Errorf("%v should be invalidated", s)
		}
	}
	for _, get := range []func(*seqrender.Strip) *seqrender.Image{c.GetPreprocessed, c.GetComposite} {
		img := get(ch1)
		if img == nil {
			t.Error("lower channel entry should survive")
			continue
		}
		img.Release()
	}
}

func TestIntraFrame_ClearReleases(t *testing.T) {
	c := NewIntraFrameCache()
	s := seqrender.NewStrip("a", seqrender.TypeColor, 1, 0, 10)
	img := testImage()
	c.PutPreprocessed(s, img)
	c.PutComposite(s, img)
	if img.Refs() != 3 {
		t.Fatalf("Refs() = %d, want 3", img.Refs())
	}
	img.Release()
	c.Clear()
	if !img.Freed() {
		t.Error("Clear should free the image")
	}
}
