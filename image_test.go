package seqrender

import (
	"image"
	"image/color"
	"sync"
	"testing"
)

func TestNewImage(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		format Format
		size   int64
	}{
		{"byte", 4, 3, FormatByte, 4 * 3 * 4},
		{"float", 4, 3, FormatFloat, 4 * 3 * 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewImage(tt.w, tt.h, tt.format)
			if img.Refs() != 1 {
				t.Errorf("Refs() = %d, want 1", img.Refs())
			}
			if img.Size() != tt.size {
				t.Errorf("Size() = %d, want %d", img.Size(), tt.size)
			}
			if img.Format() != tt.format {
				t.Errorf("Format() = %v, want %v", img.Format(), tt.format)
			}
		})
	}

	if NewImage(0, 5, FormatByte) != nil {
		t.Error("NewImage with zero width should return nil")
	}
}

func TestImage_RefcountFreesOnce(t *testing.T) {
	pool := NewPool(4)
	img := pool.Get(8, 8, FormatByte)

	img.Acquire()
	img.Acquire()
	if img.Refs() != 3 {
		t.Fatalf("Refs() = %d, want 3", img.Refs())
	}

	img.Release()
	img.Release()
	if img.Freed() {
		t.Fatal("image freed while a reference is outstanding")
	}
	img.Release()
	if !img.Freed() {
		t.Fatal("image should be freed after the last release")
	}
	if img.Bytes() != nil {
		t.Error("pixel storage should be dropped after free")
	}
	if got := pool.Stats().Idle; got != 1 {
		t.Errorf("pool idle = %d, want 1 (buffer returned exactly once)", got)
	}
}

func TestImage_ReleaseUnderflowPanics(t *testing.T) {
	img := NewImage(2, 2, FormatByte)
	img.Release()

	defer func() {
		if recover() == nil {
			t.Error("extra Release should panic")
		}
	}()
	img.Release()
}

func TestImage_ConcurrentRefcount(t *testing.T) {
	pool := NewPool(0)
	img := pool.Get(16, 16, FormatFloat)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		img.Acquire()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = img.Pixel(0)
			img.Release()
		}()
	}
	wg.Wait()

	if img.Refs() != 1 || img.Freed() {
		t.Fatalf("Refs() = %d freed=%v, want 1 and not freed", img.Refs(), img.Freed())
	}
	img.Release()
	if pool.Stats().Idle != 1 {
		t.Errorf("pool idle = %d, want 1", pool.Stats().Idle)
	}
}

func TestPool_Reuse(t *testing.T) {
	pool := NewPool(2)
	a := pool.Get(4, 4, FormatByte)
	a.Fill([4]float32{1, 1, 1, 1})
	a.Release()

	b := pool.Get(4, 4, FormatByte)
	defer b.Release()
	if pool.Stats().Reuses != 1 {
		t.Errorf("Reuses = %d, want 1", pool.Stats().Reuses)
	}
	if b.Pixel(0) != [4]float32{} {
		t.Errorf("reused buffer not cleared: %v", b.Pixel(0))
	}
}

func TestImage_FormatConversion(t *testing.T) {
	img := NewImage(2, 1, FormatByte)
	defer img.Release()
	img.Fill([4]float32{1, 0.5, 0, 1})

	f := img.ToFloat()
	defer f.Release()
	if f.Format() != FormatFloat {
		t.Fatalf("ToFloat format = %v", f.Format())
	}
	if c := f.Pixel(1); c[0] != 1 || c[3] != 1 {
		t.Errorf("float pixel = %v", c)
	}

	same := f.ToFloat()
	if same != f {
		t.Error("ToFloat on a float image should return the same image")
	}
	same.Release()

	b := f.ToByte()
	defer b.Release()
	if got := b.Bytes()[1]; got != 128 {
		t.Errorf("green = %d, want 128", got)
	}
}

func TestImage_IsOpaque(t *testing.T) {
	img := NewImage(3, 3, FormatByte)
	defer img.Release()
	if img.IsOpaque() {
		t.Error("zeroed image should not be opaque")
	}
	img.Fill([4]float32{0, 0, 0, 1})
	if !img.IsOpaque() {
		t.Error("filled image should be opaque")
	}
}

func TestFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Set(1, 1, color.NRGBA{R: 255, A: 255})

	img := FromImage(src)
	defer img.Release()
	if img.Width() != 2 || img.Height() != 2 {
		t.Fatalf("size = %dx%d", img.Width(), img.Height())
	}
	if c := img.Pixel(3); c[0] != 1 || c[3] != 1 {
		t.Errorf("pixel = %v, want opaque red", c)
	}
	rgba := img.RGBA()
	if &rgba.Pix[0] != &img.Bytes()[0] {
		t.Error("RGBA view of a byte image should share pixels")
	}
}
