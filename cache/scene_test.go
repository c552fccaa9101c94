package cache

import (
	"testing"

	"github.com/gogpu/seqrender"
)

func newTestScene() (*seqrender.Scene, *seqrender.Strip, *seqrender.Strip, *seqrender.Strip) {
	sc := seqrender.NewScene("main", 8, 8)
	sc.Start, sc.End = 1, 100
	base := seqrender.NewStrip("base", seqrender.TypeColor, 1, 1, 50)
	fx := seqrender.NewStrip("blur", seqrender.TypeGaussianBlur, 2, 1, 50)
	fx.Input1 = base
	top := seqrender.NewStrip("top", seqrender.TypeColor, 3, 60, 20)
	sc.Timeline.Add(base, fx, top)
	return sc, base, fx, top
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxThumbnails != 5000 {
		t.Errorf("MaxThumbnails = %d, want 5000", cfg.MaxThumbnails)
	}
	if !cfg.StoreFinal || cfg.MemoryLimit <= 0 {
		t.Errorf("DefaultConfig() = %+v, want StoreFinal and a memory limit", cfg)
	}
}

func TestSceneCache_EvictionStateGuardNeedsStoreFinal(t *testing.T) {
	sc, _, _, _ := newTestScene()

	tests := []struct {
		storeFinal bool
		want       bool
	}{
		{true, true},
		{false, false},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.StoreFinal = tt.storeFinal
		c := NewSceneCache(sc, cfg)
		c.SetCurrentFrame(10)
		c.SetPrefetchRange(10, 30)

		st := c.EvictionState()
		if st.GuardActive != tt.want {
			t.Errorf("StoreFinal=%v: GuardActive = %v, want %v", tt.storeFinal, st.GuardActive, tt.want)
		}
		if st.LoopStart != 1 || st.LoopEnd != 100 || st.Current != 10 {
			t.Errorf("EvictionState() = %+v", st)
		}
		c.ClearPrefetchRange()
		if c.EvictionState().GuardActive {
			t.Error("ClearPrefetchRange should disable the guard")
		}
	}
}

func TestSceneCache_RecycleFreesUntilUnderLimit(t *testing.T) {
	sc, base, _, _ := newTestScene()
	cfg := DefaultConfig()
	one := testImage().Size()
	cfg.MemoryLimit = 3 * one
	c := NewSceneCache(sc, cfg)
	c.SetCurrentFrame(1)

	for f := 1; f <= 5; f++ {
		img := testImage()
		c.Final.Put(float64(f), 0, 0, img)
		img.Release()
	}
	img := testImage()
	c.Source.Put(base, 1, 0, 0, img)
	img.Release()

	if !c.Full() {
		t.Fatal("Full() = false with 6 entries over a 3 entry limit")
	}
	if !c.Recycle() {
		t.Fatal("Recycle() = false, want true")
	}
	if c.Bytes() > cfg.MemoryLimit {
		t.Errorf("Bytes() = %d, want <= %d", c.Bytes(), cfg.MemoryLimit)
	}
	// The farthest frames go first.
	if c.Final.Has(5, 0, 0) || c.Final.Has(4, 0, 0) {
		t.Error("frames farthest from the playhead should be evicted")
	}
}

func TestSceneCache_RecycleReportsFull(t *testing.T) {
	sc, _, _, _ := newTestScene()
	cfg := DefaultConfig()
	cfg.MemoryLimit = testImage().Size()
	c := NewSceneCache(sc, cfg)
	c.SetCurrentFrame(10)
	c.SetPrefetchRange(10, 20)

	for f := 10; f <= 12; f++ {
		img := testImage()
		c.Final.Put(float64(f), 0, 0, img)
		img.Release()
	}
	if c.Recycle() {
		t.Error("Recycle() = true with only protected entries over the limit")
	}
	if c.Final.Len() != 3 {
		t.Errorf("Final.Len() = %d, want 3", c.Final.Len())
	}
}

func TestSceneCache_RecycleWrappedGuard(t *testing.T) {
	sc, _, _, _ := newTestScene()
	cfg := DefaultConfig()
	cfg.MemoryLimit = testImage().Size()
	c := NewSceneCache(sc, cfg)
	c.SetCurrentFrame(95)
	c.SetPrefetchRange(95, 105)

	for _, f := range []float64{3, 50, 97} {
		img := testImage()
		c.Final.Put(f, 0, 0, img)
		img.Release()
	}
	if c.Recycle() {
		t.Error("Recycle() = true, want false: frame 3 lies in the wrapped window")
	}
	if !c.Final.Has(3, 0, 0) || !c.Final.Has(97, 0, 0) {
		t.Error("guarded frames were evicted")
	}
	if c.Final.Has(50, 0, 0) {
		t.Error("frame 50 is outside the window and should be evicted")
	}
}

func TestSceneCache_InvalidateRaw(t *testing.T) {
	sc, base, fx, top := newTestScene()
	c := NewSceneCache(sc, DefaultConfig())
	c.Intra.SetCurrentFrame(10, 0, 8, 8, seqrender.FormatByte)

	put := func(s *seqrender.Strip, frame float64) {
		img := testImage()
		c.Source.Put(s, frame, 0, 0, img)
		c.Intra.PutPreprocessed(s, img)
		c.Final.Put(frame, 0, 0, img)
		img.Release()
	}
	put(base, 10)
	put(fx, 10)
	put(top, 70)

	c.InvalidateRaw(base)

	if got := c.Source.Get(base, 10, 0, 0); got != nil {
		t.Error("raw frames of the strip should be gone")
	}
	if got := c.Intra.GetPreprocessed(fx); got != nil {
		t.Error("dependent effect should be invalidated")
	}
	if c.Final.Has(10, 0, 0) {
		t.Error("final frames in the strip range should be gone")
	}
	if !c.Final.Has(70, 0, 0) {
		t.Error("final frames outside the strip range should survive")
	}
}

func TestSceneCache_InvalidateMetaMember(t *testing.T) {
	inner := seqrender.NewStrip("inner", seqrender.TypeColor, 3, 0, 10)
	meta := seqrender.NewStrip("meta", seqrender.TypeMeta, 1, 50, 10)
	meta.Meta = seqrender.NewTimeline(inner)
	sc := seqrender.NewScene("main", 8, 8)
	sc.Timeline.Add(meta)
	c := NewSceneCache(sc, DefaultConfig())
	c.Intra.SetCurrentFrame(55, 0, 8, 8, seqrender.FormatByte)

	img := testImage()
	c.Source.Put(inner, 5, 0, 0, img)
	c.Intra.PutComposite(meta, img)
	c.Final.Put(5, 0, 0, img)
	c.Final.Put(55, 0, 0, img)
	img.Release()

	c.InvalidateRaw(inner)

	if got := c.Source.Get(inner, 5, 0, 0); got != nil {
		t.Error("raw frames of the inner strip should be gone")
	}
	if got := c.Intra.GetComposite(meta); got != nil {
		t.Error("composite of the meta strip should be gone")
	}
	if c.Final.Has(55, 0, 0) {
		t.Error("final frames in the meta strip range should be gone")
	}
	if !c.Final.Has(5, 0, 0) {
		t.Error("final frames outside the meta strip range should survive")
	}
}

func TestSceneCache_InvalidateScene(t *testing.T) {
	inner := seqrender.NewScene("inner", 8, 8)
	inner.Timeline.Add(seqrender.NewStrip("fill", seqrender.TypeColor, 1, 0, 100))
	user := seqrender.NewStrip("user", seqrender.TypeScene, 1, 20, 10)
	user.Scene = inner
	sc := seqrender.NewScene("main", 8, 8)
	sc.Timeline.Add(user)
	c := NewSceneCache(sc, DefaultConfig())

	img := testImage()
	c.Final.Put(25, 0, 0, img)
	c.Final.Put(40, 0, 0, img)
	img.Release()

	c.InvalidateScene(inner)
	if c.Final.Has(25, 0, 0) {
		t.Error("frames showing the edited scene should be gone")
	}
	if !c.Final.Has(40, 0, 0) {
		t.Error("frames outside the scene strip should survive")
	}
	c.InvalidateScene(seqrender.NewScene("other", 8, 8))
	if !c.Final.Has(40, 0, 0) {
		t.Error("unrelated scene invalidated frames")
	}
}

func TestSceneCache_InvalidatePreprocessedKeepsRaw(t *testing.T) {
	sc, base, _, _ := newTestScene()
	c := NewSceneCache(sc, DefaultConfig())
	img := testImage()
	c.Source.Put(base, 10, 0, 0, img)
	c.Intra.PutPreprocessed(base, img)
	img.Release()

	c.InvalidatePreprocessed(base)
	got := c.Source.Get(base, 10, 0, 0)
	if got == nil {
		t.Fatal("raw frame should survive")
	}
	got.Release()
	if c.Intra.GetPreprocessed(base) != nil {
		t.Error("preprocessed image should be gone")
	}
}

func TestSceneCache_InvalidateAllReleasesEverything(t *testing.T) {
	sc, base, _, _ := newTestScene()
	c := NewSceneCache(sc, DefaultConfig())
	img := testImage()
	c.Source.Put(base, 1, 0, 0, img)
	c.Intra.PutComposite(base, img)
	c.Final.Put(1, 0, 0, img)
	c.Thumbnails.Put(ThumbnailRequest{Path: "a.png"}, img)
	img.Release()

	c.InvalidateAll()
	if !img.Freed() {
		t.Errorf("Refs() = %d after InvalidateAll, want freed", img.Refs())
	}
	st := c.Stats()
	if st.Source.Len+st.Intra.Len+st.Final.Len+st.Thumbnails.Len != 0 {
		t.Errorf("Stats() = %+v, want empty layers", st)
	}
}
