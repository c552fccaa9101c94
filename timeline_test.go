package seqrender

import (
	"slices"
	"testing"
)

func TestTimeline_StripsAt(t *testing.T) {
	a := NewStrip("a", TypeColor, 3, 0, 10)
	b := NewStrip("b", TypeColor, 1, 0, 10)
	c := NewStrip("c", TypeColor, 2, 5, 10)
	muted := NewStrip("m", TypeColor, 4, 0, 10)
	muted.Mute = true
	tl := NewTimeline(a, b, c, muted)

	got := tl.StripsAt(2, 0)
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Fatalf("StripsAt(2) = %v, want [b a]", got)
	}

	got = tl.StripsAt(6, 0)
	if len(got) != 3 || got[0] != b || got[1] != c || got[2] != a {
		t.Fatalf("StripsAt(6) = %v, want [b c a]", got)
	}

	got = tl.StripsAt(6, 2)
	if len(got) != 2 || got[1] != c {
		t.Fatalf("StripsAt(6, 2) = %v, want [b c]", got)
	}
}

func TestTimeline_StripsAtHidesEffectInputs(t *testing.T) {
	src := NewStrip("src", TypeColor, 1, 0, 10)
	fx := NewStrip("blur", TypeGaussianBlur, 2, 0, 10)
	fx.Input1 = src
	tl := NewTimeline(src, fx)

	got := tl.StripsAt(3, 0)
	if len(got) != 1 || got[0] != fx {
		t.Fatalf("StripsAt = %v, want [blur]", got)
	}

	// Input stays visible once the effect is out of range.
	fx.Length = 2
	got = tl.StripsAt(3, 0)
	if len(got) != 1 || got[0] != src {
		t.Fatalf("StripsAt = %v, want [src]", got)
	}
}

func TestTimeline_Dependents(t *testing.T) {
	a := NewStrip("a", TypeColor, 1, 0, 10)
	b := NewStrip("b", TypeColor, 2, 0, 10)
	cross := NewStrip("cross", TypeCross, 3, 0, 10)
	cross.Input1, cross.Input2 = a, b
	blur := NewStrip("blur", TypeGaussianBlur, 4, 0, 10)
	blur.Input1 = cross
	tl := NewTimeline(a, b, cross, blur)

	deps := tl.Dependents(a)
	if len(deps) != 2 || deps[0] != cross || deps[1] != blur {
		t.Errorf("Dependents(a) = %v, want [cross blur]", deps)
	}
	if len(tl.Dependents(blur)) != 0 {
		t.Error("Dependents(blur) should be empty")
	}
}

func TestTimeline_Affected(t *testing.T) {
	a := NewStrip("a", TypeColor, 1, 0, 10)
	innerFx := NewStrip("innerFx", TypeGaussianBlur, 2, 0, 10)
	innerFx.Input1 = a
	meta := NewStrip("meta", TypeMeta, 1, 0, 10)
	meta.Meta = NewTimeline(a, innerFx)
	topFx := NewStrip("topFx", TypeGaussianBlur, 2, 0, 10)
	topFx.Input1 = meta
	other := NewStrip("other", TypeColor, 3, 0, 10)

	x := NewStrip("x", TypeColor, 1, 0, 10)
	sc := NewScene("sc", 8, 8)
	sc.Timeline.Add(x)
	user := NewStrip("user", TypeScene, 4, 0, 10)
	user.Scene = sc

	tl := NewTimeline(meta, topFx, other, user)

	tests := []struct {
		name string
		s    *Strip
		want []*Strip
	}{
		{"meta member", a, []*Strip{innerFx, meta, topFx}},
		{"top level", meta, []*Strip{topFx}},
		{"scene member", x, []*Strip{user}},
		{"unrelated", NewStrip("z", TypeColor, 1, 0, 10), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tl.Affected(tt.s)
			if len(got) != len(tt.want) {
				t.Fatalf("Affected(%s) = %d strips, want %d", tt.s.Name, len(got), len(tt.want))
			}
			for _, w := range tt.want {
				if !slices.Contains(got, w) {
					t.Errorf("Affected(%s) misses %s", tt.s.Name, w.Name)
				}
			}
		})
	}
}

func TestTimeline_AffectedSceneRecursion(t *testing.T) {
	sc := NewScene("sc", 8, 8)
	x := NewStrip("x", TypeColor, 1, 0, 10)
	self := NewStrip("self", TypeScene, 2, 0, 10)
	self.Scene = sc
	sc.Timeline.Add(x, self)

	got := sc.Timeline.Affected(x)
	if len(got) != 0 {
		t.Errorf("Affected(x) = %d strips, want 0", len(got))
	}
	if users := sc.Timeline.Users(sc); len(users) != 1 || users[0] != self {
		t.Errorf("Users(sc) = %v, want [self]", users)
	}
}

func TestTimeline_Users(t *testing.T) {
	sc := NewScene("sc", 8, 8)
	direct := NewStrip("direct", TypeScene, 1, 0, 10)
	direct.Scene = sc
	nested := NewStrip("nested", TypeScene, 1, 0, 10)
	nested.Scene = sc
	meta := NewStrip("meta", TypeMeta, 2, 0, 10)
	meta.Meta = NewTimeline(nested)
	tl := NewTimeline(direct, meta, NewStrip("c", TypeColor, 3, 0, 10))

	users := tl.Users(sc)
	if len(users) != 2 || !slices.Contains(users, direct) || !slices.Contains(users, nested) {
		t.Errorf("Users() = %v, want [direct nested]", users)
	}
	if got := tl.Users(NewScene("other", 8, 8)); len(got) != 0 {
		t.Errorf("Users(other) = %v, want none", got)
	}
}

func TestTimeline_AddRemoveRange(t *testing.T) {
	tl := NewTimeline()
	if s, e := tl.Range(); s != 0 || e != 0 {
		t.Errorf("empty Range() = %d, %d", s, e)
	}
	a := NewStrip("a", TypeColor, 1, 5, 10)
	b := NewStrip("b", TypeColor, 1, 20, 10)
	tl.Add(a, b)
	if s, e := tl.Range(); s != 5 || e != 30 {
		t.Errorf("Range() = %d, %d, want 5, 30", s, e)
	}
	if !tl.Remove(a) || tl.Remove(a) {
		t.Error("Remove should succeed once")
	}
	if tl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tl.Len())
	}
}
