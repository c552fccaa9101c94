package seqrender

import (
	"slices"
	"sync"
)

// Timeline is an ordered collection of strips.
//
// Thread safety: Timeline is safe for concurrent use. Editing calls (Add,
// Remove) may run while the prefetch worker queries strips.
type Timeline struct {
	mu     sync.RWMutex
	strips []*Strip
}

// NewTimeline creates a timeline holding the given strips.
func NewTimeline(strips ...*Strip) *Timeline {
	return &Timeline{strips: slices.Clone(strips)}
}

// Add appends strips to the timeline.
func (t *Timeline) Add(strips ...*Strip) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strips = append(t.strips, strips...)
}

// Remove deletes a strip. It returns false if the strip was not present.
// Callers must also drop the strip from the scene cache.
func (t *Timeline) Remove(s *Strip) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.Index(t.strips, s)
	if i < 0 {
		return false
	}
	t.strips = slices.Delete(t.strips, i, i+1)
	return true
}

// Strips returns a snapshot of all strips.
func (t *Timeline) Strips() []*Strip {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.strips)
}

// Len returns the number of strips.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strips)
}

// StripsAt returns the strips rendered at the timeline frame, sorted by
// channel ascending. Muted strips are skipped, and so are strips consumed as
// inputs of another effect strip rendered at the same frame: the effect
// renders them. A positive channelShown limits the result to channels up to
// and including it.
func (t *Timeline) StripsAt(frame float64, channelShown int) []*Strip {
	t.mu.RLock()
	var visible []*Strip
	for _, s := range t.strips {
		if !s.IsVisibleAt(frame) {
			continue
		}
		if channelShown > 0 && s.Channel > channelShown {
			continue
		}
		visible = append(visible, s)
	}
	t.mu.RUnlock()

	inputs := make(map[*Strip]bool)
	for _, s := range visible {
		if !s.Type.IsEffect() {
			continue
		}
		for _, in := range s.Inputs() {
			inputs[in] = true
		}
	}
	out := visible[:0]
	for _, s := range visible {
		if !inputs[s] {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b *Strip) int { return a.Channel - b.Channel })
	return out
}

// Dependents returns every effect strip that uses s as an input, directly
// or through other effects.
func (t *Timeline) Dependents(s *Strip) []*Strip {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var deps []*Strip
	seen := map[*Strip]bool{s: true}
	queue := []*Strip{s}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range t.strips {
			if seen[c] {
				continue
			}
			if c.Input1 == cur || c.Input2 == cur || c.Input3 == cur {
				seen[c] = true
				deps = append(deps, c)
				queue = append(queue, c)
			}
		}
	}
	return deps
}

// Affected returns the strips whose output changes when s changes: the
// dependents of s and, when s sits in a nested timeline, every meta or scene
// strip containing it together with their own dependents. s itself is not
// included.
func (t *Timeline) Affected(s *Strip) []*Strip {
	var out []*Strip
	t.affected(s, &out, map[*Timeline]bool{})
	return compactStrips(out, s)
}

// affected appends the strips of t and its nested timelines that depend on s
// and reports whether s was found.
func (t *Timeline) affected(s *Strip, out *[]*Strip, visiting map[*Timeline]bool) bool {
	if t == nil || visiting[t] {
		return false
	}
	visiting[t] = true
	defer delete(visiting, t)

	var changed []*Strip
	for _, c := range t.Strips() {
		if c == s {
			changed = append(changed, c)
			continue
		}
		if c.nested().affected(s, out, visiting) {
			changed = append(changed, c)
			*out = append(*out, c)
		}
	}
	for _, c := range changed {
		*out = append(*out, t.Dependents(c)...)
	}
	return len(changed) > 0
}

// Users returns the scene strips rendering sc, in t or any timeline nested
// in it.
func (t *Timeline) Users(sc *Scene) []*Strip {
	var out []*Strip
	t.users(sc, &out, map[*Timeline]bool{})
	return compactStrips(out, nil)
}

func (t *Timeline) users(sc *Scene, out *[]*Strip, visiting map[*Timeline]bool) {
	if t == nil || visiting[t] {
		return
	}
	visiting[t] = true
	defer delete(visiting, t)

	for _, c := range t.Strips() {
		if c.Type == TypeScene && c.Scene == sc {
			*out = append(*out, c)
		}
		c.nested().users(sc, out, visiting)
	}
}

// nested returns the timeline a meta or scene strip renders, or nil.
func (s *Strip) nested() *Timeline {
	switch {
	case s.Type == TypeMeta:
		return s.Meta
	case s.Type == TypeScene && s.Scene != nil:
		return s.Scene.Timeline
	}
	return nil
}

// compactStrips drops skip and repeated strips, keeping the first occurrence.
func compactStrips(strips []*Strip, skip *Strip) []*Strip {
	seen := map[*Strip]bool{skip: true}
	out := strips[:0]
	for _, s := range strips {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Range returns the first visible frame and the frame after the last one.
func (t *Timeline) Range() (int, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.strips) == 0 {
		return 0, 0
	}
	start, end := t.strips[0].Left(), t.strips[0].Right()
	for _, s := range t.strips[1:] {
		start = min(start, s.Left())
		end = max(end, s.Right())
	}
	return start, end
}

// Scene is a timeline with an output format and a playback range.
type Scene struct {
	Name     string
	Timeline *Timeline

	// Start and End bound playback, inclusive.
	Start, End int

	Width, Height int
	FPS           float64
}

// NewScene creates a scene rendering at the given size.
func NewScene(name string, width, height int) *Scene {
	return &Scene{
		Name:     name,
		Timeline: NewTimeline(),
		Start:    1,
		End:      250,
		Width:    width,
		Height:   height,
		FPS:      25,
	}
}

// Contains reports whether the frame lies in the playback range.
func (sc *Scene) Contains(frame int) bool {
	return frame >= sc.Start && frame <= sc.End
}
