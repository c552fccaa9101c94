package cache

import "math"

// EvictionState is the playback state the eviction heuristic scores against.
type EvictionState struct {
	// Current is the playhead frame.
	Current float64
	// GuardStart and GuardEnd bound the active prefetch window. GuardEnd may
	// lie past LoopEnd, in which case the window continues at LoopStart.
	GuardStart, GuardEnd float64
	// GuardActive enables the prefetch window protection.
	GuardActive bool
	// LoopStart and LoopEnd are the scene's playback range.
	LoopStart, LoopEnd float64
}

// InGuard reports whether frame lies inside the prefetch window.
func (st EvictionState) InGuard(frame float64) bool {
	if !st.GuardActive {
		return false
	}
	if frame >= st.GuardStart && frame <= st.GuardEnd {
		return true
	}
	if st.GuardEnd > st.LoopEnd {
		wrapped := st.LoopStart + (st.GuardEnd - st.LoopEnd) - 1
		return frame >= st.LoopStart && frame <= wrapped
	}
	return false
}

// Score rates an entry for eviction. Protected entries (inside the prefetch
// window) report ok = false. The score is the distance to the playhead,
// doubled for frames behind it.
func Score(frame float64, st EvictionState) (score float64, ok bool) {
	if st.InGuard(frame) {
		return 0, false
	}
	d := math.Abs(frame - st.Current)
	if frame < st.Current {
		d *= 2
	}
	return d, true
}

// victim tracks the best eviction candidate of a scan. Entries at the
// playhead score zero and are never picked.
type victim[K comparable] struct {
	key   K
	score float64
	found bool
}

func (v *victim[K]) offer(key K, frame float64, st EvictionState) {
	if s, ok := Score(frame, st); ok && s > v.score {
		v.key, v.score, v.found = key, s, true
	}
}
