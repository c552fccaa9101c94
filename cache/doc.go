// Package cache holds the four image cache layers of a scene and the
// eviction heuristic they share.
//
// # Layers
//
//   - SourceCache: decoded source media and generator output, keyed by
//     (strip, source frame index, view) so retimed strips share frames.
//   - IntraFrameCache: per-strip preprocessed and composite images valid
//     only for the current (frame, view, width, height) tuple.
//   - FinalCache: fully composited output keyed by (rounded frame, view,
//     channel shown).
//   - ThumbnailCache: best-effort previews keyed by (path, frame, stream)
//     with a queue of pending decode requests.
//
// # Ownership
//
// Every Put takes its own reference on the image and every removal releases
// it. Get returns a new reference that the caller must Release.
//
// # Thread Safety
//
// Each layer has its own mutex. Get holds it only for the lookup and the
// Acquire, so a thumbnail decode never blocks a Final lookup.
//
// # Eviction
//
// Source and Final entries are evicted by distance from the playhead, not
// by recency: entries behind the playhead score double and entries inside
// the active prefetch window are never evicted (see Score).
package cache
