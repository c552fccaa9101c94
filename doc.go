// Package seqrender is a timeline frame compositor with a four-layer image cache.
//
// # Overview
//
// Given a timeline position and a set of overlapping strips organised in
// channels, seqrender produces the single composited image for that instant,
// reusing previously computed work across interactive scrubbing, playback and
// background prefetching.
//
// # Architecture
//
// The module is organised into:
//   - seqrender (this package): Image, Pool, the Strip/Timeline/Scene model,
//     screen quad geometry, errors and the shared logger
//   - effect: the effect handler contract and the built-in blend modes,
//     transitions and generators
//   - modifier: the post-render modifier stack
//   - media: source decoding and thumbnail readers
//   - cache: the Source, IntraFrame, Final and Thumbnail layers, their
//     eviction policy and the per-scene SceneCache that owns them
//   - render: the frame compositor
//   - prefetch: background rendering ahead of the playhead
//   - thumbnail: background thumbnail decoding
//
// # Quick Start
//
//	scene := seqrender.NewScene("main", 1920, 1080)
//	bg := seqrender.NewStrip("bg", seqrender.TypeColor, 1, 1, 100)
//	bg.Color = [4]float32{0.1, 0.2, 0.3, 1}
//	scene.Timeline.Add(bg)
//
//	caches := cache.NewSceneCache(scene, cache.DefaultConfig())
//	comp := render.NewCompositor(scene, caches)
//	img := comp.RenderFrame(ctx, 10)
//	defer img.Release()
//
// # Ownership
//
// Images are reference counted. Every function returning an *Image hands the
// caller one reference, which the caller must Release.
package seqrender
