// Package render composites the strips of a scene into output frames.
//
// A Compositor renders one frame at a time:
//
//  1. Final cache lookup; a hit returns immediately.
//  2. Gather the strips visible at the frame, sorted by channel.
//  3. Walk the stack top-down, asking each strip's blend handler whether it
//     needs the image beneath it and recording opaque strips as occluders.
//     Strips fully inside a higher occluder are skipped. The walk stops at
//     the first strip that does not need anything beneath it, or at a
//     cached composite.
//  4. Walk back up, blending each remaining strip over the accumulated
//     image and storing the composite in the IntraFrame cache.
//  5. Publish the result to the Final cache.
//
// Strip images come from the IntraFrame cache, then the Source cache, then
// are produced: decoded, generated, computed from effect inputs, or rendered
// from a nested meta timeline or scene. A failed strip never aborts the
// frame; it renders as a placeholder or as nothing.
//
// # Usage
//
//	caches := cache.NewSceneCache(scene, cache.DefaultConfig())
//	comp := render.NewCompositor(scene, caches)
//	img := comp.RenderFrame(ctx, 10)
//	defer img.Release()
package render
