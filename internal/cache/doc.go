// Package cache provides a small generic memo with a soft size limit.
//
// It holds cheap derived values (shaped text widths and the like) that are
// expensive to recompute but need no reference counting. Image data is
// cached by the top-level cache package instead.
//
//	c := cache.New[string, float64](256)
//	w := c.GetOrCreate("hello", measure)
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
