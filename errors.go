package seqrender

import "errors"

// Errors reported by media access and strip rendering. None of them cross the
// render boundary: the compositor turns each into a placeholder or an empty
// image and logs the cause.
var (
	// ErrMissingMedia is returned when a strip's file is absent or unreadable.
	ErrMissingMedia = errors.New("seqrender: missing media")

	// ErrDecodeFailure is returned when media exists but cannot be decoded.
	ErrDecodeFailure = errors.New("seqrender: decode failure")

	// ErrRecursion is returned when a scene strip references itself transitively.
	ErrRecursion = errors.New("seqrender: recursive scene reference")

	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("seqrender: invalid dimensions")
)
