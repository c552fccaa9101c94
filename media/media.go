// Package media decodes the source frames of image and movie strips.
//
// The compositor only sees the Decoder interface. FileDecoder is the
// built-in implementation: it reads still images and numbered image
// sequences from disk and keeps a bounded set of open readers so that
// consecutive requests against the same file reuse decoded state.
package media

import (
	"context"
	"strings"

	"github.com/gogpu/seqrender"
)

// Ref identifies one media stream.
type Ref struct {
	// Path is the file path. A path containing a %d verb names a numbered
	// image sequence; the frame index fills the verb.
	Path string
	// Stream selects a stream inside a container. Still images and image
	// sequences have a single stream 0.
	Stream int
}

// IsSequence reports whether the path names a numbered image sequence.
func (r Ref) IsSequence() bool {
	return strings.Contains(r.Path, "%")
}

// RefOf returns the media reference of a source strip. With proxy set and a
// proxy path configured, the proxy file is used.
func RefOf(s *seqrender.Strip, proxy bool) Ref {
	path := s.Media.Path
	if proxy && s.Media.ProxyPath != "" {
		path = s.Media.ProxyPath
	}
	return Ref{Path: path, Stream: s.Media.Stream}
}

// Decoder produces source frames for strips.
type Decoder interface {
	// DecodeSource returns the frame with one reference owned by the caller.
	// Errors wrap seqrender.ErrMissingMedia or seqrender.ErrDecodeFailure.
	DecodeSource(ctx context.Context, ref Ref, frame, view int) (*seqrender.Image, error)
}

// Reader decodes frames of a single stream. Readers are not safe for
// concurrent use; sequential access to nearby frames is the fast path.
type Reader interface {
	ReadFrame(frame int) (*seqrender.Image, error)
	Close() error
}

// Opener opens readers for background jobs that walk a stream in order.
type Opener interface {
	Open(ref Ref) (Reader, error)
}
