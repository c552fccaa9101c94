package seqrender

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled returns false, so the compositor's
// per-strip debug calls cost one atomic load when logging is off.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while the prefetch and thumbnail workers log.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger installs the logger shared by the compositor, the cache layers
// and the background jobs. Nothing is logged until it is called.
//
// SetLogger is safe for concurrent use, including while prefetch or
// thumbnail goroutines are running. Pass nil to silence logging again.
//
// Messages are prefixed with the subsystem that emits them ("cache:",
// "render:", "prefetch:", "thumbnail:", "media:", "text:"). Levels:
//   - [slog.LevelDebug]: per-frame detail. Final cache hits, occluded
//     strips, evictions, invalidated strips and frame ranges, reader
//     handles closed by the media LRU.
//   - [slog.LevelInfo]: one record when a prefetch or thumbnail run starts
//     and one when it finishes. Both carry a "run" attribute holding a
//     UUID.
//   - [slog.LevelWarn]: input that could not be rendered as asked, such as
//     missing or undecodable media (thumbnails included), a failed proxy,
//     an unknown effect type, scene recursion, an unusable font or an
//     invalid output size.
//
// Example:
//
//	seqrender.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the logger installed by SetLogger. Sub-packages call it on
// every use; prefetch and thumbnail runs take it once when they start.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
