package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	// Registered still-image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	lru "github.com/hashicorp/golang-lru"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/seqrender"
)

// DefaultOpenReaders is the default number of readers kept open.
const DefaultOpenReaders = 32

// FileDecoder decodes stills and image sequences from the file system.
//
// Thread safety: FileDecoder is safe for concurrent use.
type FileDecoder struct {
	readers *lru.Cache
	fsys    fs.FS

	opened  atomic.Int64
	decoded atomic.Int64
}

// Option configures a FileDecoder.
type Option func(*fileOptions)

type fileOptions struct {
	openReaders int
	fsys        fs.FS
}

// WithOpenReaders sets how many readers stay open between calls.
func WithOpenReaders(n int) Option {
	return func(o *fileOptions) {
		if n > 0 {
			o.openReaders = n
		}
	}
}

// WithFS reads media from fsys instead of the operating system.
func WithFS(fsys fs.FS) Option {
	return func(o *fileOptions) {
		o.fsys = fsys
	}
}

// NewFileDecoder creates a decoder.
func NewFileDecoder(opts ...Option) (*FileDecoder, error) {
	o := fileOptions{openReaders: DefaultOpenReaders}
	for _, opt := range opts {
		opt(&o)
	}
	readers, err := lru.NewWithEvict(o.openReaders, func(key, value interface{}) {
		if r, ok := value.(*fileReader); ok {
			_ = r.Close()
			seqrender.Logger().Debug("media: reader closed", "path", key.(Ref).Path)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("media: reader cache: %w", err)
	}
	return &FileDecoder{readers: readers, fsys: o.fsys}, nil
}

// DecodeSource implements Decoder. The view id is not used by file media.
func (d *FileDecoder) DecodeSource(ctx context.Context, ref Ref, frame, _ int) (*seqrender.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.reader(ref).ReadFrame(frame)
}

// Open implements Opener. The returned reader is private to the caller and
// must be closed.
func (d *FileDecoder) Open(ref Ref) (Reader, error) {
	d.opened.Add(1)
	return newFileReader(d, ref), nil
}

func (d *FileDecoder) reader(ref Ref) *fileReader {
	if v, ok := d.readers.Get(ref); ok {
		return v.(*fileReader)
	}
	r := newFileReader(d, ref)
	if prev, ok, _ := d.readers.PeekOrAdd(ref, r); ok {
		return prev.(*fileReader)
	}
	d.opened.Add(1)
	return r
}

// Invalidate drops the open reader of ref so the next decode rereads the file.
func (d *FileDecoder) Invalidate(ref Ref) {
	d.readers.Remove(ref)
}

// Close closes all open readers.
func (d *FileDecoder) Close() error {
	d.readers.Purge()
	return nil
}

// Stats returns how many readers were opened and how many files decoded.
func (d *FileDecoder) Stats() (opened, decoded int64) {
	return d.opened.Load(), d.decoded.Load()
}

func (d *FileDecoder) open(path string) (fs.File, error) {
	if d.fsys != nil {
		return d.fsys.Open(path)
	}
	return os.Open(path)
}

// fileReader keeps the last decoded file so repeated reads of a still image,
// or of the same sequence frame, skip decoding.
type fileReader struct {
	d   *FileDecoder
	ref Ref

	mu       sync.Mutex
	lastPath string
	last     *seqrender.Image
}

func newFileReader(d *FileDecoder, ref Ref) *fileReader {
	return &fileReader{d: d, ref: ref}
}

func (r *fileReader) path(frame int) string {
	if r.ref.IsSequence() {
		return fmt.Sprintf(r.ref.Path, frame)
	}
	return r.ref.Path
}

// ReadFrame implements Reader.
func (r *fileReader) ReadFrame(frame int) (*seqrender.Image, error) {
	path := r.path(frame)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != nil && r.lastPath == path {
		return r.last.Acquire(), nil
	}

	img, err := r.decode(path)
	if err != nil {
		return nil, err
	}
	if r.last != nil {
		r.last.Release()
	}
	r.last, r.lastPath = img.Acquire(), path
	return img, nil
}

func (r *fileReader) decode(path string) (*seqrender.Image, error) {
	f, err := r.d.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", seqrender.ErrMissingMedia, path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", seqrender.ErrDecodeFailure, path, err)
	}
	img := seqrender.FromImage(src)
	if img == nil {
		return nil, fmt.Errorf("%w: %s: %w", seqrender.ErrDecodeFailure, path, seqrender.ErrInvalidDimensions)
	}
	r.d.decoded.Add(1)
	return img, nil
}

// Close implements Reader.
func (r *fileReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != nil {
		r.last.Release()
		r.last = nil
		r.lastPath = ""
	}
	return nil
}

// IsMissing reports whether err means the media could not be found.
func IsMissing(err error) bool {
	return errors.Is(err, seqrender.ErrMissingMedia)
}
