package seqrender

import (
	"fmt"
	"image"
	"image/color"
	"sync/atomic"
)

// Format is the pixel representation of an Image. Both formats carry four
// premultiplied channels (RGBA).
type Format uint8

const (
	// FormatByte stores 8-bit premultiplied RGBA, 4 bytes per pixel.
	FormatByte Format = iota

	// FormatFloat stores float32 premultiplied RGBA, 16 bytes per pixel.
	FormatFloat
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatByte:
		return "byte"
	case FormatFloat:
		return "float"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// BytesPerPixel returns the storage size of one pixel.
func (f Format) BytesPerPixel() int {
	if f == FormatFloat {
		return 16
	}
	return 4
}

// Channels is the channel count of every Image.
const Channels = 4

// Image is a reference-counted RGBA pixel buffer.
//
// A new Image starts with one reference owned by its creator. Every holder
// that keeps the image (a cache layer, the render stack, a consumer) takes
// its own reference with Acquire and drops it with Release; the pixels are
// freed when the last reference goes away.
//
// Thread safety: the reference count is atomic. Pixel data is immutable once
// an Image has been published to a cache; code that needs different pixels
// makes a new Image (see Clone).
type Image struct {
	width  int
	height int
	format Format

	bytes  []uint8
	floats []float32

	refs  atomic.Int32
	freed atomic.Bool
	pool  *Pool
}

// NewImage allocates a zeroed (transparent) image with one reference.
// It returns nil for non-positive dimensions.
func NewImage(width, height int, format Format) *Image {
	if width <= 0 || height <= 0 {
		return nil
	}
	img := &Image{width: width, height: height, format: format}
	if format == FormatFloat {
		img.floats = make([]float32, width*height*Channels)
	} else {
		img.bytes = make([]uint8, width*height*Channels)
	}
	img.refs.Store(1)
	return img
}

// FromImage converts any image.Image into a byte Image with one reference.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy(), FormatByte)
	if img == nil {
		return nil
	}
	if rgba, ok := src.(*image.RGBA); ok {
		for y := 0; y < img.height; y++ {
			row := rgba.Pix[(y+b.Min.Y-rgba.Rect.Min.Y)*rgba.Stride+(b.Min.X-rgba.Rect.Min.X)*4:]
			copy(img.bytes[y*img.width*4:(y+1)*img.width*4], row[:img.width*4])
		}
		return img
	}
	for y := 0; y < img.height; y++ {
		for x := 0; x < img.width; x++ {
			r, g, bl, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*img.width + x) * 4
			img.bytes[i+0] = uint8(r >> 8)
			img.bytes[i+1] = uint8(g >> 8)
			img.bytes[i+2] = uint8(bl >> 8)
			img.bytes[i+3] = uint8(a >> 8)
		}
	}
	return img
}

// Width returns the width in pixels.
func (img *Image) Width() int { return img.width }

// Height returns the height in pixels.
func (img *Image) Height() int { return img.height }

// Format returns the pixel representation.
func (img *Image) Format() Format { return img.format }

// Bytes returns the RGBA8 pixel data of a byte image, nil otherwise.
func (img *Image) Bytes() []uint8 { return img.bytes }

// Floats returns the float32 pixel data of a float image, nil otherwise.
func (img *Image) Floats() []float32 { return img.floats }

// Size returns the pixel storage size in bytes.
func (img *Image) Size() int64 {
	return int64(img.width) * int64(img.height) * int64(img.format.BytesPerPixel())
}

// Acquire takes an additional reference and returns img for chaining.
// Acquire on a nil image is a no-op returning nil.
func (img *Image) Acquire() *Image {
	if img == nil {
		return nil
	}
	if img.refs.Add(1) <= 1 {
		panic("seqrender: acquire on released image")
	}
	return img
}

// Release drops one reference. The last release frees the pixel storage
// exactly once, handing the buffer back to the pool it came from.
// Release on a nil image is a no-op.
func (img *Image) Release() {
	if img == nil {
		return
	}
	n := img.refs.Add(-1)
	if n < 0 {
		panic("seqrender: image released more times than acquired")
	}
	if n > 0 {
		return
	}
	if !img.freed.CompareAndSwap(false, true) {
		return
	}
	if img.pool != nil {
		img.pool.put(img)
	}
	img.bytes = nil
	img.floats = nil
}

// Refs returns the current reference count.
func (img *Image) Refs() int32 { return img.refs.Load() }

// Freed reports whether the pixel storage has been released.
func (img *Image) Freed() bool { return img.freed.Load() }

// Clone returns a deep copy with one reference, in the same format.
func (img *Image) Clone() *Image {
	out := img.pool.Get(img.width, img.height, img.format)
	copy(out.bytes, img.bytes)
	copy(out.floats, img.floats)
	return out
}

// Pixel returns the premultiplied color at index i (y*width + x) as floats in [0, 1].
func (img *Image) Pixel(i int) [4]float32 {
	if img.format == FormatFloat {
		p := img.floats[i*4 : i*4+4 : i*4+4]
		return [4]float32{p[0], p[1], p[2], p[3]}
	}
	p := img.bytes[i*4 : i*4+4 : i*4+4]
	return [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

// SetPixel stores a premultiplied color at index i. Byte images clamp to [0, 1].
func (img *Image) SetPixel(i int, c [4]float32) {
	if img.format == FormatFloat {
		copy(img.floats[i*4:i*4+4], c[:])
		return
	}
	p := img.bytes[i*4 : i*4+4 : i*4+4]
	p[0] = unitToByte(c[0])
	p[1] = unitToByte(c[1])
	p[2] = unitToByte(c[2])
	p[3] = unitToByte(c[3])
}

// Fill sets every pixel to the premultiplied color c.
func (img *Image) Fill(c [4]float32) {
	if img.format == FormatFloat {
		for i := 0; i < len(img.floats); i += 4 {
			copy(img.floats[i:i+4], c[:])
		}
		return
	}
	r, g, b, a := unitToByte(c[0]), unitToByte(c[1]), unitToByte(c[2]), unitToByte(c[3])
	for i := 0; i < len(img.bytes); i += 4 {
		img.bytes[i+0] = r
		img.bytes[i+1] = g
		img.bytes[i+2] = b
		img.bytes[i+3] = a
	}
}

// IsOpaque reports whether every pixel has full alpha.
func (img *Image) IsOpaque() bool {
	if img.format == FormatFloat {
		for i := 3; i < len(img.floats); i += 4 {
			if img.floats[i] < 1 {
				return false
			}
		}
		return true
	}
	for i := 3; i < len(img.bytes); i += 4 {
		if img.bytes[i] != 255 {
			return false
		}
	}
	return true
}

// ToFloat returns a float copy of a byte image, or a new reference to img
// when it already is float.
func (img *Image) ToFloat() *Image {
	if img.format == FormatFloat {
		return img.Acquire()
	}
	out := img.pool.Get(img.width, img.height, FormatFloat)
	for i, v := range img.bytes {
		out.floats[i] = float32(v) / 255
	}
	return out
}

// ToByte returns a byte copy of a float image, or a new reference to img
// when it already is byte.
func (img *Image) ToByte() *Image {
	if img.format == FormatByte {
		return img.Acquire()
	}
	out := img.pool.Get(img.width, img.height, FormatByte)
	for i, v := range img.floats {
		out.bytes[i] = unitToByte(v)
	}
	return out
}

// RGBA returns an *image.RGBA sharing the pixels of a byte image.
// The view is only valid while the caller holds a reference. For float
// images it returns a converted copy.
func (img *Image) RGBA() *image.RGBA {
	rect := image.Rect(0, 0, img.width, img.height)
	if img.format == FormatByte {
		return &image.RGBA{Pix: img.bytes, Stride: img.width * 4, Rect: rect}
	}
	out := image.NewRGBA(rect)
	for i, v := range img.floats {
		out.Pix[i] = unitToByte(v)
	}
	return out
}

// At implements image.Image.
func (img *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= img.width || y >= img.height {
		return color.RGBA{}
	}
	c := img.Pixel(y*img.width + x)
	return color.RGBA{R: unitToByte(c[0]), G: unitToByte(c[1]), B: unitToByte(c[2]), A: unitToByte(c[3])}
}

// Bounds implements image.Image.
func (img *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.width, img.height)
}

// ColorModel implements image.Image.
func (img *Image) ColorModel() color.Model {
	return color.RGBAModel
}

func unitToByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
