// Package pixel provides the raw RGBA pixel buffer passed between pipeline stages.
//
// A Buffer is 8 bits per channel, row-major, and NOT alpha-premultiplied.
// Buffers are never shared mutably: every handoff is either a fresh buffer or an
// explicit Clone.
package pixel

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
)

// ErrEmpty is returned when a buffer has zero width or height.
var ErrEmpty = errors.New("pixel: empty buffer")

// Buffer is a width x height grid of non-premultiplied RGBA samples.
type Buffer struct {
	img *image.NRGBA
}

// New allocates a fully transparent buffer.
func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// FromImage copies any image into a fresh buffer whose origin is (0,0).
func FromImage(src image.Image) *Buffer {
	b := src.Bounds()
	buf := New(b.Dx(), b.Dy())
	draw.Draw(buf.img, buf.img.Bounds(), src, b.Min, draw.Src)
	return buf
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.img.Rect.Dx() }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.img.Rect.Dy() }

// Empty reports whether the buffer has no pixels.
func (b *Buffer) Empty() bool {
	return b == nil || b.img == nil || b.Width() == 0 || b.Height() == 0
}

// Bounds returns the buffer rectangle.
func (b *Buffer) Bounds() image.Rectangle { return b.img.Rect }

// Image exposes the underlying NRGBA image. The caller must treat it as owned by
// the buffer.
func (b *Buffer) Image() *image.NRGBA { return b.img }

// Pix exposes the raw sample slice (R,G,B,A per pixel).
func (b *Buffer) Pix() []uint8 { return b.img.Pix }

// Stride returns the byte distance between vertically adjacent pixels.
func (b *Buffer) Stride() int { return b.img.Stride }

// At returns the pixel at (x, y).
func (b *Buffer) At(x, y int) color.NRGBA { return b.img.NRGBAAt(x, y) }

// Set writes the pixel at (x, y).
func (b *Buffer) Set(x, y int, c color.NRGBA) { b.img.SetNRGBA(x, y, c) }

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	img := image.NewNRGBA(b.img.Rect)
	copy(img.Pix, b.img.Pix)
	return &Buffer{img: img}
}

// Clear sets every sample to zero (fully transparent black).
func (b *Buffer) Clear() {
	clear(b.img.Pix)
}

// Fill paints every pixel with c.
func (b *Buffer) Fill(c color.NRGBA) {
	pix := b.img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = c.R
		pix[i+1] = c.G
		pix[i+2] = c.B
		pix[i+3] = c.A
	}
}

// Opaque reports whether every pixel has alpha 255.
func (b *Buffer) Opaque() bool {
	pix := b.img.Pix
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0xff {
			return false
		}
	}
	return true
}

// Equal reports whether two buffers have identical dimensions and samples.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.img.Rect.Eq(o.img.Rect) && bytes.Equal(b.img.Pix, o.img.Pix)
}
