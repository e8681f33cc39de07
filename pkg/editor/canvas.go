package editor

import (
	"image/color"

	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

// Reference output size, matching the frame artwork.
const (
	DefaultWidth  = 1396
	DefaultHeight = 1006
)

// Black is the background painted before anything else is drawn.
var Black = color.NRGBA{A: 0xff}

// Canvas is the fixed-size output surface. Its size never changes after
// creation, so fit-scale calculations stay valid for the whole session.
type Canvas struct {
	buf *pixel.Buffer
}

// NewCanvas allocates a transparent canvas.
func NewCanvas(width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidCanvas
	}
	return &Canvas{buf: pixel.New(width, height)}, nil
}

// Width returns the canvas width.
func (c *Canvas) Width() int { return c.buf.Width() }

// Height returns the canvas height.
func (c *Canvas) Height() int { return c.buf.Height() }

// Buffer exposes the backing pixels to the pipeline stages.
func (c *Canvas) Buffer() *pixel.Buffer { return c.buf }

// Clear makes every pixel fully transparent.
func (c *Canvas) Clear() { c.buf.Clear() }

// Fill paints the whole canvas.
func (c *Canvas) Fill(col color.NRGBA) { c.buf.Fill(col) }

// Snapshot returns an independent copy of the current pixels.
func (c *Canvas) Snapshot() *pixel.Buffer { return c.buf.Clone() }
