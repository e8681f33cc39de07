// Package editor turns a captured pixel buffer into the final booth picture:
// geometric placement, tone adjustment and frame overlay on a fixed-size canvas.
package editor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"golang.org/x/image/draw"

	"github.com/teslashibe/go-photobooth/internal/log"
	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

// OverlayResolver resolves a frame id to its decoded overlay image.
type OverlayResolver interface {
	Resolve(ctx context.Context, id string) (image.Image, error)
}

// Composition is the result of one compose cycle.
type Composition struct {
	// Seq orders compositions within a session. Zero outside a session.
	Seq uint64

	Canvas    *pixel.Buffer // independent copy of the canvas
	Placement Placement
	FrameID   string
	Controls  Controls

	// Warnings holds non-fatal problems such as an unknown frame id.
	Warnings []error
}

// Overlaid reports whether a frame overlay was drawn.
func (c *Composition) Overlaid() bool {
	return c.FrameID != "" && len(c.Warnings) == 0
}

// Compositor owns the canvas and runs the compose sequence on it. Calls are
// serialised: the canvas has exactly one writer at a time.
type Compositor struct {
	mu     sync.Mutex
	canvas *Canvas

	engine     TransformEngine
	tone       ToneAdjuster
	overlays   OverlayResolver
	background color.NRGBA
	logger     *slog.Logger
}

// CompositorOption configures a Compositor.
type CompositorOption func(*Compositor)

// WithOverlays sets the frame overlay resolver.
func WithOverlays(r OverlayResolver) CompositorOption {
	return func(c *Compositor) { c.overlays = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CompositorOption {
	return func(c *Compositor) { c.logger = log.Component(l, "editor.compositor") }
}

// WithBackground overrides the black background. The colour is forced opaque.
func WithBackground(col color.NRGBA) CompositorOption {
	return func(c *Compositor) {
		col.A = 0xff
		c.background = col
	}
}

// WithInterpolator overrides the resampling kernel of the transform engine.
func WithInterpolator(t draw.Transformer) CompositorOption {
	return func(c *Compositor) { c.engine.Interpolator = t }
}

// NewCompositor creates a compositor with a width x height canvas.
func NewCompositor(width, height int, opts ...CompositorOption) (*Compositor, error) {
	canvas, err := NewCanvas(width, height)
	if err != nil {
		return nil, err
	}
	c := &Compositor{
		canvas:     canvas,
		background: Black,
		logger:     log.Component(nil, "editor.compositor"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Size returns the canvas dimensions.
func (c *Compositor) Size() (width, height int) {
	return c.canvas.Width(), c.canvas.Height()
}

// Compose renders src onto the canvas from scratch:
//
//  1. clear to transparent
//  2. fill opaque background
//  3. place the source (zoom/rotate about the canvas centre)
//  4. tone-adjust the whole canvas, background included
//  5. draw the frame overlay stretched to the canvas, if frameID is set
//
// Invalid controls, an empty source or a cancelled context fail before step 1,
// leaving the canvas untouched. An unresolvable frame is recorded as a warning
// and the composition completes without the overlay. Identical arguments give
// byte-identical canvases.
func (c *Compositor) Compose(ctx context.Context, src *pixel.Buffer, frameID string, controls Controls) (*Composition, error) {
	if err := controls.Validate(); err != nil {
		return nil, err
	}
	if src.Empty() {
		return nil, ErrEmptySource
	}

	comp := &Composition{FrameID: frameID, Controls: controls}

	var overlay image.Image
	if frameID != "" {
		img, err := c.resolve(ctx, frameID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			warning := fmt.Errorf("%w: %q: %w", ErrFrameResolution, frameID, err)
			c.logger.Warn("composing without frame overlay", "frame_id", frameID, "error", err)
			comp.Warnings = append(comp.Warnings, warning)
		} else {
			overlay = img
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.canvas.Clear()
	c.canvas.Fill(c.background)

	placement, err := c.engine.Place(src, c.canvas, controls)
	if err != nil {
		// Inputs were validated above; this only trips on a programming error.
		// Leave an opaque canvas behind rather than a half-drawn one.
		c.canvas.Fill(c.background)
		return nil, err
	}
	comp.Placement = placement

	c.tone.Apply(c.canvas.Buffer(), controls.Brightness, controls.Contrast)

	if overlay != nil {
		dst := c.canvas.Buffer().Image()
		draw.BiLinear.Scale(dst, dst.Bounds(), overlay, overlay.Bounds(), draw.Over, nil)
	}

	comp.Canvas = c.canvas.Snapshot()
	c.logger.Debug("composed",
		"frame_id", frameID,
		"zoom", controls.Zoom,
		"rotate", controls.Rotate,
		"brightness", controls.Brightness,
		"contrast", controls.Contrast,
		"total_scale", placement.TotalScale,
	)
	return comp, nil
}

func (c *Compositor) resolve(ctx context.Context, frameID string) (image.Image, error) {
	if c.overlays == nil {
		return nil, fmt.Errorf("no frame provider configured")
	}
	img, err := c.overlays.Resolve(ctx, frameID)
	if err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty overlay image")
	}
	return img, nil
}
