package editor

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

func TestFitScale(t *testing.T) {
	assert.Equal(t, 2.0, FitScale(100, 50, 200, 200))
	assert.Equal(t, 0.5, FitScale(400, 100, 200, 200))
	assert.InDelta(t, 1006.0/720.0, FitScale(1280, 720, DefaultWidth, DefaultHeight), 1e-12)
}

func TestPlanScaleInvariant(t *testing.T) {
	sizes := [][4]int{
		{1280, 720, DefaultWidth, DefaultHeight},
		{720, 1280, DefaultWidth, DefaultHeight},
		{640, 480, 320, 240},
		{3, 7, 1000, 10},
		{1, 1, 5, 9},
	}
	zooms := []float64{0.1, 0.5, 1, 1.75, 4}
	rotations := []float64{0, 33, 90, -145, 360}

	var engine TransformEngine
	for _, sz := range sizes {
		for _, zoom := range zooms {
			for _, rot := range rotations {
				p, err := engine.Plan(sz[0], sz[1], sz[2], sz[3], Controls{Zoom: zoom, Rotate: rot, Brightness: 1, Contrast: 1})
				require.NoError(t, err)

				fit := FitScale(sz[0], sz[1], sz[2], sz[3])
				assert.Equal(t, fit, p.FitScale)
				assert.Equal(t, fit*zoom, p.TotalScale)

				// The matrix scales by exactly TotalScale in every direction.
				colScale := math.Hypot(p.Matrix[0], p.Matrix[3])
				assert.InDelta(t, p.TotalScale, colScale, 1e-9)
			}
		}
	}
}

func TestPlanPivotsOnCanvasCentre(t *testing.T) {
	var engine TransformEngine
	for _, c := range []Controls{
		{Zoom: 1},
		{Zoom: 2.5, Rotate: 30},
		{Zoom: 0.3, Rotate: -90},
	} {
		p, err := engine.Plan(1280, 720, DefaultWidth, DefaultHeight, c)
		require.NoError(t, err)

		x, y := p.Apply(640, 360)
		assert.InDelta(t, DefaultWidth/2.0, x, 1e-9)
		assert.InDelta(t, DefaultHeight/2.0, y, 1e-9)
	}
}

func TestPlanRotatesClockwise(t *testing.T) {
	var engine TransformEngine
	p, err := engine.Plan(100, 50, 200, 200, Controls{Zoom: 1, Rotate: 90})
	require.NoError(t, err)

	// The source's top-left corner ends up at the top-right of the photo.
	x, y := p.Apply(0, 0)
	assert.InDelta(t, 150, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
}

func TestPlanRejectsBadInput(t *testing.T) {
	var engine TransformEngine

	_, err := engine.Plan(0, 10, 100, 100, DefaultControls())
	assert.ErrorIs(t, err, ErrEmptySource)

	_, err = engine.Plan(10, 10, 0, 100, DefaultControls())
	assert.ErrorIs(t, err, ErrInvalidCanvas)

	_, err = engine.Plan(10, 10, 100, 100, Controls{Zoom: 0})
	assert.ErrorIs(t, err, ErrInvalidControls)
}

func TestPlaceIdentityLetterboxes(t *testing.T) {
	red := color.NRGBA{R: 200, A: 255}
	canvas, err := NewCanvas(200, 200)
	require.NoError(t, err)
	canvas.Fill(Black)

	p, err := TransformEngine{}.Place(solid(100, 50, red), canvas, DefaultControls())
	require.NoError(t, err)
	assert.Equal(t, 200.0, p.Width)
	assert.Equal(t, 100.0, p.Height)

	buf := canvas.Buffer()
	assert.Equal(t, red, buf.At(100, 100), "photo centre")
	assert.Equal(t, red, buf.At(5, 60), "photo spans the full width")
	assert.Equal(t, Black, buf.At(100, 20), "top letterbox")
	assert.Equal(t, Black, buf.At(100, 180), "bottom letterbox")
}

func TestPlaceRotated(t *testing.T) {
	red := color.NRGBA{R: 200, A: 255}
	canvas, err := NewCanvas(200, 200)
	require.NoError(t, err)
	canvas.Fill(Black)

	_, err = TransformEngine{}.Place(solid(100, 50, red), canvas, Controls{Zoom: 1, Rotate: 90})
	require.NoError(t, err)

	buf := canvas.Buffer()
	assert.Equal(t, red, buf.At(100, 10), "rotated photo is tall")
	assert.Equal(t, Black, buf.At(10, 100), "left margin after rotation")
}

func TestPlaceEmptySource(t *testing.T) {
	canvas, err := NewCanvas(10, 10)
	require.NoError(t, err)

	_, err = TransformEngine{}.Place(pixel.New(0, 0), canvas, DefaultControls())
	assert.ErrorIs(t, err, ErrEmptySource)
}
