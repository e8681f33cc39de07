package editor

import (
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

// Placement describes where a source lands on the canvas.
type Placement struct {
	FitScale   float64  `json:"fit_scale"`
	Zoom       float64  `json:"zoom"`
	TotalScale float64  `json:"total_scale"` // always FitScale * Zoom
	Radians    float64  `json:"radians"`
	Width      float64  `json:"width"`  // source width * FitScale, before zoom
	Height     float64  `json:"height"` // source height * FitScale, before zoom
	Matrix     f64.Aff3 `json:"-"`      // source -> canvas
}

// FitScale returns the largest scale that fits a src-sized image inside dst
// without cropping. Letterbox margins are expected.
func FitScale(srcW, srcH, dstW, dstH int) float64 {
	return math.Min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
}

// TransformEngine places a source buffer on the canvas with zoom and rotation
// pivoting on the canvas midpoint.
type TransformEngine struct {
	// Interpolator resamples the source. Defaults to bilinear.
	Interpolator draw.Transformer
}

// Plan computes the placement of a srcW x srcH source on a dstW x dstH canvas.
// The mapping is: translate to canvas centre, rotate, zoom, fit-scale, then
// centre the source on that origin.
func (e TransformEngine) Plan(srcW, srcH, dstW, dstH int, c Controls) (Placement, error) {
	if srcW <= 0 || srcH <= 0 {
		return Placement{}, ErrEmptySource
	}
	if dstW <= 0 || dstH <= 0 {
		return Placement{}, ErrInvalidCanvas
	}
	if c.Zoom <= 0 || math.IsNaN(c.Zoom) || math.IsInf(c.Zoom, 0) {
		return Placement{}, &ControlError{Field: "zoom", Value: c.Zoom}
	}

	fit := FitScale(srcW, srcH, dstW, dstH)
	k := fit * c.Zoom
	theta := c.Rotate * math.Pi / 180
	sin, cos := math.Sincos(theta)

	cx, cy := float64(dstW)/2, float64(dstH)/2
	sx, sy := float64(srcW)/2, float64(srcH)/2

	return Placement{
		FitScale:   fit,
		Zoom:       c.Zoom,
		TotalScale: k,
		Radians:    theta,
		Width:      float64(srcW) * fit,
		Height:     float64(srcH) * fit,
		Matrix: f64.Aff3{
			k * cos, -k * sin, cx - k*(cos*sx-sin*sy),
			k * sin, k * cos, cy - k*(sin*sx+cos*sy),
		},
	}, nil
}

// Place draws src over the canvas according to c.
func (e TransformEngine) Place(src *pixel.Buffer, dst *Canvas, c Controls) (Placement, error) {
	if src.Empty() {
		return Placement{}, ErrEmptySource
	}
	p, err := e.Plan(src.Width(), src.Height(), dst.Width(), dst.Height(), c)
	if err != nil {
		return Placement{}, err
	}

	e.interpolator().Transform(dst.Buffer().Image(), p.Matrix, src.Image(), src.Bounds(), draw.Over, nil)
	return p, nil
}

func (e TransformEngine) interpolator() draw.Transformer {
	if e.Interpolator != nil {
		return e.Interpolator
	}
	return draw.BiLinear
}

// Apply maps a source point to canvas coordinates.
func (p Placement) Apply(x, y float64) (float64, float64) {
	m := p.Matrix
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}
