package editor

import "math"

// Controls is the user-driven editing state applied on each compose.
type Controls struct {
	Zoom       float64 `json:"zoom"`
	Rotate     float64 `json:"rotate"` // degrees, clockwise on screen
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`

	// Pan is accepted and validated but placement is always centered for now.
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
}

// Slider limits exposed to the kiosk UI.
const (
	MinZoom       = 0.1
	MaxZoom       = 5.0
	MaxBrightness = 3.0
	MaxContrast   = 3.0
)

// DefaultControls returns the identity edit.
func DefaultControls() Controls {
	return Controls{Zoom: 1, Rotate: 0, Brightness: 1, Contrast: 1}
}

// Validate rejects non-finite values, zoom <= 0 and negative tone factors.
func (c Controls) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"zoom", c.Zoom},
		{"rotate", c.Rotate},
		{"brightness", c.Brightness},
		{"contrast", c.Contrast},
		{"pan_x", c.PanX},
		{"pan_y", c.PanY},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ControlError{Field: f.name, Value: f.v}
		}
	}
	if c.Zoom <= 0 {
		return &ControlError{Field: "zoom", Value: c.Zoom}
	}
	if c.Brightness < 0 {
		return &ControlError{Field: "brightness", Value: c.Brightness}
	}
	if c.Contrast < 0 {
		return &ControlError{Field: "contrast", Value: c.Contrast}
	}
	return nil
}

// Clamped returns a copy with zoom, brightness and contrast pulled into the
// slider ranges. Callers that accept free-form input clamp before validating.
func (c Controls) Clamped() Controls {
	c.Zoom = clamp(c.Zoom, MinZoom, MaxZoom)
	c.Brightness = clamp(c.Brightness, 0, MaxBrightness)
	c.Contrast = clamp(c.Contrast, 0, MaxContrast)
	c.Rotate = math.Mod(c.Rotate, 360)
	return c
}

// IdentityTone reports whether tone adjustment would be a no-op.
func (c Controls) IdentityTone() bool {
	return c.Brightness == 1 && c.Contrast == 1
}

// Patch is a partial update of the editing state. Nil fields are left alone.
type Patch struct {
	Zoom       *float64 `json:"zoom,omitempty"`
	Rotate     *float64 `json:"rotate,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
	Contrast   *float64 `json:"contrast,omitempty"`
	PanX       *float64 `json:"pan_x,omitempty"`
	PanY       *float64 `json:"pan_y,omitempty"`
	FrameID    *string  `json:"frame_id,omitempty"`
}

// Apply returns c with the patch fields overlaid.
func (p Patch) Apply(c Controls) Controls {
	if p.Zoom != nil {
		c.Zoom = *p.Zoom
	}
	if p.Rotate != nil {
		c.Rotate = *p.Rotate
	}
	if p.Brightness != nil {
		c.Brightness = *p.Brightness
	}
	if p.Contrast != nil {
		c.Contrast = *p.Contrast
	}
	if p.PanX != nil {
		c.PanX = *p.PanX
	}
	if p.PanY != nil {
		c.PanY = *p.PanY
	}
	return c
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
