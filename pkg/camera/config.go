// Package camera provides the capture source for the booth: a live feed bound to
// a facing mode, and runtime-configurable camera settings.
package camera

import (
	"fmt"
	"strings"
)

// FacingMode is the logical capture mode supplied by camera management.
// It decides mirror correction; pixels are never inspected for that.
type FacingMode string

const (
	// FacingUser is the front camera. Its frames arrive mirrored.
	FacingUser FacingMode = "user"
	// FacingEnvironment is the rear camera. Its frames are already correct.
	FacingEnvironment FacingMode = "environment"
)

// ParseFacingMode accepts "user"/"front" and "environment"/"rear"/"back".
func ParseFacingMode(s string) (FacingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "front":
		return FacingUser, nil
	case "environment", "rear", "back":
		return FacingEnvironment, nil
	}
	return "", fmt.Errorf("camera: unknown facing mode %q", s)
}

// Mirrored reports whether frames in this mode must be flipped horizontally.
func (m FacingMode) Mirrored() bool {
	return m == FacingUser
}

// Toggle returns the other facing mode.
func (m FacingMode) Toggle() FacingMode {
	if m == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Valid reports whether m is a known facing mode.
func (m FacingMode) Valid() bool {
	return m == FacingUser || m == FacingEnvironment
}

// Config holds camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// DeviceID is the capture device index for device-backed feeds.
	DeviceID int `json:"device_id"`

	// Requested (ideal) capture resolution. The feed may deliver something else;
	// frames are always captured at whatever native size the feed produces.
	Width     int `json:"width"`
	Height    int `json:"height"`
	Framerate int `json:"framerate"`

	// Facing selects mirror correction.
	Facing FacingMode `json:"facing"`
}

// Resolution limits accepted by Validate.
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 4096
	MaxHeight = 2160
)

// DefaultConfig returns the kiosk defaults: 1280x720 ideal, front camera.
func DefaultConfig() Config {
	return Config{
		DeviceID:  0,
		Width:     1280,
		Height:    720,
		Framerate: 30,
		Facing:    FacingUser,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.DeviceID < 0 {
		errors = append(errors, "device_id must be >= 0")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if !c.Facing.Valid() {
		errors = append(errors, "facing must be user or environment")
	}

	return errors
}
