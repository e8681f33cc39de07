package editor

import (
	"errors"
	"fmt"
)

// Sentinel errors for the composition pipeline.
var (
	// ErrInvalidControls is returned when a control value is out of range or
	// not finite. Compose rejects such input before touching the canvas.
	ErrInvalidControls = errors.New("editor: invalid control state")

	// ErrEmptySource is returned when the source buffer has no pixels.
	ErrEmptySource = errors.New("editor: empty source")

	// ErrNoSource is returned when a session has nothing captured yet.
	ErrNoSource = errors.New("editor: no source captured")

	// ErrFrameResolution marks a frame overlay that could not be resolved.
	// It is reported as a warning on the composition, never returned by Compose.
	ErrFrameResolution = errors.New("editor: frame resolution failed")

	// ErrInvalidCanvas is returned for a canvas with non-positive dimensions.
	ErrInvalidCanvas = errors.New("editor: invalid canvas size")

	// ErrSessionClosed is returned after Session.Close.
	ErrSessionClosed = errors.New("editor: session closed")
)

// ControlError names the control that failed validation.
type ControlError struct {
	Field string
	Value float64
}

// Error implements the error interface.
func (e *ControlError) Error() string {
	return fmt.Sprintf("editor: invalid control state: %s=%v", e.Field, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidControls.
func (e *ControlError) Unwrap() error {
	return ErrInvalidControls
}
