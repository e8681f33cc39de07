// Package messaging delivers finished pictures to visitors through a chat
// gateway, and validates the phone numbers they type at the kiosk.
package messaging

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidPhone is returned for recipients that fail ValidatePhone.
	ErrInvalidPhone = errors.New("messaging: invalid phone number")

	// ErrNoRecipients is returned when a request names nobody.
	ErrNoRecipients = errors.New("messaging: no recipients")

	// ErrNoImage is returned when a request carries no picture.
	ErrNoImage = errors.New("messaging: image required")

	// ErrNotConnected is returned when the gateway session is not ready.
	ErrNotConnected = errors.New("messaging: gateway not connected")

	// ErrQRUnavailable is returned when no pairing QR code is pending.
	ErrQRUnavailable = errors.New("messaging: qr code not available")
)

// State is the gateway connection state.
type State string

// Gateway states.
const (
	StateInitializing State = "initializing"
	StateQR           State = "qr"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// Status describes the gateway session.
type Status struct {
	State State  `json:"state"`
	QR    string `json:"qr,omitempty"`
}

// Ready reports whether messages can be sent.
func (s Status) Ready() bool { return s.State == StateConnected }

// Request is one picture to deliver to one or more recipients.
type Request struct {
	Image      []byte
	MimeType   string
	Filename   string
	Recipients []string
	Caption    string
}

// Validate checks the picture and every recipient.
func (r *Request) Validate() error {
	if len(r.Image) == 0 {
		return ErrNoImage
	}
	return ValidateRecipients(r.Recipients)
}

// Result reports a delivery.
type Result struct {
	Success    bool     `json:"success"`
	MessageIDs []string `json:"messageIds,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Sender delivers pictures.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Result, error)
	Status(ctx context.Context) (Status, error)
}

// Controller manages the gateway session from the admin dashboard.
type Controller interface {
	QR(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	Reconnect(ctx context.Context) error
}

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("messaging: gateway error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true for HTTP 429.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == 429 }

// IsServerError returns true for HTTP 5xx.
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// IsRetryable returns true if the request may succeed later.
func (e *APIError) IsRetryable() bool { return e.IsRateLimited() || e.IsServerError() }
