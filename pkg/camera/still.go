package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // Register decoders for still files
	_ "image/png"
	"os"
	"sync"
)

// StillFeed serves a fixed image as if it were a live feed. It backs kiosks
// without a camera and tests.
type StillFeed struct {
	mu     sync.Mutex
	img    image.Image
	reads  int
	closed bool
}

// NewStillFeed wraps an image. A nil image behaves like a feed that is not ready.
func NewStillFeed(img image.Image) *StillFeed {
	return &StillFeed{img: img}
}

// OpenStill decodes an image file into a StillFeed.
func OpenStill(path string) (*StillFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("camera: open still: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("camera: decode still %s: %w", path, err)
	}
	return NewStillFeed(img), nil
}

// Read returns the wrapped image.
func (s *StillFeed) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: feed closed", ErrCaptureUnavailable)
	}
	if s.img == nil {
		return nil, fmt.Errorf("%w: no frame yet", ErrCaptureUnavailable)
	}
	s.reads++
	return s.img, nil
}

// SetImage swaps the served frame.
func (s *StillFeed) SetImage(img image.Image) {
	s.mu.Lock()
	s.img = img
	s.mu.Unlock()
}

// Reads returns how many frames have been served.
func (s *StillFeed) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Close marks the feed closed.
func (s *StillFeed) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
