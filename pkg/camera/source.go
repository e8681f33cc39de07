package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/anthonynsimon/bild/transform"

	"github.com/teslashibe/go-photobooth/internal/log"
	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

// ErrCaptureUnavailable is returned when no feed is bound or the feed has no
// frame yet. Retrying after the feed warms up may succeed.
var ErrCaptureUnavailable = errors.New("camera: capture unavailable")

// Feed is a live video feed that can hand out its current frame.
type Feed interface {
	// Read returns the current frame at the feed's native resolution.
	Read(ctx context.Context) (image.Image, error)

	// Close releases the underlying device.
	Close() error
}

// Source grabs still frames from a bound feed and corrects mirroring according
// to the active facing mode.
type Source struct {
	mu     sync.Mutex
	feed   Feed
	facing FacingMode
	logger *slog.Logger
}

// NewSource creates an unbound source.
func NewSource(logger *slog.Logger) *Source {
	return &Source{
		facing: FacingUser,
		logger: log.Component(logger, "camera.source"),
	}
}

// Bind attaches a feed, closing any previously bound one.
func (s *Source) Bind(feed Feed, mode FacingMode) error {
	if !mode.Valid() {
		return fmt.Errorf("camera: invalid facing mode %q", mode)
	}

	s.mu.Lock()
	old := s.feed
	s.feed = feed
	s.facing = mode
	s.mu.Unlock()

	if old != nil && old != feed {
		if err := old.Close(); err != nil {
			s.logger.Warn("closing previous feed", "error", err)
		}
	}
	s.logger.Info("feed bound", "facing", mode)
	return nil
}

// Unbind detaches and closes the current feed.
func (s *Source) Unbind() error {
	s.mu.Lock()
	feed := s.feed
	s.feed = nil
	s.mu.Unlock()

	if feed == nil {
		return nil
	}
	return feed.Close()
}

// SetFacing changes the facing mode without rebinding the feed.
func (s *Source) SetFacing(mode FacingMode) error {
	if !mode.Valid() {
		return fmt.Errorf("camera: invalid facing mode %q", mode)
	}
	s.mu.Lock()
	s.facing = mode
	s.mu.Unlock()
	return nil
}

// Facing returns the active facing mode.
func (s *Source) Facing() FacingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// Bound reports whether a feed is attached.
func (s *Source) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feed != nil
}

// GrabFrame captures the current frame as a fresh pixel buffer at the feed's
// native resolution. User-facing frames are flipped about the vertical axis so
// the result matches physical reality; environment-facing frames are left as is.
// The feed itself is not modified.
func (s *Source) GrabFrame(ctx context.Context) (*pixel.Buffer, error) {
	s.mu.Lock()
	feed, facing := s.feed, s.facing
	s.mu.Unlock()

	if feed == nil {
		return nil, fmt.Errorf("%w: no feed bound", ErrCaptureUnavailable)
	}

	img, err := feed.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrCaptureUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: feed returned an empty frame", ErrCaptureUnavailable)
	}

	if facing.Mirrored() {
		img = transform.FlipH(img)
	}

	buf := pixel.FromImage(img)
	s.logger.Debug("frame captured", "width", buf.Width(), "height", buf.Height(), "facing", facing)
	return buf, nil
}
