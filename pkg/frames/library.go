package frames

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	_ "golang.org/x/image/webp"

	"github.com/teslashibe/go-photobooth/internal/log"
)

// Library is a Provider backed by a Source. The catalog is read once and
// decoded overlays are cached by id until Reload. Source reads happen outside
// the lock; results read before a Reload are not cached.
type Library struct {
	src    Source
	logger *slog.Logger

	mu     sync.Mutex
	gen    uint64
	frames []Frame
	loaded bool
	images map[string]image.Image
	stats  Stats
}

// Stats counts library activity.
type Stats struct {
	Decoded   int `json:"decoded"`
	CacheHits int `json:"cache_hits"`
	Fallbacks int `json:"fallbacks"`
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(lib *Library) { lib.logger = log.Component(l, "frames") }
}

// WithCatalog fixes the catalog instead of reading index.json.
func WithCatalog(list []Frame) Option {
	return func(lib *Library) {
		lib.frames = slices.Clone(list)
		lib.loaded = true
	}
}

// NewLibrary creates a library reading from src.
func NewLibrary(src Source, opts ...Option) *Library {
	l := &Library{
		src:    src,
		logger: log.Component(nil, "frames"),
		images: make(map[string]image.Image),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// List returns the catalog. A missing or unreadable index falls back to
// DefaultFrames without being cached, so the index is retried on the next
// call; only context errors are returned.
func (l *Library) List(ctx context.Context) ([]Frame, error) {
	l.mu.Lock()
	if l.loaded {
		list := slices.Clone(l.frames)
		l.mu.Unlock()
		return list, nil
	}
	gen := l.gen
	l.mu.Unlock()

	list, err := l.readIndex(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		l.mu.Lock()
		l.stats.Fallbacks++
		first := l.stats.Fallbacks == 1
		l.mu.Unlock()
		if first {
			l.logger.Warn("frame index unavailable, using default frames", "error", err)
		} else {
			l.logger.Debug("frame index still unavailable", "error", err)
		}
		return DefaultFrames(), nil
	}

	l.mu.Lock()
	if l.gen == gen && !l.loaded {
		l.frames = list
		l.loaded = true
	}
	l.mu.Unlock()
	return slices.Clone(list), nil
}

// Resolve returns the decoded overlay for id.
func (l *Library) Resolve(ctx context.Context, id string) (image.Image, error) {
	l.mu.Lock()
	if img, ok := l.images[id]; ok {
		l.stats.CacheHits++
		l.mu.Unlock()
		return img, nil
	}
	gen := l.gen
	l.mu.Unlock()

	list, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	f, ok := find(list, id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	data, _, err := l.Asset(ctx, f.URL)
	if err != nil {
		return nil, fmt.Errorf("frames: load %q: %w", id, err)
	}
	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("frames: decode %q: %w", id, err)
	}
	img := clone.AsRGBA(decoded)

	l.mu.Lock()
	if l.gen == gen {
		l.images[id] = img
	}
	l.stats.Decoded++
	l.mu.Unlock()

	l.logger.Debug("frame decoded", "id", id, "format", format, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

// Asset reads the raw bytes of a catalog asset (overlay or thumbnail) and
// returns them with their sniffed mime type.
func (l *Library) Asset(ctx context.Context, ref string) ([]byte, string, error) {
	data, err := l.read(ctx, AssetName(ref))
	if err != nil {
		return nil, "", err
	}
	mime, err := sniff(data)
	if err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

// Reload forgets the catalog and every cached overlay.
func (l *Library) Reload() {
	l.mu.Lock()
	l.gen++
	l.frames = nil
	l.loaded = false
	clear(l.images)
	l.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (l *Library) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Library) readIndex(ctx context.Context) ([]Frame, error) {
	data, err := l.read(ctx, IndexFile)
	if err != nil {
		return nil, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("frames: parse %s: %w", IndexFile, err)
	}
	return idx.Frames, nil
}

func (l *Library) read(ctx context.Context, name string) ([]byte, error) {
	rc, err := l.src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("frames: read %s: %w", name, err)
	}
	if len(data) > MaxAssetSize {
		return nil, fmt.Errorf("%w: %s", ErrAssetTooLarge, name)
	}
	return data, nil
}

// sniff accepts png, jpeg and webp content regardless of file extension.
func sniff(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	switch kind {
	case matchers.TypePng, matchers.TypeJpeg, matchers.TypeWebp:
		return kind.MIME.Value, nil
	}
	if kind == filetype.Unknown {
		return "", fmt.Errorf("%w: unknown content", ErrUnsupportedType)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind.MIME.Value)
}
