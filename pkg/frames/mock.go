package frames

import (
	"context"
	"fmt"
	"image"
	"sort"
	"sync"
)

// MapProvider is an in-memory Provider for tests and offline tools.
type MapProvider struct {
	mu     sync.RWMutex
	images map[string]image.Image
	frames map[string]Frame
}

// NewMapProvider creates an empty provider.
func NewMapProvider() *MapProvider {
	return &MapProvider{
		images: make(map[string]image.Image),
		frames: make(map[string]Frame),
	}
}

// Add registers an overlay under id.
func (m *MapProvider) Add(id string, img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[id] = img
	m.frames[id] = Frame{ID: id, Name: id, URL: MountPath + id + ".png", Thumbnail: MountPath + id + ".png", Type: "png"}
}

// List implements Provider, sorted by id.
func (m *MapProvider) List(ctx context.Context) ([]Frame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Frame, 0, len(m.frames))
	for _, f := range m.frames {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Resolve implements Provider.
func (m *MapProvider) Resolve(ctx context.Context, id string) (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return img, nil
}
