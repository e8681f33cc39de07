package editor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

var errUnknownFrame = errors.New("frame not found")

// solid returns a w x h buffer filled with c.
func solid(w, h int, c color.NRGBA) *pixel.Buffer {
	b := pixel.New(w, h)
	b.Fill(c)
	return b
}

// gradient returns an opaque buffer with a horizontal red ramp and vertical
// green ramp, so any mirroring or misplacement shows up.
func gradient(w, h int) *pixel.Buffer {
	b := pixel.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: 40,
				A: 255,
			})
		}
	}
	return b
}

// windowFrame is an opaque green border with a transparent centre.
func windowFrame(w, h, border int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < border || y < border || x >= w-border || y >= h-border {
				img.SetNRGBA(x, y, color.NRGBA{G: 255, A: 255})
			}
		}
	}
	return img
}

// mapResolver resolves overlays from a map.
type mapResolver map[string]image.Image

func (m mapResolver) Resolve(_ context.Context, id string) (image.Image, error) {
	img, ok := m[id]
	if !ok {
		return nil, errUnknownFrame
	}
	return img, nil
}

// gateResolver blocks on Resolve until released, then delegates.
type gateResolver struct {
	inner   OverlayResolver
	block   string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateResolver(inner OverlayResolver, block string) *gateResolver {
	return &gateResolver{
		inner:   inner,
		block:   block,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gateResolver) Resolve(ctx context.Context, id string) (image.Image, error) {
	if id == g.block {
		g.once.Do(func() { close(g.entered) })
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.inner.Resolve(ctx, id)
}
