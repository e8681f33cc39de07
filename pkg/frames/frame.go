// Package frames provides the catalog of decorative photo frames and decodes
// their overlay images.
//
// A catalog is an index.json document:
//
//	{"frames": [{"id": "frame1", "name": "Frame 1", "url": "/frames/frame1.png",
//	             "thumbnail": "/frames/frame1.png", "type": "png"}]}
//
// served from a directory or over HTTP. When no index is available the two
// default frames are assumed.
package frames

import (
	"context"
	"errors"
	"image"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a frame id is not in the catalog.
	ErrNotFound = errors.New("frames: frame not found")

	// ErrUnsupportedType is returned for assets that are not png, jpeg or webp.
	ErrUnsupportedType = errors.New("frames: unsupported asset type")

	// ErrAssetTooLarge is returned for assets above MaxAssetSize.
	ErrAssetTooLarge = errors.New("frames: asset too large")
)

// MountPath is the URL prefix under which frame assets are published.
const MountPath = "/frames/"

// IndexFile is the catalog file name.
const IndexFile = "index.json"

// MaxAssetSize bounds a single frame asset.
const MaxAssetSize = 20 << 20

// Frame describes one catalog entry.
type Frame struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Type      string `json:"type"`
}

// Index is the on-disk catalog document.
type Index struct {
	Frames []Frame `json:"frames"`
}

// Provider lists frames and resolves ids to decoded overlay images.
type Provider interface {
	List(ctx context.Context) ([]Frame, error)
	Resolve(ctx context.Context, id string) (image.Image, error)
}

// DefaultFrames is the catalog used when no index can be read.
func DefaultFrames() []Frame {
	return []Frame{
		{ID: "frame1", Name: "Frame 1", URL: MountPath + "frame1.png", Thumbnail: MountPath + "frame1.png", Type: "png"},
		{ID: "frame2", Name: "Frame 2", URL: MountPath + "frame2.png", Thumbnail: MountPath + "frame2.png", Type: "png"},
	}
}

func find(list []Frame, id string) (Frame, bool) {
	for _, f := range list {
		if f.ID == id {
			return f, true
		}
	}
	return Frame{}, false
}
