package frames

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-photobooth/internal/httpc"
)

// Source opens catalog files by name, relative to the frames root.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// AssetName maps a catalog URL such as "/frames/frame1.png" to the name a
// Source understands ("frame1.png"). Absolute URLs keep only their path, so
// every asset is read through the configured source. Names cannot escape the
// root.
func AssetName(ref string) string {
	if u, err := url.Parse(ref); err == nil {
		ref = u.Path
	}
	clean := path.Clean("/" + ref)
	clean = strings.TrimPrefix(clean, MountPath)
	return strings.TrimPrefix(clean, "/")
}

// DirSource reads catalog files from a local directory.
type DirSource struct {
	Root string
}

// Open implements Source.
func (d DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := filepath.Join(d.Root, filepath.FromSlash(path.Clean("/"+name)))
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return f, nil
}

// HTTPSource fetches catalog files from a base URL, e.g. "http://kiosk/frames".
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource creates a source using the shared HTTP client.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{BaseURL: strings.TrimSuffix(baseURL, "/"), Client: httpc.Client}
}

// Open implements Source.
func (h *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	target := h.BaseURL + "/" + strings.TrimPrefix(path.Clean("/"+name), "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("frames: build request: %w", err)
	}

	client := h.Client
	if client == nil {
		client = httpc.Client
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("frames: fetch %s: %w", name, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	case resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("frames: fetch %s: status %d", name, resp.StatusCode)
	}
	return resp.Body, nil
}
