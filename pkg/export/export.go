// Package export encodes a composed canvas into a downloadable or shareable
// image.
package export

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-photobooth/internal/log"
	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

// Supported mime types.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

// Defaults used when the caller leaves format or quality unset.
const (
	DefaultMimeType = MimeJPEG
	DefaultQuality  = 0.9
)

// ErrEncoding is returned for an empty canvas, an unsupported mime type or an
// encoder failure.
var ErrEncoding = errors.New("export: encoding failed")

// Encoder writes img in one format. Quality is in (0, 1]; lossless encoders
// ignore it.
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality float64) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(w io.Writer, img image.Image, quality float64) error

// Encode implements Encoder.
func (f EncoderFunc) Encode(w io.Writer, img image.Image, quality float64) error {
	return f(w, img, quality)
}

// Result is an encoded picture.
type Result struct {
	Data     []byte
	MimeType string
	Quality  float64
	Width    int
	Height   int
}

// Extension returns the file extension for the result's mime type.
func (r *Result) Extension() string {
	return Extension(r.MimeType)
}

// DataURL returns the result as a base64 data URL.
func (r *Result) DataURL() string {
	return "data:" + r.MimeType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Exporter encodes pixel buffers. It never mutates its input.
type Exporter struct {
	mu       sync.RWMutex
	encoders map[string]Encoder
	logger   *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithEncoder registers or replaces the encoder for a mime type.
func WithEncoder(mime string, enc Encoder) Option {
	return func(e *Exporter) { e.encoders[normalize(mime)] = enc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.logger = log.Component(l, "export") }
}

// New creates an exporter with the JPEG and PNG encoders registered.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		encoders: map[string]Encoder{
			MimeJPEG: EncoderFunc(encodeJPEG),
			MimePNG:  EncoderFunc(encodePNG),
		},
		logger: log.Component(nil, "export"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds an encoder after construction.
func (e *Exporter) Register(mime string, enc Encoder) {
	e.mu.Lock()
	e.encoders[normalize(mime)] = enc
	e.mu.Unlock()
}

// Supported lists the registered mime types.
func (e *Exporter) Supported() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.encoders))
	for m := range e.encoders {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// Encode serialises buf. An empty mime type means DefaultMimeType; a quality
// outside (0, 1] means DefaultQuality.
func (e *Exporter) Encode(buf *pixel.Buffer, mimeType string, quality float64) (*Result, error) {
	if buf.Empty() {
		return nil, fmt.Errorf("%w: empty canvas", ErrEncoding)
	}
	mimeType = normalize(mimeType)
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	if !(quality > 0 && quality <= 1) {
		quality = DefaultQuality
	}

	e.mu.RLock()
	enc, ok := e.encoders[mimeType]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrEncoding, mimeType)
	}

	start := time.Now()
	var out bytes.Buffer
	if err := enc.Encode(&out, buf.Image(), quality); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncoding, mimeType, err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: encoder produced no data", ErrEncoding, mimeType)
	}

	e.logger.Debug("encoded",
		"mime", mimeType,
		"quality", quality,
		"bytes", out.Len(),
		"elapsed", time.Since(start),
	)
	return &Result{
		Data:     out.Bytes(),
		MimeType: mimeType,
		Quality:  quality,
		Width:    buf.Width(),
		Height:   buf.Height(),
	}, nil
}

// Extension maps a mime type to a file extension, ".bin" when unknown.
func Extension(mime string) string {
	switch normalize(mime) {
	case MimeJPEG:
		return ".jpg"
	case MimePNG:
		return ".png"
	case MimeWebP:
		return ".webp"
	}
	return ".bin"
}

// Filename builds the download name for a picture taken at t, e.g.
// photobooth_2024-05-01T10-00-00-000Z.jpg.
func Filename(t time.Time, mime string) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "photobooth_" + stamp + Extension(mime)
}

// JPEGQuality converts a (0, 1] quality to the 1..100 scale of image/jpeg.
func JPEGQuality(q float64) int {
	return max(1, min(100, int(math.Round(q*100))))
}

func encodeJPEG(w io.Writer, img image.Image, quality float64) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality(quality)})
}

func encodePNG(w io.Writer, img image.Image, _ float64) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}

func normalize(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch mime {
	case "jpeg", "jpg", "image/jpg":
		return MimeJPEG
	case "png":
		return MimePNG
	case "webp":
		return MimeWebP
	}
	return mime
}
