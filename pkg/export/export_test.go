package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-photobooth/internal/log"
	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

func canvas(w, h int) *pixel.Buffer {
	b := pixel.New(w, h)
	b.Fill(color.NRGBA{R: 180, G: 90, B: 30, A: 255})
	return b
}

func newExporter(opts ...Option) *Exporter {
	return New(append([]Option{WithLogger(log.Discard())}, opts...)...)
}

func TestEncodeDefaultsToJPEG(t *testing.T) {
	buf := canvas(64, 48)
	before := buf.Clone()

	res, err := newExporter().Encode(buf, "", 0)
	require.NoError(t, err)
	assert.Equal(t, MimeJPEG, res.MimeType)
	assert.Equal(t, DefaultQuality, res.Quality)
	assert.Equal(t, ".jpg", res.Extension())
	assert.True(t, before.Equal(buf), "encode must not mutate the canvas")

	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())
}

func TestEncodePNGIsLossless(t *testing.T) {
	buf := canvas(10, 10)
	buf.Set(3, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	res, err := newExporter().Encode(buf, "png", 0.5)
	require.NoError(t, err)
	assert.Equal(t, MimePNG, res.MimeType)

	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	back := pixel.FromImage(img)
	assert.True(t, buf.Equal(back))
}

func TestEncodeQualityAffectsSize(t *testing.T) {
	buf := pixel.New(128, 128)
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			buf.Set(x, y, color.NRGBA{R: uint8(x * y), G: uint8(x ^ y), B: uint8(x + y), A: 255})
		}
	}
	e := newExporter()

	low, err := e.Encode(buf, MimeJPEG, 0.2)
	require.NoError(t, err)
	high, err := e.Encode(buf, MimeJPEG, 1)
	require.NoError(t, err)
	assert.Less(t, len(low.Data), len(high.Data))
}

func TestEncodeErrors(t *testing.T) {
	e := newExporter()

	_, err := e.Encode(pixel.New(0, 0), MimeJPEG, 0.9)
	assert.ErrorIs(t, err, ErrEncoding)

	_, err = e.Encode(nil, MimeJPEG, 0.9)
	assert.ErrorIs(t, err, ErrEncoding)

	_, err = e.Encode(canvas(4, 4), "image/tiff", 0.9)
	assert.ErrorIs(t, err, ErrEncoding)
	assert.Contains(t, err.Error(), "image/tiff")
}

func TestEncodeWrapsEncoderFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	e := newExporter(WithEncoder("image/x-broken", EncoderFunc(func(io.Writer, image.Image, float64) error {
		return boom
	})))

	_, err := e.Encode(canvas(2, 2), "image/x-broken", 1)
	assert.ErrorIs(t, err, ErrEncoding)
	assert.ErrorIs(t, err, boom)
}

func TestRegisterWebP(t *testing.T) {
	e := newExporter()
	assert.Equal(t, []string{MimeJPEG, MimePNG}, e.Supported())

	var gotQuality float64
	e.Register(MimeWebP, EncoderFunc(func(w io.Writer, _ image.Image, q float64) error {
		gotQuality = q
		_, err := w.Write([]byte("RIFF"))
		return err
	}))

	res, err := e.Encode(canvas(2, 2), "webp", 0.75)
	require.NoError(t, err)
	assert.Equal(t, MimeWebP, res.MimeType)
	assert.Equal(t, 0.75, gotQuality)
	assert.Contains(t, e.Supported(), MimeWebP)
}

func TestDataURL(t *testing.T) {
	res := &Result{Data: []byte{0xff, 0xd8}, MimeType: MimeJPEG}
	assert.Equal(t, "data:image/jpeg;base64,/9g=", res.DataURL())
}

func TestFilename(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 2, 3, 450_000_000, time.UTC)
	assert.Equal(t, "photobooth_2024-05-01T10-02-03-450Z.jpg", Filename(ts, MimeJPEG))
	assert.True(t, strings.HasSuffix(Filename(ts, "png"), ".png"))
}

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, 90, JPEGQuality(0.9))
	assert.Equal(t, 1, JPEGQuality(0.001))
	assert.Equal(t, 100, JPEGQuality(1))
}
