package opencv

import (
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-photobooth/pkg/export"
)

const webpExt gocv.FileExt = ".webp"

// WebPEncoder encodes images with OpenCV's libwebp backend. Register it on an
// export.Exporter under export.MimeWebP.
type WebPEncoder struct{}

// Encode implements export.Encoder.
func (WebPEncoder) Encode(w io.Writer, img image.Image, quality float64) error {
	rgba, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return fmt.Errorf("opencv: image to mat: %w", err)
	}
	defer rgba.Close()

	// The canvas is opaque; drop the alpha plane so libwebp emits a plain lossy file.
	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorBGRAToBGR)

	buf, err := gocv.IMEncodeWithParams(webpExt, bgr, []int{int(gocv.IMWriteWebpQuality), export.JPEGQuality(quality)})
	if err != nil {
		return fmt.Errorf("opencv: encode webp: %w", err)
	}
	defer buf.Close()

	_, err = w.Write(buf.GetBytes())
	return err
}

// RegisterWebP adds the WebP encoder to e.
func RegisterWebP(e *export.Exporter) {
	e.Register(export.MimeWebP, WebPEncoder{})
}
