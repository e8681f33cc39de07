// Package opencv holds the OpenCV-backed pieces of the booth: the local capture
// device feed and the WebP encoder. It needs cgo and an OpenCV install.
package opencv

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-photobooth/pkg/camera"
)

// DeviceFeed reads frames from a local capture device through OpenCV.
type DeviceFeed struct {
	mu     sync.Mutex
	webcam *gocv.VideoCapture
	frame  gocv.Mat
	closed bool
}

// OpenDevice opens the capture device described by cfg and requests the
// configured resolution and framerate. The device may ignore the request.
func OpenDevice(cfg camera.Config) (*DeviceFeed, error) {
	cam, err := gocv.VideoCaptureDevice(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("opencv: open device %d: %w", cfg.DeviceID, err)
	}
	if !cam.IsOpened() {
		cam.Close()
		return nil, fmt.Errorf("%w: device %d not opened", camera.ErrCaptureUnavailable, cfg.DeviceID)
	}

	cam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cam.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &DeviceFeed{
		webcam: cam,
		frame:  gocv.NewMat(),
	}, nil
}

// Read grabs the most recent frame and converts it to a Go image.
func (d *DeviceFeed) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("%w: device closed", camera.ErrCaptureUnavailable)
	}
	if ok := d.webcam.Read(&d.frame); !ok {
		return nil, fmt.Errorf("%w: cannot read frame", camera.ErrCaptureUnavailable)
	}
	if d.frame.Empty() {
		return nil, fmt.Errorf("%w: frame is empty", camera.ErrCaptureUnavailable)
	}

	img, err := d.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("opencv: convert frame: %w", err)
	}
	return img, nil
}

// Close releases the device.
func (d *DeviceFeed) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.frame.Close()
	return d.webcam.Close()
}
