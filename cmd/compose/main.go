// compose: renders a booth picture offline from an image file, without a
// camera or server. Useful for checking frames and tuning defaults.
//
//	compose -in shot.jpg -frames ./public/frames -frame frame1 -zoom 1.2 -out out.jpg
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/webp"

	"github.com/teslashibe/go-photobooth/internal/config"
	"github.com/teslashibe/go-photobooth/internal/log"
	"github.com/teslashibe/go-photobooth/pkg/editor"
	"github.com/teslashibe/go-photobooth/pkg/export"
	"github.com/teslashibe/go-photobooth/pkg/frames"
	"github.com/teslashibe/go-photobooth/pkg/opencv"
	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "compose:", err)
		os.Exit(1)
	}
}

func run() error {
	defaults := config.DefaultConfig()

	in := flag.String("in", "", "Input image (png, jpeg or webp)")
	out := flag.String("out", "composed.jpg", "Output file; the extension picks the format")
	framesDir := flag.String("frames", defaults.Frames.Dir, "Frame catalog directory")
	frameID := flag.String("frame", "", "Frame id to overlay")
	mirror := flag.Bool("mirror", false, "Flip the input horizontally, as the front camera would")
	width := flag.Int("width", defaults.Canvas.Width, "Canvas width")
	height := flag.Int("height", defaults.Canvas.Height, "Canvas height")
	background := flag.String("bg", defaults.Canvas.Background, "Canvas background #RRGGBB")
	zoom := flag.Float64("zoom", 1, "Zoom factor")
	rotate := flag.Float64("rotate", 0, "Rotation in degrees")
	brightness := flag.Float64("brightness", 1, "Brightness factor")
	contrast := flag.Float64("contrast", 1, "Contrast factor")
	quality := flag.Float64("quality", defaults.Export.Quality, "Lossy quality in (0, 1]")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		return fmt.Errorf("-in is required")
	}
	level := "warn"
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	img, err := decode(*in)
	if err != nil {
		return err
	}
	if *mirror {
		img = transform.FlipH(img)
	}

	bg, err := config.ParseHexColor(*background)
	if err != nil {
		return err
	}
	lib := frames.NewLibrary(frames.DirSource{Root: *framesDir}, frames.WithLogger(logger))
	compositor, err := editor.NewCompositor(*width, *height,
		editor.WithOverlays(lib),
		editor.WithBackground(bg),
		editor.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	controls := editor.Controls{
		Zoom:       *zoom,
		Rotate:     *rotate,
		Brightness: *brightness,
		Contrast:   *contrast,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	comp, err := compositor.Compose(ctx, pixel.FromImage(img), *frameID, controls)
	if err != nil {
		return err
	}
	for _, w := range comp.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	exporter := export.New(export.WithLogger(logger))
	opencv.RegisterWebP(exporter)
	res, err := exporter.Encode(comp.Canvas, mimeFor(*out), *quality)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, res.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("%s: %dx%d %s, %d bytes, scale %.3f\n",
		*out, res.Width, res.Height, res.MimeType, len(res.Data), comp.Placement.TotalScale)
	return nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func mimeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return export.MimePNG
	case ".webp":
		return export.MimeWebP
	default:
		return export.MimeJPEG
	}
}
