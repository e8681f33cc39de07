// photobooth: kiosk server. Captures from a local camera, composes the
// picture with the visitor's edits and a frame, and delivers it via a chat
// gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/teslashibe/go-photobooth/internal/config"
	"github.com/teslashibe/go-photobooth/internal/log"
	"github.com/teslashibe/go-photobooth/pkg/booth"
	"github.com/teslashibe/go-photobooth/pkg/camera"
	"github.com/teslashibe/go-photobooth/pkg/export"
	"github.com/teslashibe/go-photobooth/pkg/opencv"
	"github.com/teslashibe/go-photobooth/pkg/web"
)

var version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "photobooth:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.EnvOr("PHOTOBOOTH_CONFIG", "photobooth.toml"), "Config file (toml, yaml or json)")
	port := flag.String("port", "", "HTTP port (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging and request logs")
	device := flag.Int("device", -1, "Capture device index (overrides config)")
	still := flag.String("still", "", "Serve this image instead of a camera")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != "" {
		if _, err := strconv.Atoi(*port); err != nil {
			return fmt.Errorf("invalid -port %q", *port)
		}
		cfg.Server.Port = *port
	}
	if *device >= 0 {
		cfg.Camera.DeviceID = *device
	}
	if *still != "" {
		cfg.Camera.Still = *still
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	log.Init(cfg.Logging.Level)
	logger := log.L()
	logger.Info("starting photobooth",
		"version", version,
		"canvas", fmt.Sprintf("%dx%d", cfg.Canvas.Width, cfg.Canvas.Height),
		"gateway", cfg.Messaging.GatewayURL,
	)

	exporter := export.New(export.WithLogger(logger))
	opencv.RegisterWebP(exporter)

	app, err := booth.New(cfg,
		booth.WithLogger(logger),
		booth.WithExporter(exporter),
		booth.WithFeedOpener(feedOpener(cfg.Camera.Still)),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		app.Shutdown()
		return err
	}
	go app.Run(ctx)

	opts := []web.Option{web.WithLogger(logger)}
	if *debug {
		opts = append(opts, web.WithRequestLogging())
	}
	srv := web.NewServer(app, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server stopped", "error", err)
	}

	done := make(chan struct{})
	go func() {
		if err := srv.Shutdown(); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("server shutdown timed out")
	}

	if serr := app.Shutdown(); serr != nil {
		logger.Warn("booth shutdown", "error", serr)
	}
	return err
}

// feedOpener serves a still image when one is configured, else the device.
func feedOpener(still string) booth.FeedOpener {
	if still != "" {
		return func(camera.Config) (camera.Feed, error) {
			return camera.OpenStill(still)
		}
	}
	return func(cfg camera.Config) (camera.Feed, error) {
		return opencv.OpenDevice(cfg)
	}
}
