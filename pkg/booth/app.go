// Package booth wires the kiosk together: camera, editing session, frame
// catalog, exporter, sender, send history and the websocket hubs.
package booth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-photobooth/internal/config"
	"github.com/teslashibe/go-photobooth/internal/log"
	"github.com/teslashibe/go-photobooth/pkg/camera"
	"github.com/teslashibe/go-photobooth/pkg/editor"
	"github.com/teslashibe/go-photobooth/pkg/export"
	"github.com/teslashibe/go-photobooth/pkg/frames"
	"github.com/teslashibe/go-photobooth/pkg/history"
	"github.com/teslashibe/go-photobooth/pkg/hub"
	"github.com/teslashibe/go-photobooth/pkg/messaging"
)

// Errors returned by App operations.
var (
	// ErrNothingComposed is returned by Export and Send before any capture.
	ErrNothingComposed = errors.New("booth: nothing composed yet")

	// ErrUnsupportedUpload is returned for uploads that are not png, jpeg or webp.
	ErrUnsupportedUpload = errors.New("booth: unsupported upload type")

	// ErrNotSupported is returned when the sender has no session controls.
	ErrNotSupported = errors.New("booth: operation not supported by sender")

	// ErrUnknownFrame is returned by SelectFrame for ids outside the catalog.
	ErrUnknownFrame = errors.New("booth: unknown frame")
)

// Status event types broadcast on the status hub.
const (
	EventComposition = "composition"
	EventCamera      = "camera"
	EventGateway     = "gateway"
	EventReset       = "reset"
	EventSent        = "sent"
)

// gatewayPollInterval is how often Run refreshes the gateway state.
const gatewayPollInterval = 10 * time.Second

// FeedOpener opens a capture feed for a camera configuration.
type FeedOpener func(cfg camera.Config) (camera.Feed, error)

// App is one kiosk: a single camera, a single editing session and a sender.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	cameras  *camera.Manager
	source   *camera.Source
	openFeed FeedOpener

	frames   frames.Provider
	session  *editor.Session
	exporter *export.Exporter
	sender   messaging.Sender
	history  *history.Store

	preview *hub.Hub
	status  *hub.Hub

	mu      sync.Mutex
	gateway messaging.Status
	closed  bool
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = log.Component(l, "booth") }
}

// WithFeedOpener sets how capture feeds are opened. Without one the booth
// runs with no camera and Capture reports camera.ErrCaptureUnavailable.
func WithFeedOpener(fn FeedOpener) Option {
	return func(a *App) { a.openFeed = fn }
}

// WithFrames replaces the configured frame library.
func WithFrames(p frames.Provider) Option {
	return func(a *App) { a.frames = p }
}

// WithSender replaces the configured sender.
func WithSender(s messaging.Sender) Option {
	return func(a *App) { a.sender = s }
}

// WithExporter replaces the default exporter, e.g. to add webp.
func WithExporter(e *export.Exporter) Option {
	return func(a *App) { a.exporter = e }
}

// WithHistory uses an already opened store instead of cfg.History.Path.
func WithHistory(s *history.Store) Option {
	return func(a *App) { a.history = s }
}

// New builds the app from cfg. Collaborators not supplied through options
// are built from the configuration.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: log.Component(nil, "booth"),
	}
	for _, opt := range opts {
		opt(a)
	}

	camCfg, err := cameraConfig(cfg.Camera)
	if err != nil {
		return nil, err
	}
	a.cameras = camera.NewManager(camCfg)
	a.source = camera.NewSource(a.logger)

	if a.frames == nil {
		a.frames = newLibrary(cfg.Frames, a.logger)
	}
	if a.exporter == nil {
		a.exporter = export.New(export.WithLogger(a.logger))
	}
	if a.sender == nil {
		a.sender = newSender(cfg.Messaging, a.logger)
	}
	if a.history == nil && cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.history = store
	}

	bg, err := cfg.Canvas.BackgroundColor()
	if err != nil {
		return nil, err
	}
	compositor, err := editor.NewCompositor(cfg.Canvas.Width, cfg.Canvas.Height,
		editor.WithOverlays(a.frames),
		editor.WithBackground(bg),
		editor.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	a.preview = hub.New("preview", hub.WithLogger(a.logger), hub.WithReplay())
	a.status = hub.New("status", hub.WithLogger(a.logger))
	a.session = editor.NewSession(compositor, a.logger)
	a.session.OnCommit(a.publish)

	return a, nil
}

// Init opens the camera and prunes old history. A camera that fails to open
// is logged, not fatal: the kiosk still serves its API.
func (a *App) Init(ctx context.Context) error {
	a.cameras.OnConfigChange = a.rebind
	if err := a.rebind(a.cameras.GetConfig()); err != nil {
		a.logger.Warn("camera unavailable", "error", err)
	}

	if a.history != nil && a.cfg.History.RetentionDays > 0 {
		before := time.Now().AddDate(0, 0, -a.cfg.History.RetentionDays)
		n, err := a.history.Prune(ctx, before)
		if err != nil {
			return err
		}
		if n > 0 {
			a.logger.Info("pruned send history", "removed", n)
		}
	}
	return nil
}

// Run drives the hubs and polls the gateway until ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	go a.preview.Run(ctx)
	go a.status.Run(ctx)

	ticker := time.NewTicker(gatewayPollInterval)
	defer ticker.Stop()

	a.refreshGateway(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.refreshGateway(ctx)
		}
	}
}

// Shutdown releases the camera, the session and the history store.
func (a *App) Shutdown() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.session.Close()
	var errs []error
	if err := a.source.Unbind(); err != nil {
		errs = append(errs, fmt.Errorf("booth: close camera: %w", err))
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("booth: close history: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config { return a.cfg }

// Session returns the editing session.
func (a *App) Session() *editor.Session { return a.session }

// PreviewHub carries binary JPEG previews.
func (a *App) PreviewHub() *hub.Hub { return a.preview }

// StatusHub carries JSON status events.
func (a *App) StatusHub() *hub.Hub { return a.status }

// Exporter returns the exporter.
func (a *App) Exporter() *export.Exporter { return a.exporter }

func cameraConfig(c config.CameraConfig) (camera.Config, error) {
	cfg := camera.DefaultConfig()
	if c.Preset != "" {
		p := camera.GetPreset(c.Preset)
		if p == nil {
			return camera.Config{}, fmt.Errorf("booth: unknown camera preset %q", c.Preset)
		}
		cfg = *p
	}
	cfg.DeviceID = c.DeviceID
	// a preset fixes the capture mode
	if c.Preset == "" {
		if c.Width > 0 {
			cfg.Width = c.Width
		}
		if c.Height > 0 {
			cfg.Height = c.Height
		}
		if c.Framerate > 0 {
			cfg.Framerate = c.Framerate
		}
	}
	if c.Facing != "" {
		mode, err := camera.ParseFacingMode(c.Facing)
		if err != nil {
			return camera.Config{}, err
		}
		cfg.Facing = mode
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return camera.Config{}, fmt.Errorf("booth: camera config: %v", errs)
	}
	return cfg, nil
}

func newLibrary(c config.FramesConfig, logger *slog.Logger) *frames.Library {
	var src frames.Source = frames.DirSource{Root: c.Dir}
	if c.URL != "" {
		src = frames.NewHTTPSource(c.URL)
	}
	return frames.NewLibrary(src, frames.WithLogger(logger))
}

func newSender(c config.MessagingConfig, logger *slog.Logger) messaging.Sender {
	if c.GatewayURL == "" {
		logger.Warn("no gateway configured, pictures will not leave the kiosk")
		return messaging.NewMock()
	}
	return messaging.NewGatewaySender(c.GatewayURL,
		messaging.WithTimeout(c.Timeout()),
		messaging.WithLogger(logger),
	)
}
