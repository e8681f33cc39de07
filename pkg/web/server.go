// Package web serves the kiosk API: capture, editing, export and delivery
// over HTTP, and live previews and status over websockets.
package web

import (
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-photobooth/internal/log"
	"github.com/teslashibe/go-photobooth/pkg/booth"
	"github.com/teslashibe/go-photobooth/pkg/hub"
)

// multipartSlack covers form fields and boundaries around an upload.
const multipartSlack = 64 << 10

// Server is the kiosk HTTP server.
type Server struct {
	app    *fiber.App
	booth  *booth.App
	addr   string
	logger *slog.Logger

	uploadMax  int
	requestLog bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = log.Component(l, "web") }
}

// WithRequestLogging logs every request line.
func WithRequestLogging() Option {
	return func(s *Server) { s.requestLog = true }
}

// WithAddr overrides the listen address from the configuration.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// NewServer builds the fiber app around b.
func NewServer(b *booth.App, opts ...Option) *Server {
	cfg := b.Config().Server
	s := &Server{
		booth:     b,
		addr:      cfg.Addr(),
		logger:    log.Component(nil, "web"),
		uploadMax: cfg.UploadMaxBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "Photobooth",
		DisableStartupMessage: true,
		BodyLimit:             cfg.UploadMaxBytes + multipartSlack,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if s.requestLog {
		app.Use(logger.New())
	}

	// fixed window per client IP
	sendLimit := limiter.New(limiter.Config{
		Max:        cfg.SendPerMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(envelope{
				Success: false,
				Message: "too many requests, try again later",
			})
		},
	})

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/frames", s.handleFrames)
	api.Put("/frame", s.handleSelectFrame)
	api.Post("/capture", s.handleCapture)
	api.Get("/camera", s.handleCamera)
	api.Put("/camera", s.handleUpdateCamera)
	api.Post("/camera/switch", s.handleSwitchCamera)
	api.Put("/controls", s.handleControls)
	api.Get("/composition", s.handleComposition)
	api.Get("/export", s.handleExport)
	api.Post("/send", sendLimit, s.handleSend)
	api.Post("/reset", s.handleReset)
	api.Get("/history", s.handleHistory)

	wa := api.Group("/wa")
	wa.Get("/status", s.handleGatewayStatus)
	wa.Get("/qr", s.handleGatewayQR)
	wa.Post("/logout", s.handleGatewayLogout)
	wa.Post("/reconnect", s.handleGatewayReconnect)
	wa.Post("/send", sendLimit, s.handleUploadSend)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/preview", websocket.New(s.serveHub(b.PreviewHub())))
	app.Get("/ws/status", websocket.New(s.serveHub(b.StatusHub())))

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client := hub.NewClient(h, conn)
		if client == nil {
			conn.Close()
			return
		}
		client.Run()
	}
}
