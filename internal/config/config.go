// Package config loads the booth configuration from a file, the environment
// and command-line flags, in that order of precedence (lowest first).
package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the complete booth configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server" json:"server"`
	Canvas    CanvasConfig    `toml:"canvas" yaml:"canvas" json:"canvas"`
	Camera    CameraConfig    `toml:"camera" yaml:"camera" json:"camera"`
	Frames    FramesConfig    `toml:"frames" yaml:"frames" json:"frames"`
	Export    ExportConfig    `toml:"export" yaml:"export" json:"export"`
	Messaging MessagingConfig `toml:"messaging" yaml:"messaging" json:"messaging"`
	History   HistoryConfig   `toml:"history" yaml:"history" json:"history"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging" json:"logging"`
}

// ServerConfig configures the kiosk HTTP server.
type ServerConfig struct {
	Host           string `toml:"host" yaml:"host" json:"host"`
	Port           string `toml:"port" yaml:"port" json:"port"`
	StaticDir      string `toml:"static_dir" yaml:"static_dir" json:"static_dir"`
	UploadMaxBytes int    `toml:"upload_max_bytes" yaml:"upload_max_bytes" json:"upload_max_bytes"`
	SendPerMinute  int    `toml:"send_per_minute" yaml:"send_per_minute" json:"send_per_minute"`
	PreviewQuality int    `toml:"preview_quality" yaml:"preview_quality" json:"preview_quality"`
}

// Addr returns host:port for listening.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// CanvasConfig fixes the output picture size.
type CanvasConfig struct {
	Width      int    `toml:"width" yaml:"width" json:"width"`
	Height     int    `toml:"height" yaml:"height" json:"height"`
	Background string `toml:"background" yaml:"background" json:"background"`
}

// BackgroundColor parses Background as #RRGGBB.
func (c CanvasConfig) BackgroundColor() (color.NRGBA, error) {
	return ParseHexColor(c.Background)
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	DeviceID  int    `toml:"device_id" yaml:"device_id" json:"device_id"`
	Width     int    `toml:"width" yaml:"width" json:"width"`
	Height    int    `toml:"height" yaml:"height" json:"height"`
	Framerate int    `toml:"framerate" yaml:"framerate" json:"framerate"`
	Facing    string `toml:"facing" yaml:"facing" json:"facing"`
	Preset    string `toml:"preset" yaml:"preset" json:"preset"`

	// Still replaces the device with a fixed image file.
	Still string `toml:"still" yaml:"still" json:"still"`
}

// FramesConfig locates the frame catalog. URL wins over Dir when both are set.
type FramesConfig struct {
	Dir string `toml:"dir" yaml:"dir" json:"dir"`
	URL string `toml:"url" yaml:"url" json:"url"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Format  string  `toml:"format" yaml:"format" json:"format"`
	Quality float64 `toml:"quality" yaml:"quality" json:"quality"`
}

// MessagingConfig configures delivery.
type MessagingConfig struct {
	// GatewayURL is the chat gateway; empty means an offline mock sender.
	GatewayURL string `toml:"gateway_url" yaml:"gateway_url" json:"gateway_url"`
	TimeoutSec int    `toml:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	Thanks     string `toml:"thanks" yaml:"thanks" json:"thanks"`
}

// Timeout returns the gateway timeout.
func (m MessagingConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

// HistoryConfig locates the send log.
type HistoryConfig struct {
	Path          string `toml:"path" yaml:"path" json:"path"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days" json:"retention_days"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level" json:"level"`
}

// DefaultConfig mirrors the reference kiosk deployment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "3000",
			StaticDir:      "./public",
			UploadMaxBytes: 5 << 20,
			SendPerMinute:  30,
			PreviewQuality: 70,
		},
		Canvas: CanvasConfig{
			Width:      1396,
			Height:     1006,
			Background: "#000000",
		},
		Camera: CameraConfig{
			Width:     1280,
			Height:    720,
			Framerate: 30,
			Facing:    "user",
		},
		Frames: FramesConfig{
			Dir: "./public/frames",
		},
		Export: ExportConfig{
			Format:  "image/jpeg",
			Quality: 0.9,
		},
		Messaging: MessagingConfig{
			TimeoutSec: 30,
			Thanks:     "Thank you for visiting our photobooth ❤️",
		},
		History: HistoryConfig{
			Path:          "./data/history.db",
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ApplyEnvOverrides overlays PHOTOBOOTH_* variables and LOG_LEVEL.
func (c *Config) ApplyEnvOverrides() {
	c.Server.Port = EnvOr("PHOTOBOOTH_PORT", c.Server.Port)
	c.Server.Host = EnvOr("PHOTOBOOTH_HOST", c.Server.Host)
	c.Server.StaticDir = EnvOr("PHOTOBOOTH_STATIC_DIR", c.Server.StaticDir)
	c.Frames.Dir = EnvOr("PHOTOBOOTH_FRAMES_DIR", c.Frames.Dir)
	c.Frames.URL = EnvOr("PHOTOBOOTH_FRAMES_URL", c.Frames.URL)
	c.Messaging.GatewayURL = EnvOr("PHOTOBOOTH_GATEWAY_URL", c.Messaging.GatewayURL)
	c.History.Path = EnvOr("PHOTOBOOTH_DB", c.History.Path)
	c.Camera.Still = EnvOr("PHOTOBOOTH_STILL", c.Camera.Still)
	c.Logging.Level = EnvOr("LOG_LEVEL", c.Logging.Level)

	if v, ok := envInt("PHOTOBOOTH_CAMERA_DEVICE"); ok {
		c.Camera.DeviceID = v
	}
	if v := os.Getenv("PHOTOBOOTH_CAMERA_FACING"); v != "" {
		c.Camera.Facing = v
	}
}

// EnvOr returns the environment variable key, or def when unset.
func EnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseHexColor parses #RRGGBB (or RRGGBB) into an opaque colour.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("config: invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("config: invalid colour %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
