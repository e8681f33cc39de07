package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i := range e {
		msgs[i] = e[i].Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate returns ValidationErrors listing every problem, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
		add("server.port", "must be 1-65535, got %q", c.Server.Port)
	}
	if c.Server.UploadMaxBytes <= 0 {
		add("server.upload_max_bytes", "must be positive")
	}
	if c.Server.SendPerMinute <= 0 {
		add("server.send_per_minute", "must be positive")
	}
	if c.Server.PreviewQuality < 1 || c.Server.PreviewQuality > 100 {
		add("server.preview_quality", "must be 1-100, got %d", c.Server.PreviewQuality)
	}

	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		add("canvas", "size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.Width > 8192 || c.Canvas.Height > 8192 {
		add("canvas", "size must be at most 8192x8192, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if _, err := c.Canvas.BackgroundColor(); err != nil {
		add("canvas.background", "must be #RRGGBB, got %q", c.Canvas.Background)
	}

	if c.Camera.DeviceID < 0 {
		add("camera.device_id", "must be >= 0")
	}
	if c.Camera.Facing != "user" && c.Camera.Facing != "environment" {
		add("camera.facing", "must be user or environment, got %q", c.Camera.Facing)
	}

	if c.Frames.Dir == "" && c.Frames.URL == "" {
		add("frames", "dir or url is required")
	}
	if c.Frames.URL != "" {
		if u, err := url.Parse(c.Frames.URL); err != nil || u.Scheme == "" || u.Host == "" {
			add("frames.url", "must be an absolute URL, got %q", c.Frames.URL)
		}
	}

	if !(c.Export.Quality > 0 && c.Export.Quality <= 1) {
		add("export.quality", "must be in (0, 1], got %v", c.Export.Quality)
	}
	switch strings.ToLower(c.Export.Format) {
	case "image/jpeg", "image/png", "image/webp":
	default:
		add("export.format", "unsupported %q", c.Export.Format)
	}

	if c.Messaging.GatewayURL != "" {
		if u, err := url.Parse(c.Messaging.GatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("messaging.gateway_url", "must be an absolute URL, got %q", c.Messaging.GatewayURL)
		}
	}
	if c.Messaging.TimeoutSec <= 0 {
		add("messaging.timeout_sec", "must be positive")
	}

	if c.History.RetentionDays < 0 {
		add("history.retention_days", "must be >= 0")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "unknown level %q", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
