package booth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"github.com/teslashibe/go-photobooth/pkg/camera"
	"github.com/teslashibe/go-photobooth/pkg/editor"
	"github.com/teslashibe/go-photobooth/pkg/export"
	"github.com/teslashibe/go-photobooth/pkg/frames"
	"github.com/teslashibe/go-photobooth/pkg/history"
	"github.com/teslashibe/go-photobooth/pkg/messaging"
)

// Capture grabs a frame from the camera, makes it the session source and
// composes it with the current controls and frame.
func (a *App) Capture(ctx context.Context) (*editor.Composition, error) {
	buf, err := a.source.GrabFrame(ctx)
	if err != nil {
		return nil, err
	}
	comp, err := a.session.SetSource(ctx, buf)
	if err != nil {
		return nil, err
	}
	a.logger.Info("captured",
		"width", buf.Width(),
		"height", buf.Height(),
		"facing", a.source.Facing(),
		"seq", comp.Seq,
	)
	return comp, nil
}

// UpdateControls queues a recompose with the patch applied. Rapid slider
// updates coalesce; results arrive on the preview hub. A patch sent before
// the first capture is kept and editor.ErrNoSource is returned.
func (a *App) UpdateControls(p editor.Patch) error {
	return a.session.Submit(p)
}

// UpdateControlsSync applies the patch and waits for the recompose.
func (a *App) UpdateControlsSync(ctx context.Context, p editor.Patch) (*editor.Composition, error) {
	return a.session.Update(ctx, p)
}

// SelectFrame switches the overlay. An empty id removes it. Before the first
// capture the choice is stored and a nil composition is returned.
func (a *App) SelectFrame(ctx context.Context, id string) (*editor.Composition, error) {
	if id != "" {
		list, err := a.frames.List(ctx)
		if err != nil {
			return nil, err
		}
		if !slices.ContainsFunc(list, func(f frames.Frame) bool { return f.ID == id }) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, id)
		}
	}

	comp, err := a.session.Update(ctx, editor.Patch{FrameID: editor.String(id)})
	if errors.Is(err, editor.ErrNoSource) {
		return nil, nil
	}
	return comp, err
}

// Frames lists the frame catalog.
func (a *App) Frames(ctx context.Context) ([]frames.Frame, error) {
	return a.frames.List(ctx)
}

// Composition returns the latest committed composition, or nil.
func (a *App) Composition() *editor.Composition {
	return a.session.Latest()
}

// Export encodes the latest composition once queued control updates have
// been composed. An empty mime type and an out of range quality fall back to
// the configured defaults.
func (a *App) Export(mimeType string, quality float64) (*export.Result, error) {
	a.session.Flush()
	comp := a.session.Latest()
	if comp == nil {
		return nil, ErrNothingComposed
	}
	if mimeType == "" {
		mimeType = a.cfg.Export.Format
	}
	if !(quality > 0 && quality <= 1) {
		quality = a.cfg.Export.Quality
	}
	return a.exporter.Encode(comp.Canvas, mimeType, quality)
}

// SendRequest asks for the current picture to be delivered.
type SendRequest struct {
	Recipients []string `json:"to"`
	Caption    string   `json:"caption"`
	Format     string   `json:"format"`
	Quality    float64  `json:"quality"`
}

// Send exports the latest composition and delivers it. Every attempt that
// reaches the sender is recorded in the history.
func (a *App) Send(ctx context.Context, req SendRequest) (*messaging.Result, error) {
	if err := messaging.ValidateRecipients(req.Recipients); err != nil {
		return nil, err
	}
	res, err := a.Export(req.Format, req.Quality)
	if err != nil {
		return nil, err
	}
	frameID := a.session.FrameID()
	return a.deliver(ctx, res.Data, res.MimeType, export.Filename(time.Now(), res.MimeType), req.Recipients, req.Caption, frameID)
}

// SendImage delivers an uploaded picture. The content must sniff as png,
// jpeg or webp; the declared type is ignored.
func (a *App) SendImage(ctx context.Context, data []byte, filename string, recipients []string, caption string) (*messaging.Result, error) {
	if len(data) == 0 {
		return nil, messaging.ErrNoImage
	}
	if err := messaging.ValidateRecipients(recipients); err != nil {
		return nil, err
	}
	mimeType, err := sniffUpload(data)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		filename = export.Filename(time.Now(), mimeType)
	}
	return a.deliver(ctx, data, mimeType, filename, recipients, caption, "")
}

func (a *App) deliver(ctx context.Context, data []byte, mimeType, filename string, recipients []string, caption, frameID string) (*messaging.Result, error) {
	req := &messaging.Request{
		Image:      data,
		MimeType:   mimeType,
		Filename:   filename,
		Recipients: recipients,
		Caption:    messaging.ComposeCaption(caption, a.cfg.Messaging.Thanks),
	}

	start := time.Now()
	result, err := a.sender.Send(ctx, req)

	entry := &history.Entry{
		Recipients: recipients,
		Caption:    caption,
		FrameID:    frameID,
		MimeType:   mimeType,
		Size:       len(data),
	}
	switch {
	case err != nil:
		entry.Error = err.Error()
	case result != nil:
		entry.Success = result.Success
		entry.MessageIDs = result.MessageIDs
		entry.Error = result.Error
	}
	a.record(entry)

	if err != nil {
		a.logger.Warn("send failed", "recipients", len(recipients), "error", err)
		return result, err
	}
	a.logger.Info("sent",
		"recipients", len(recipients),
		"bytes", len(data),
		"elapsed", time.Since(start),
	)
	a.event(EventSent, map[string]any{"recipients": len(recipients), "success": result.Success})
	return result, nil
}

// record writes to the history on a fresh context: a cancelled request
// still leaves a trace of the attempt.
func (a *App) record(e *history.Entry) {
	if a.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.history.Record(ctx, e); err != nil {
		a.logger.Error("recording send", "error", err)
	}
}

// History returns recent sends, newest first.
func (a *App) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if a.history == nil {
		return []history.Entry{}, nil
	}
	return a.history.Recent(ctx, limit)
}

// Reset clears the session for the next visitor.
func (a *App) Reset() {
	a.session.Reset()
	a.preview.ForgetReplay()
	a.event(EventReset, nil)
}

// SwitchCamera toggles between the front and rear camera.
func (a *App) SwitchCamera(ctx context.Context) (camera.FacingMode, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return a.cameras.SwitchFacing()
}

// CameraConfig returns the active camera configuration.
func (a *App) CameraConfig() camera.Config {
	return a.cameras.GetConfig()
}

// UpdateCamera changes camera settings at runtime, reopening the feed.
func (a *App) UpdateCamera(params map[string]any) error {
	return a.cameras.UpdateConfig(params)
}

// rebind opens a feed for cfg and binds it to the source.
func (a *App) rebind(cfg camera.Config) error {
	if a.openFeed == nil {
		return a.source.SetFacing(cfg.Facing)
	}
	feed, err := a.openFeed(cfg)
	if err != nil {
		return err
	}
	if err := a.source.Bind(feed, cfg.Facing); err != nil {
		feed.Close()
		return err
	}
	a.event(EventCamera, map[string]any{"facing": cfg.Facing, "device_id": cfg.DeviceID})
	return nil
}

// GatewayStatus asks the sender for its session state.
func (a *App) GatewayStatus(ctx context.Context) (messaging.Status, error) {
	return a.sender.Status(ctx)
}

// GatewayQR returns the pending pairing code.
func (a *App) GatewayQR(ctx context.Context) (string, error) {
	c, ok := a.sender.(messaging.Controller)
	if !ok {
		return "", ErrNotSupported
	}
	return c.QR(ctx)
}

// GatewayLogout ends the gateway session.
func (a *App) GatewayLogout(ctx context.Context) error {
	c, ok := a.sender.(messaging.Controller)
	if !ok {
		return ErrNotSupported
	}
	return c.Logout(ctx)
}

// GatewayReconnect restarts the gateway session.
func (a *App) GatewayReconnect(ctx context.Context) error {
	c, ok := a.sender.(messaging.Controller)
	if !ok {
		return ErrNotSupported
	}
	return c.Reconnect(ctx)
}

// Preview encodes a small JPEG of comp for the preview hub.
func (a *App) Preview(comp *editor.Composition) ([]byte, error) {
	res, err := a.exporter.Encode(comp.Canvas, export.MimeJPEG, float64(a.cfg.Server.PreviewQuality)/100)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// publish runs after every committed composition, in commit order.
func (a *App) publish(comp *editor.Composition) {
	data, err := a.Preview(comp)
	if err != nil {
		a.logger.Error("encoding preview", "seq", comp.Seq, "error", err)
	} else {
		a.preview.BroadcastBinary(data)
	}

	warnings := make([]string, len(comp.Warnings))
	for i, w := range comp.Warnings {
		warnings[i] = w.Error()
	}
	a.event(EventComposition, map[string]any{
		"seq":      comp.Seq,
		"frame_id": comp.FrameID,
		"controls": comp.Controls,
		"warnings": warnings,
	})
}

func (a *App) refreshGateway(ctx context.Context) {
	st, err := a.sender.Status(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Debug("gateway status", "error", err)
		}
		st = messaging.Status{State: messaging.StateDisconnected}
	}

	a.mu.Lock()
	changed := st.State != a.gateway.State
	a.gateway = st
	a.mu.Unlock()

	if changed {
		a.logger.Info("gateway state", "state", st.State)
		a.event(EventGateway, st)
	}
}

func (a *App) event(typ string, data any) {
	if err := a.status.BroadcastEvent(typ, data); err != nil {
		a.logger.Error("broadcasting event", "type", typ, "error", err)
	}
}

func sniffUpload(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedUpload, err)
	}
	switch kind {
	case matchers.TypeJpeg, matchers.TypePng, matchers.TypeWebp:
		return kind.MIME.Value, nil
	}
	if kind == filetype.Unknown {
		return "", fmt.Errorf("%w: unrecognised content", ErrUnsupportedUpload)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedUpload, kind.MIME.Value)
}
