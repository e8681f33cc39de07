package web

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-photobooth/pkg/booth"
	"github.com/teslashibe/go-photobooth/pkg/camera"
	"github.com/teslashibe/go-photobooth/pkg/editor"
	"github.com/teslashibe/go-photobooth/pkg/export"
	"github.com/teslashibe/go-photobooth/pkg/frames"
	"github.com/teslashibe/go-photobooth/pkg/messaging"
)

// envelope is the response shape every JSON endpoint shares.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// compositionView is the JSON summary of a composition.
type compositionView struct {
	Seq       uint64           `json:"seq"`
	FrameID   string           `json:"frame_id"`
	Controls  editor.Controls  `json:"controls"`
	Placement editor.Placement `json:"placement"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Warnings  []string         `json:"warnings"`
}

func viewOf(comp *editor.Composition) *compositionView {
	if comp == nil {
		return nil
	}
	v := &compositionView{
		Seq:       comp.Seq,
		FrameID:   comp.FrameID,
		Controls:  comp.Controls,
		Placement: comp.Placement,
		Width:     comp.Canvas.Width(),
		Height:    comp.Canvas.Height(),
		Warnings:  make([]string, len(comp.Warnings)),
	}
	for i, w := range comp.Warnings {
		v.Warnings[i] = w.Error()
	}
	return v
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"preview": s.booth.PreviewHub().Stats(),
		"status":  s.booth.StatusHub().Stats(),
		"dropped": s.booth.Session().Dropped(),
	})
}

func (s *Server) handleFrames(c *fiber.Ctx) error {
	list, err := s.booth.Frames(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "frames": list})
}

type selectFrameRequest struct {
	FrameID string `json:"frame_id"`
}

func (s *Server) handleSelectFrame(c *fiber.Ctx) error {
	var req selectFrameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	comp, err := s.booth.SelectFrame(c.UserContext(), req.FrameID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "composition": viewOf(comp)})
}

func (s *Server) handleCapture(c *fiber.Ctx) error {
	comp, err := s.booth.Capture(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "composition": viewOf(comp)})
}

func (s *Server) handleCamera(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "camera": s.booth.CameraConfig()})
}

func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	var params map[string]any
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := s.booth.UpdateCamera(params); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "camera": s.booth.CameraConfig()})
}

func (s *Server) handleSwitchCamera(c *fiber.Ctx) error {
	mode, err := s.booth.SwitchCamera(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "facing": mode})
}

// handleControls queues a recompose; the picture arrives on /ws/preview.
// With ?sync=true it waits and returns the composition instead.
func (s *Server) handleControls(c *fiber.Ctx) error {
	var p editor.Patch
	if err := c.BodyParser(&p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	if c.QueryBool("sync") {
		comp, err := s.booth.UpdateControlsSync(c.UserContext(), p)
		if err != nil && !errors.Is(err, editor.ErrNoSource) {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "composition": viewOf(comp)})
	}

	err := s.booth.UpdateControls(p)
	switch {
	case errors.Is(err, editor.ErrNoSource):
		return c.JSON(envelope{Success: true, Message: "saved, nothing captured yet"})
	case err != nil:
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(envelope{Success: true, Message: "queued"})
}

func (s *Server) handleComposition(c *fiber.Ctx) error {
	comp := s.booth.Composition()
	if comp == nil {
		return booth.ErrNothingComposed
	}
	return c.JSON(fiber.Map{"success": true, "composition": viewOf(comp)})
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	quality := c.QueryFloat("quality", 0)
	res, err := s.booth.Export(c.Query("format"), quality)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, res.MimeType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.Filename(time.Now(), res.MimeType)))
	return c.Send(res.Data)
}

func (s *Server) handleSend(c *fiber.Ctx) error {
	var req booth.SendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	res, err := s.booth.Send(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	s.booth.Reset()
	return c.JSON(envelope{Success: true, Message: "session reset"})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	entries, err := s.booth.History(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "history": entries})
}

func (s *Server) handleGatewayStatus(c *fiber.Ctx) error {
	st, err := s.booth.GatewayStatus(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"state": st.State})
}

func (s *Server) handleGatewayQR(c *fiber.Ctx) error {
	qr, err := s.booth.GatewayQR(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "qr": qr})
}

func (s *Server) handleGatewayLogout(c *fiber.Ctx) error {
	if err := s.booth.GatewayLogout(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(envelope{Success: true, Message: "logged out"})
}

func (s *Server) handleGatewayReconnect(c *fiber.Ctx) error {
	if err := s.booth.GatewayReconnect(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(envelope{Success: true, Message: "reconnecting"})
}

// handleUploadSend delivers a picture uploaded as multipart "file" to the
// numbers in "to" (repeatable, "to[]" also accepted) with an optional caption.
func (s *Server) handleUploadSend(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required")
	}

	recipients := slices.Concat(form.Value["to"], form.Value["to[]"])
	if err := messaging.ValidateRecipients(recipients); err != nil {
		return err
	}

	files := form.File["file"]
	if len(files) == 0 {
		return messaging.ErrNoImage
	}
	fh := files[0]
	if fh.Size > int64(s.uploadMax) {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d bytes", s.uploadMax))
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var caption string
	if v := form.Value["caption"]; len(v) > 0 {
		caption = v[0]
	}

	res, err := s.booth.SendImage(c.UserContext(), data, fh.Filename, recipients, caption)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// handleError maps domain errors onto status codes and writes the envelope.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	msg := err.Error()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
	}
	return c.Status(code).JSON(envelope{Success: false, Message: msg})
}

func statusFor(err error) int {
	var (
		fe  *fiber.Error
		api *messaging.APIError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, editor.ErrInvalidControls),
		errors.Is(err, messaging.ErrInvalidPhone),
		errors.Is(err, messaging.ErrNoRecipients),
		errors.Is(err, messaging.ErrNoImage),
		errors.Is(err, export.ErrEncoding),
		errors.Is(err, camera.ErrInvalidConfig):
		return fiber.StatusBadRequest
	case errors.Is(err, booth.ErrUnknownFrame),
		errors.Is(err, frames.ErrNotFound),
		errors.Is(err, messaging.ErrQRUnavailable):
		return fiber.StatusNotFound
	case errors.Is(err, booth.ErrNothingComposed),
		errors.Is(err, editor.ErrNoSource):
		return fiber.StatusConflict
	case errors.Is(err, booth.ErrUnsupportedUpload):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, booth.ErrNotSupported):
		return fiber.StatusNotImplemented
	case errors.Is(err, camera.ErrCaptureUnavailable),
		errors.Is(err, messaging.ErrNotConnected):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &api):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
