package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/teslashibe/go-photobooth/internal/httpc"
	"github.com/teslashibe/go-photobooth/internal/log"
)

// Gateway endpoints, relative to the base URL.
const (
	pathSend      = "/api/wa/send"
	pathStatus    = "/api/wa/status"
	pathQR        = "/api/wa/qr"
	pathLogout    = "/api/wa/logout"
	pathReconnect = "/api/wa/reconnect"
)

// maxResponseSize bounds gateway responses.
const maxResponseSize = 1 << 20

// GatewaySender talks to a chat gateway over HTTP.
type GatewaySender struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// GatewayOption configures a GatewaySender.
type GatewayOption func(*GatewaySender)

// WithHTTPClient overrides the shared HTTP client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *GatewaySender) { g.http = c }
}

// WithTimeout uses a dedicated client with the given timeout.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *GatewaySender) { g.http = httpc.NewClient(d) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *GatewaySender) { g.logger = log.Component(l, "messaging.gateway") }
}

// NewGatewaySender creates a sender for the gateway at baseURL.
func NewGatewaySender(baseURL string, opts ...GatewayOption) *GatewaySender {
	g := &GatewaySender{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpc.Client,
		logger:  log.Component(nil, "messaging.gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type gatewayResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	MessageIDs []string `json:"messageIds"`
	State      State    `json:"state"`
	QR         string   `json:"qr"`
}

// Send uploads the picture as multipart form data: "file", one "to" per
// recipient and "caption".
func (g *GatewaySender) Send(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, fmt.Errorf("messaging: build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+pathSend, body)
	if err != nil {
		return nil, fmt.Errorf("messaging: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := g.do(httpReq)
	if err != nil {
		return nil, err
	}

	result := &Result{Success: resp.Success, MessageIDs: resp.MessageIDs}
	if !resp.Success {
		result.Error = resp.Message
		return result, fmt.Errorf("messaging: send failed: %s", resp.Message)
	}

	g.logger.Info("picture sent",
		"recipients", len(req.Recipients),
		"bytes", len(req.Image),
		"message_ids", len(resp.MessageIDs),
		"elapsed", time.Since(start),
	)
	return result, nil
}

// Status implements Sender.
func (g *GatewaySender) Status(ctx context.Context) (Status, error) {
	resp, err := g.call(ctx, http.MethodGet, pathStatus)
	if err != nil {
		return Status{}, err
	}
	return Status{State: resp.State}, nil
}

// QR returns the pending pairing code.
func (g *GatewaySender) QR(ctx context.Context) (string, error) {
	resp, err := g.call(ctx, http.MethodGet, pathQR)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return "", ErrQRUnavailable
		}
		return "", err
	}
	if resp.QR == "" {
		return "", ErrQRUnavailable
	}
	return resp.QR, nil
}

// Logout ends the gateway session.
func (g *GatewaySender) Logout(ctx context.Context) error {
	_, err := g.call(ctx, http.MethodPost, pathLogout)
	return err
}

// Reconnect asks the gateway to re-establish its session.
func (g *GatewaySender) Reconnect(ctx context.Context) error {
	_, err := g.call(ctx, http.MethodPost, pathReconnect)
	return err
}

func (g *GatewaySender) call(ctx context.Context, method, path string) (*gatewayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: build request: %w", err)
	}
	return g.do(req)
}

func (g *GatewaySender) do(req *http.Request) (*gatewayResponse, error) {
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("messaging: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("messaging: read response: %w", err)
	}

	var out gatewayResponse
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("messaging: decode response: %w", decodeErr)
	}
	return &out, nil
}

func encodeForm(req *Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := req.Filename
	if filename == "" {
		filename = "photobooth.jpg"
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", err
	}

	for _, to := range req.Recipients {
		if err := w.WriteField("to", NormalizePhone(to)); err != nil {
			return nil, "", err
		}
	}
	if req.Caption != "" {
		if err := w.WriteField("caption", req.Caption); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
