package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-photobooth/internal/log"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"081234567890", true},
		{"0812345678", true},
		{"081234567", false},
		{"0812345678901", false},
		{"+6281234567890", true},
		{"+6281234567", true},
		{"+628123456", false},
		{"6281234567890", true},
		{"62812345678901", false},
		{"812345678", true},
		{"81234567", false},
		{"812345678901", false},
		{"1234567890", true},
		{"12345678", false},
		{"0812-3456-7890", true},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePhone(tt.number))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+6281234567890", "6281234567890"},
		{"081234567890", "6281234567890"},
		{"81234567890", "6281234567890"},
		{"0812-3456 7890", "6281234567890"},
		{"6281234", "6281234"},
		{"+15551234567", "15551234567"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestChatID(t *testing.T) {
	assert.Equal(t, "6281234567890@c.us", ChatID("081234567890"))
	assert.Equal(t, "6281234567890@c.us", ChatID("6281234567890@c.us"))
}

func TestValidateRecipients(t *testing.T) {
	assert.ErrorIs(t, ValidateRecipients(nil), ErrNoRecipients)
	assert.NoError(t, ValidateRecipients([]string{"081234567890", "+6281234567890"}))

	err := ValidateRecipients([]string{"081234567890", "123", "abc"})
	require.ErrorIs(t, err, ErrInvalidPhone)
	var inv *InvalidRecipientsError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, []string{"123", "abc"}, inv.Numbers)
	assert.Contains(t, err.Error(), "123, abc")
}

func TestSanitizeCaption(t *testing.T) {
	assert.Equal(t, "abc\nd\r", SanitizeCaption("a\tb\x00c\nd\r\x7f"))
	assert.Equal(t, "Selamat! ❤️", SanitizeCaption("Selamat! ❤️"))
	assert.Equal(t, "", SanitizeCaption(""))
}

func TestComposeCaption(t *testing.T) {
	assert.Equal(t, "Hi! Thanks", ComposeCaption("Hi! ", "Thanks"))
	assert.Equal(t, "Thanks", ComposeCaption("", "Thanks"))
	assert.Equal(t, "Hi\nThanks", ComposeCaption("Hi\x01\n", "Thanks"))

	long := ComposeCaption(strings.Repeat("x", MaxCaptionLength+10), "")
	assert.Len(t, []rune(long), MaxCaptionLength)
}

func TestRequestValidate(t *testing.T) {
	req := &Request{Recipients: []string{"081234567890"}}
	assert.ErrorIs(t, req.Validate(), ErrNoImage)

	req.Image = []byte{1}
	assert.NoError(t, req.Validate())

	req.Recipients = []string{"nope"}
	assert.ErrorIs(t, req.Validate(), ErrInvalidPhone)
}

func newGateway(t *testing.T, h http.HandlerFunc) *GatewaySender {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGatewaySender(srv.URL+"/", WithHTTPClient(srv.Client()), WithLogger(log.Discard()))
}

func TestGatewaySend(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/wa/send", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, []string{"6281234567890", "6289876543210"}, r.MultipartForm.Value["to"])
		assert.Equal(t, "Hello", r.FormValue("caption"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "shot.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte("PNGDATA"), data)

		json.NewEncoder(w).Encode(map[string]any{"success": true, "messageIds": []string{"m1", "m2"}})
	})

	res, err := g.Send(context.Background(), &Request{
		Image:      []byte("PNGDATA"),
		MimeType:   "image/png",
		Filename:   "shot.png",
		Recipients: []string{"081234567890", "+6289876543210"},
		Caption:    "Hello",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"m1", "m2"}, res.MessageIDs)
}

func TestGatewaySendRejectsBeforeNetwork(t *testing.T) {
	var called atomic.Bool
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) { called.Store(true) })

	_, err := g.Send(context.Background(), &Request{Image: []byte{1}, Recipients: []string{"12"}})
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.False(t, called.Load())
}

func TestGatewayAPIError(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "gateway not connected"})
	})

	_, err := g.Send(context.Background(), &Request{Image: []byte{1}, Recipients: []string{"081234567890"}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "gateway not connected", apiErr.Message)
	assert.False(t, apiErr.IsRetryable())
}

func TestGatewayUnsuccessfulResult(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "quota"})
	})

	res, err := g.Send(context.Background(), &Request{Image: []byte{1}, Recipients: []string{"081234567890"}})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "quota", res.Error)
}

func TestGatewayStatusAndControl(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/wa/status":
			json.NewEncoder(w).Encode(map[string]any{"state": "qr"})
		case "/api/wa/qr":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "qr": "2@abc"})
		default:
			json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "ok"})
		}
	})
	ctx := context.Background()

	st, err := g.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateQR, st.State)
	assert.False(t, st.Ready())

	qr, err := g.QR(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2@abc", qr)

	require.NoError(t, g.Logout(ctx))
	require.NoError(t, g.Reconnect(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"GET /api/wa/status",
		"GET /api/wa/qr",
		"POST /api/wa/logout",
		"POST /api/wa/reconnect",
	}, paths)
}

func TestGatewayQRUnavailable(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "no qr"})
	})

	_, err := g.QR(context.Background())
	assert.ErrorIs(t, err, ErrQRUnavailable)
}

func TestMock(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	res, err := m.Send(ctx, &Request{Image: []byte{1}, Recipients: []string{"081234567890"}})
	require.NoError(t, err)
	require.Len(t, res.MessageIDs, 1)
	assert.Contains(t, res.MessageIDs[0], "6281234567890@c.us")
	assert.Len(t, m.Requests(), 1)

	require.NoError(t, m.Logout(ctx))
	_, err = m.Send(ctx, &Request{Image: []byte{1}, Recipients: []string{"081234567890"}})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = m.QR(ctx)
	assert.ErrorIs(t, err, ErrQRUnavailable)
	m.SetStatus(Status{State: StateQR, QR: "code"})
	qr, err := m.QR(ctx)
	require.NoError(t, err)
	assert.Equal(t, "code", qr)

	var _ Sender = m
	var _ Controller = m
	var _ Sender = (*GatewaySender)(nil)
	var _ Controller = (*GatewaySender)(nil)
}
