package messaging

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Mock implements Sender and Controller for tests and offline kiosks.
// Function fields override the default behaviour.
type Mock struct {
	// SendFunc is called by Send. If nil, every recipient gets a random id.
	SendFunc func(ctx context.Context, req *Request) (*Result, error)

	mu       sync.Mutex
	status   Status
	requests []Request
}

// NewMock creates a connected mock.
func NewMock() *Mock {
	return &Mock{status: Status{State: StateConnected}}
}

// Send validates and records the request.
func (m *Mock) Send(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if !m.status.Ready() {
		m.mu.Unlock()
		return nil, ErrNotConnected
	}
	m.requests = append(m.requests, *req)
	fn := m.SendFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	ids := make([]string, len(req.Recipients))
	for i, to := range req.Recipients {
		ids[i] = "true_" + ChatID(to) + "_" + uuid.NewString()
	}
	return &Result{Success: true, MessageIDs: ids}, nil
}

// Status implements Sender.
func (m *Mock) Status(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

// SetStatus changes the reported state.
func (m *Mock) SetStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// QR implements Controller.
func (m *Mock) QR(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.State != StateQR || m.status.QR == "" {
		return "", ErrQRUnavailable
	}
	return m.status.QR, nil
}

// Logout implements Controller.
func (m *Mock) Logout(ctx context.Context) error {
	m.SetStatus(Status{State: StateDisconnected})
	return nil
}

// Reconnect implements Controller.
func (m *Mock) Reconnect(ctx context.Context) error {
	m.SetStatus(Status{State: StateConnected})
	return nil
}

// Requests returns the recorded requests.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
