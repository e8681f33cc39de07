package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-photobooth/internal/log"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu      sync.Mutex
	writes  []Message
	closed  chan struct{}
	once    sync.Once
	written chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{}), written: make(chan struct{}, 64)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch t {
	case websocket.TextMessage:
		f.writes = append(f.writes, NewJSONMessage(data))
	case websocket.BinaryMessage:
		f.writes = append(f.writes, NewBinaryMessage(data))
	default:
		return nil
	}
	f.written <- struct{}{}
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.writes...)
}

func (f *fakeConn) waitWrites(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.written:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for write %d", i+1)
		}
	}
}

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New("test", append([]Option{WithLogger(log.Discard())}, opts...)...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h
}

func connect(t *testing.T, h *Hub) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	c := NewClient(h, conn)
	require.NotNil(t, c)
	go c.Run()
	return conn
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := startHub(t)
	a := connect(t, h)
	b := connect(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	h.BroadcastBinary([]byte{0xff, 0xd8})
	require.NoError(t, h.BroadcastEvent("commit", map[string]int{"seq": 3}))

	for _, conn := range []*fakeConn{a, b} {
		conn.waitWrites(t, 2)
		got := conn.messages()
		assert.Equal(t, BinaryMessage, got[0].Type)
		assert.Equal(t, []byte{0xff, 0xd8}, got[0].Data)

		var ev struct {
			Type string         `json:"type"`
			Data map[string]int `json:"data"`
		}
		require.NoError(t, json.Unmarshal(got[1].Data, &ev))
		assert.Equal(t, "commit", ev.Type)
		assert.Equal(t, 3, ev.Data["seq"])
	}
	assert.Equal(t, uint64(4), h.Stats().Sent)
}

func TestReplayGreetsNewClient(t *testing.T) {
	h := startHub(t, WithReplay())
	first := connect(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.BroadcastBinary([]byte("one"))
	h.BroadcastBinary([]byte("two"))
	first.waitWrites(t, 2)

	late := connect(t, h)
	late.waitWrites(t, 1)
	assert.Equal(t, []byte("two"), late.messages()[0].Data)
}

func TestDisconnectUnregisters(t *testing.T) {
	h := startHub(t)
	conn := connect(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStoppedHubRejectsClients(t *testing.T) {
	h := New("stopped", WithLogger(log.Discard()))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	cancel()
	<-h.Done()

	assert.False(t, h.IsRunning())
	assert.Nil(t, NewClient(h, newFakeConn()))
}
