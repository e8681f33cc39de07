package editor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-photobooth/internal/log"
	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

// Session is the editing context for one booth user: the retained source, the
// current controls and frame, and the latest committed composition.
//
// Every compose re-renders from the retained source. Each compose request gets
// a sequence number and a result is committed only if nothing fresher has been
// committed already, so a slow compose can never overwrite a newer picture.
type Session struct {
	ID string

	compositor *Compositor
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  *Coalescer[composeRequest]

	mu        sync.Mutex
	source    *pixel.Buffer
	controls  Controls
	frameID   string
	seq       uint64 // last issued
	committed uint64 // last committed
	latest    *Composition
	onCommit  func(*Composition)

	notifyMu sync.Mutex
	notified uint64
}

type composeRequest struct {
	seq      uint64
	source   *pixel.Buffer
	frameID  string
	controls Controls
}

// NewSession creates a session around a compositor and starts its compose worker.
func NewSession(compositor *Compositor, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         uuid.NewString(),
		compositor: compositor,
		controls:   DefaultControls(),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.logger = log.Component(logger, "editor.session").With("session", s.ID)
	s.queue = NewCoalescer(s.handle)
	s.queue.Start()
	return s
}

// OnCommit registers a callback invoked after each committed composition.
// It runs outside the session lock.
func (s *Session) OnCommit(fn func(*Composition)) {
	s.mu.Lock()
	s.onCommit = fn
	s.mu.Unlock()
}

// Compositor returns the compositor backing the session.
func (s *Session) Compositor() *Compositor { return s.compositor }

// SetSource retains a copy of a freshly captured frame and composes it with the
// current controls and frame.
func (s *Session) SetSource(ctx context.Context, src *pixel.Buffer) (*Composition, error) {
	if src.Empty() {
		return nil, ErrEmptySource
	}
	s.mu.Lock()
	s.source = src.Clone()
	req := s.nextRequest()
	s.mu.Unlock()

	return s.run(ctx, req)
}

// HasSource reports whether a frame has been captured.
func (s *Session) HasSource() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source != nil
}

// Controls returns the current controls.
func (s *Session) Controls() Controls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls
}

// FrameID returns the selected frame.
func (s *Session) FrameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameID
}

// Latest returns the most recently committed composition, or nil.
func (s *Session) Latest() *Composition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Update applies a patch and recomposes synchronously. Invalid controls are
// rejected and leave the session state unchanged.
func (s *Session) Update(ctx context.Context, p Patch) (*Composition, error) {
	req, err := s.apply(p)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, req)
}

// Submit applies a patch and queues a recompose. Rapid submissions coalesce:
// only the freshest pending state is composed. Returns ErrNoSource when there
// is nothing to compose yet; the patch is still kept.
func (s *Session) Submit(p Patch) error {
	req, err := s.apply(p)
	if err != nil {
		return err
	}
	if !s.queue.Submit(req) {
		return ErrSessionClosed
	}
	return nil
}

// Flush waits until all submitted recomposes have been handled.
func (s *Session) Flush() {
	s.queue.Drain()
}

// Reset forgets the source, controls and frame. In-flight composes are
// discarded when they finish.
func (s *Session) Reset() {
	s.mu.Lock()
	s.source = nil
	s.controls = DefaultControls()
	s.frameID = ""
	s.latest = nil
	s.seq++
	s.committed = s.seq
	s.mu.Unlock()
	s.logger.Info("session reset")
}

// Close stops the compose worker.
func (s *Session) Close() {
	s.cancel()
	s.queue.Close()
}

// Dropped returns how many queued recomposes were superseded before running.
func (s *Session) Dropped() uint64 { return s.queue.Drops() }

func (s *Session) apply(p Patch) (composeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := p.Apply(s.controls)
	if err := next.Validate(); err != nil {
		return composeRequest{}, err
	}
	s.controls = next
	if p.FrameID != nil {
		s.frameID = *p.FrameID
	}
	if s.source == nil {
		return composeRequest{}, ErrNoSource
	}
	return s.nextRequest(), nil
}

// nextRequest snapshots the state. Caller holds s.mu.
func (s *Session) nextRequest() composeRequest {
	s.seq++
	return composeRequest{
		seq:      s.seq,
		source:   s.source,
		frameID:  s.frameID,
		controls: s.controls,
	}
}

func (s *Session) handle(req composeRequest) {
	s.mu.Lock()
	stale := req.seq <= s.committed
	s.mu.Unlock()
	if stale {
		return
	}
	if _, err := s.run(s.ctx, req); err != nil && s.ctx.Err() == nil {
		s.logger.Error("background compose failed", "seq", req.seq, "error", err)
	}
}

func (s *Session) run(ctx context.Context, req composeRequest) (*Composition, error) {
	comp, err := s.compositor.Compose(ctx, req.source, req.frameID, req.controls)
	if err != nil {
		return nil, err
	}
	comp.Seq = req.seq
	s.commit(comp)
	return comp, nil
}

func (s *Session) commit(comp *Composition) {
	s.mu.Lock()
	if comp.Seq <= s.committed {
		s.mu.Unlock()
		s.logger.Debug("discarding stale composition", "seq", comp.Seq)
		return
	}
	s.committed = comp.Seq
	s.latest = comp
	fn := s.onCommit
	s.mu.Unlock()

	if fn == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if comp.Seq > s.notified {
		s.notified = comp.Seq
		fn(comp)
	}
}
