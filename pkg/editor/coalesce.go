package editor

import (
	"sync"
	"sync/atomic"
)

// Coalescer is a single-slot mailbox in front of one worker goroutine.
//
// Submit never blocks: a new value overwrites one that has not been picked up
// yet (counted as a drop). The worker handles values one at a time in
// submission order, so completions can never arrive out of order.
type Coalescer[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending T
	has     bool
	busy    bool
	closed  bool

	handle func(T)
	start  sync.Once
	done   chan struct{}

	drops   atomic.Uint64
	handled atomic.Uint64
}

// NewCoalescer creates a coalescer that passes values to handle. Call Start
// to launch the worker.
func NewCoalescer[T any](handle func(T)) *Coalescer[T] {
	c := &Coalescer[T]{
		handle: handle,
		done:   make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Start launches the worker goroutine. Extra calls are no-ops.
func (c *Coalescer[T]) Start() {
	c.start.Do(func() { go c.loop() })
}

// Submit queues v, replacing any value still waiting. It returns false after Close.
func (c *Coalescer[T]) Submit(v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if c.has {
		c.drops.Add(1)
	}
	c.pending = v
	c.has = true
	c.cond.Broadcast()
	return true
}

// Drain blocks until nothing is pending and the worker is idle, or the
// coalescer is closed.
func (c *Coalescer[T]) Drain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for (c.has || c.busy) && !c.closed {
		c.cond.Wait()
	}
}

// Close stops the worker after the value it is handling, discarding any pending
// one. It waits for the worker to exit if it was started.
func (c *Coalescer[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.has = false
	var zero T
	c.pending = zero
	c.cond.Broadcast()
	c.mu.Unlock()

	started := true
	c.start.Do(func() { started = false })
	if started {
		<-c.done
	}
}

// Drops returns how many submitted values were overwritten before handling.
func (c *Coalescer[T]) Drops() uint64 { return c.drops.Load() }

// Handled returns how many values the worker processed.
func (c *Coalescer[T]) Handled() uint64 { return c.handled.Load() }

func (c *Coalescer[T]) loop() {
	defer close(c.done)

	for {
		c.mu.Lock()
		for !c.has && !c.closed {
			c.cond.Wait()
		}
		if c.closed {
			c.busy = false
			c.cond.Broadcast()
			c.mu.Unlock()
			return
		}
		v := c.pending
		var zero T
		c.pending = zero
		c.has = false
		c.busy = true
		c.mu.Unlock()

		c.handle(v)
		c.handled.Add(1)

		c.mu.Lock()
		c.busy = false
		c.cond.Broadcast()
		c.mu.Unlock()
	}
}
