package device

import (
	"context"
	"sync"
)

// A Coordinator counts the nodes that still have unacknowledged work. The
// simulation is over once the count comes back to zero.
//
// Every node registers before any device starts running, so the count can
// only reach zero after all the nodes are done.
type Coordinator struct {
	lock        sync.Mutex
	outstanding int
	registered  int
	quiescent   chan struct{}
	closed      bool
}

// NewCoordinator creates a Coordinator with no outstanding work.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		quiescent: make(chan struct{}),
	}
}

// Register adds one unit of outstanding work.
func (c *Coordinator) Register() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		panic("cannot register after the coordinator became quiescent")
	}

	c.outstanding++
	c.registered++
}

// Deregister removes one unit of outstanding work.
func (c *Coordinator) Deregister() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.outstanding == 0 {
		panic("deregister without register")
	}

	c.outstanding--
	if c.outstanding == 0 {
		c.closed = true
		close(c.quiescent)
	}
}

// Outstanding returns the number of units of work not finished yet.
func (c *Coordinator) Outstanding() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.outstanding
}

// Registered returns how many units of work were ever registered.
func (c *Coordinator) Registered() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.registered
}

// Quiescent returns a channel that is closed when all the registered work is
// done.
func (c *Coordinator) Quiescent() <-chan struct{} {
	return c.quiescent
}

// IsQuiescent tells if all the registered work is done.
func (c *Coordinator) IsQuiescent() bool {
	select {
	case <-c.quiescent:
		return true
	default:
		return false
	}
}

// Wait blocks until all the registered work is done or ctx is cancelled. If
// nothing was ever registered it returns immediately.
func (c *Coordinator) Wait(ctx context.Context) error {
	if c.Registered() == 0 {
		return nil
	}

	select {
	case <-c.quiescent:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
