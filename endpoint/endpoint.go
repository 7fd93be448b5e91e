// Package endpoint provides the nodes that originate and consume messages.
//
// A node keeps every message it sent until an acknowledgement comes back. If
// nothing comes back in time, it asks the destination with a resend request,
// which carries the whole message again. A negative acknowledgement makes the
// node retransmit the original frame right away.
package endpoint

import (
	"fmt"
	"sync"
	"time"

	"github.com/sarchlab/bridgesim/config"
	"github.com/sarchlab/bridgesim/delivery"
	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/fault"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/timing"
	"github.com/sarchlab/bridgesim/wiring"
)

// An entry is a message waiting for its acknowledgement.
type entry struct {
	sentAt time.Time
	frame  frame.Frame
}

// receivedKey tells apart the messages already delivered.
type receivedKey struct {
	src, dst frame.Address
	data     string
}

func keyOf(f frame.Frame) receivedKey {
	return receivedKey{src: f.Src(), dst: f.Dest(), data: f.Payload}
}

// Comp is a node.
type Comp struct {
	*device.Base

	medium     device.Medium
	sink       delivery.Sink
	timeTeller timing.TimeTeller
	timeout    time.Duration
	messages   []config.Outbound
	corrupt    fault.Injector
	ignore     fault.Injector

	lock     sync.Mutex
	pending  []entry
	received map[receivedKey]bool
}

// Messages returns the messages the node sends when it starts.
func (c *Comp) Messages() []config.Outbound {
	return c.messages
}

// Pending returns the messages not acknowledged yet, oldest first.
func (c *Comp) Pending() []frame.Frame {
	c.lock.Lock()
	defer c.lock.Unlock()

	frames := make([]frame.Frame, 0, len(c.pending))
	for _, e := range c.pending {
		frames = append(frames, e.frame)
	}

	return frames
}

// Received returns how many distinct messages the node has delivered.
func (c *Comp) Received() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.received)
}

// State is a point-in-time view of a node.
type State struct {
	Name     string
	Alive    bool
	Messages []string
	Pending  []string
	Received int
}

// State copies the node state while no frame is being handled.
func (c *Comp) State() any {
	c.lock.Lock()
	defer c.lock.Unlock()

	s := State{
		Name:     c.Name(),
		Alive:    c.IsAlive(),
		Received: len(c.received),
	}

	for _, m := range c.messages {
		s.Messages = append(s.Messages, m.String())
	}

	for _, e := range c.pending {
		s.Pending = append(s.Pending, e.frame.String())
	}

	return s
}

// InitMessages sends all the initial messages. A node without messages is
// done right away.
func (c *Comp) InitMessages() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, m := range c.messages {
		f, err := frame.MakeMessage(m.Dest, c.Address(),
			frame.DefaultMarker, m.Text)
		if err != nil {
			return fmt.Errorf("node %s: message %q: %w", c.Name(), m, err)
		}

		c.pending = append(c.pending, entry{
			sentAt: c.timeTeller.CurrentTime(),
			frame:  f,
		})

		if c.corrupt.Fire() {
			c.medium.BroadcastWithChecksum(c.Address(), f, nil, f.Checksum^0xFF)
			c.Notify(device.HookPosSend, f, "CORRUPTED")
		} else {
			c.medium.Broadcast(c.Address(), f, nil)
			c.Notify(device.HookPosSend, f, nil)
		}
	}

	if len(c.pending) == 0 {
		c.MarkDone()
	}

	return nil
}

// CheckResend asks again for every message that has waited longer than the
// timeout, and restarts their timeouts.
func (c *Comp) CheckResend() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.checkResend()
}

func (c *Comp) checkResend() {
	now := c.timeTeller.CurrentTime()

	for i := range c.pending {
		e := &c.pending[i]
		if now.Sub(e.sentAt) <= c.timeout {
			continue
		}

		rck := frame.MakeControl(e.frame.Dest(), e.frame.Src(),
			frame.CodeResendRequest, e.frame.Payload)
		c.medium.Broadcast(c.Address(), rck, nil)
		e.sentAt = now

		c.Notify(device.HookPosResend, e.frame, nil)
	}
}

// Handle processes a frame that arrived through w. A nil frame is a
// heartbeat.
func (c *Comp) Handle(w *wiring.Wire, f *frame.Frame) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if w == nil || f == nil {
		c.checkResend()
		return
	}

	if f.Dest() != c.Address() || f.Src() == c.Address() {
		c.checkResend()
		return
	}

	if c.ignore.Fire() {
		c.Notify(device.HookPosFrameIgnored, *f, w)
		return
	}

	c.Notify(device.HookPosFrameRecv, *f, w)

	switch f.Type() {
	case frame.TypeMessage:
		c.handleMessage(*f)
	case frame.TypeAck, frame.TypeFirewallAck:
		c.settle(*f)
	case frame.TypeResendRequest:
		c.handleResendRequest(*f)
	case frame.TypeNak:
		c.retransmit(*f)
	}

	if len(c.pending) == 0 {
		c.MarkDone()
		return
	}

	c.checkResend()
}

func (c *Comp) handleMessage(f frame.Frame) {
	if !f.IsValid() {
		c.reply(f, frame.CodeNak)
		return
	}

	c.deliver(f)
	c.reply(f, frame.CodeAck)
}

func (c *Comp) handleResendRequest(f frame.Frame) {
	c.deliver(f)
	c.reply(f, frame.CodeAck)
}

// deliver records the payload unless it was delivered before.
func (c *Comp) deliver(f frame.Frame) {
	key := keyOf(f)
	if c.received[key] {
		return
	}

	err := c.sink.Record(c.Address(), f.Src(), f.Payload)
	if err != nil {
		panic(err)
	}

	c.received[key] = true
	c.Notify(device.HookPosDeliver, f, nil)
}

func (c *Comp) reply(f frame.Frame, code uint8) {
	r := frame.MakeReply(f, code)
	c.medium.Broadcast(c.Address(), r, nil)
	c.Notify(device.HookPosReply, r, nil)
}

// matches tells if a reply from the destination of an outstanding message is
// about that message.
func matches(e entry, reply frame.Frame) bool {
	return e.frame.Payload == reply.Payload && e.frame.Dest() == reply.Src()
}

func (c *Comp) settle(f frame.Frame) {
	kept := c.pending[:0]

	for _, e := range c.pending {
		if matches(e, f) {
			c.Notify(device.HookPosSettle, e.frame, f.Type())
			continue
		}

		kept = append(kept, e)
	}

	for i := len(kept); i < len(c.pending); i++ {
		c.pending[i] = entry{}
	}

	c.pending = kept
}

func (c *Comp) retransmit(f frame.Frame) {
	for _, e := range c.pending {
		if !matches(e, f) {
			continue
		}

		c.medium.Broadcast(c.Address(), e.frame, nil)
		c.Notify(device.HookPosRetransmit, e.frame, nil)
	}
}
