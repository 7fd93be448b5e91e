// Package device provides what nodes and switches share: identity, the
// processing loop that feeds them frames, and the coordination that decides
// when the simulation is over.
package device

import (
	"sync/atomic"

	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/hooking"
	"github.com/sarchlab/bridgesim/wiring"
)

// Kind tells whether a device is a node or a switch.
type Kind int

// The device kinds.
const (
	KindNode Kind = iota
	KindSwitch
)

func (k Kind) String() string {
	if k == KindSwitch {
		return "switch"
	}

	return "node"
}

// KindOf derives the kind from the sign of the address id.
func KindOf(addr frame.Address) Kind {
	if addr.IsSwitch() {
		return KindSwitch
	}

	return KindNode
}

// A Handler reacts to frames. A nil wire together with a nil frame is a
// heartbeat tick.
type Handler interface {
	Handle(w *wiring.Wire, f *frame.Frame)
}

// A Device is a node or a switch attached to the fabric.
type Device interface {
	Handler
	hooking.Hookable

	Name() string
	Address() frame.Address
	IsAlive() bool

	// InitMessages puts the device's initial frames on the wires.
	InitMessages() error
}

// A Medium is the part of the fabric that devices write to.
type Medium interface {
	Send(src frame.Address, f frame.Frame, dst frame.Address) error
	Broadcast(src frame.Address, f frame.Frame, exclude *wiring.Wire)
	BroadcastWithChecksum(
		src frame.Address,
		f frame.Frame,
		exclude *wiring.Wire,
		checksum uint8,
	)
	WireTo(from, neighbor frame.Address) *wiring.Wire
}

// A Receiver is the part of the fabric that the runner reads from.
type Receiver interface {
	Receive(dev frame.Address) (*wiring.Wire, frame.Frame, bool, error)
	Doorbell(dev frame.Address) <-chan struct{}
}

// Base implements the identity part of a Device.
type Base struct {
	hooking.HookableBase

	name  string
	addr  frame.Address
	alive atomic.Bool
}

// NewBase creates a Base that is alive.
func NewBase(name string, addr frame.Address) *Base {
	b := &Base{name: name, addr: addr}
	b.alive.Store(true)

	return b
}

// Name returns the name of the device.
func (b *Base) Name() string {
	return b.name
}

// Address returns the address of the device.
func (b *Base) Address() frame.Address {
	return b.addr
}

// Kind returns whether the device is a node or a switch.
func (b *Base) Kind() Kind {
	return KindOf(b.addr)
}

// IsAlive tells if the device still has work of its own.
func (b *Base) IsAlive() bool {
	return b.alive.Load()
}

// MarkDone marks the device as not alive. It returns true only for the call
// that changed the state.
func (b *Base) MarkDone() bool {
	changed := b.alive.CompareAndSwap(true, false)
	if changed {
		b.Notify(HookPosDeviceDone, nil, nil)
	}

	return changed
}

// Notify invokes the hooks of the device at the given position.
func (b *Base) Notify(pos *hooking.HookPos, item, detail interface{}) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
