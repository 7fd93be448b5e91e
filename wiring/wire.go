// Package wiring provides the simulated physical layer: simplex wires that
// carry encoded frames between two devices, and the fabric that indexes them.
package wiring

import (
	"fmt"
	"sync"

	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/hooking"
)

// HookPosWireEnqueue marks when encoded bytes are put onto a wire.
var HookPosWireEnqueue = &hooking.HookPos{Name: "Wire Enqueue"}

// HookPosWireDequeue marks when encoded bytes are taken off a wire.
var HookPosWireDequeue = &hooking.HookPos{Name: "Wire Dequeue"}

// A Wire is a one-directional link from one device to another. It queues
// encoded frames in FIFO order without a capacity limit.
//
// Wires are always created in pairs by Fabric.Connect. The paired wire runs in
// the other direction and can be found with Reverse.
type Wire struct {
	hooking.HookableBase

	lock sync.Mutex
	name string

	src, dst frame.Address
	reverse  *Wire
	doorbell chan struct{}

	queue [][]byte
}

// NewWirePair creates the two wires between a and b. The doorbells are
// signalled when the wire towards the corresponding device gets data; they
// can be nil if nobody waits for the data.
func NewWirePair(
	a, b frame.Address,
	doorbellA, doorbellB chan struct{},
) (aToB, bToA *Wire) {
	aToB = &Wire{
		name:     fmt.Sprintf("%s->%s", a, b),
		src:      a,
		dst:      b,
		doorbell: doorbellB,
	}
	bToA = &Wire{
		name:     fmt.Sprintf("%s->%s", b, a),
		src:      b,
		dst:      a,
		doorbell: doorbellA,
	}
	aToB.reverse = bToA
	bToA.reverse = aToB

	return aToB, bToA
}

// Name returns the name of the wire.
func (w *Wire) Name() string {
	return w.name
}

func (w *Wire) String() string {
	return w.name
}

// Src returns the device that writes into the wire.
func (w *Wire) Src() frame.Address {
	return w.src
}

// Dst returns the device that reads from the wire.
func (w *Wire) Dst() frame.Address {
	return w.dst
}

// Reverse returns the wire that runs in the opposite direction.
func (w *Wire) Reverse() *Wire {
	return w.reverse
}

// Len returns the number of frames waiting on the wire.
func (w *Wire) Len() int {
	w.lock.Lock()
	defer w.lock.Unlock()

	return len(w.queue)
}

// Push puts encoded bytes at the tail of the wire.
func (w *Wire) Push(b []byte) {
	w.lock.Lock()
	w.queue = append(w.queue, b)
	w.lock.Unlock()

	if w.NumHooks() > 0 {
		w.InvokeHook(hooking.HookCtx{
			Domain: w,
			Pos:    HookPosWireEnqueue,
			Item:   b,
		})
	}

	w.ring()
}

// Pop takes the encoded bytes at the head of the wire. It returns false if
// the wire is empty.
func (w *Wire) Pop() ([]byte, bool) {
	w.lock.Lock()

	if len(w.queue) == 0 {
		w.lock.Unlock()
		return nil, false
	}

	b := w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]
	w.lock.Unlock()

	if w.NumHooks() > 0 {
		w.InvokeHook(hooking.HookCtx{
			Domain: w,
			Pos:    HookPosWireDequeue,
			Item:   b,
		})
	}

	return b, true
}

func (w *Wire) ring() {
	if w.doorbell == nil {
		return
	}

	select {
	case w.doorbell <- struct{}{}:
	default:
	}
}
