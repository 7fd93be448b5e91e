package wiring

import (
	"errors"
	"fmt"

	"github.com/sarchlab/bridgesim/frame"
)

// ErrNotConnected is returned when two devices do not share a wire.
var ErrNotConnected = errors.New("wire not connected")

type wireKey struct {
	src, dst frame.Address
}

// A Fabric owns every wire of a topology. The indexes are only written by
// Connect while the topology is built; afterwards they are read from many
// goroutines without locking.
type Fabric struct {
	wires     map[wireKey]*Wire
	inbound   map[frame.Address][]*Wire
	outbound  map[frame.Address][]*Wire
	doorbells map[frame.Address]chan struct{}
	allWires  []*Wire
}

// NewFabric creates an empty Fabric.
func NewFabric() *Fabric {
	return &Fabric{
		wires:     make(map[wireKey]*Wire),
		inbound:   make(map[frame.Address][]*Wire),
		outbound:  make(map[frame.Address][]*Wire),
		doorbells: make(map[frame.Address]chan struct{}),
	}
}

// Connect creates the two wires between a and b. Connecting the same pair
// twice is not supported.
func (f *Fabric) Connect(a, b frame.Address) {
	if a == b {
		panic(fmt.Sprintf("cannot connect %s to itself", a))
	}

	aToB, bToA := NewWirePair(a, b, f.doorbellOf(a), f.doorbellOf(b))

	f.register(aToB)
	f.register(bToA)
}

func (f *Fabric) register(w *Wire) {
	f.wires[wireKey{w.src, w.dst}] = w
	f.outbound[w.src] = append(f.outbound[w.src], w)
	f.inbound[w.dst] = append(f.inbound[w.dst], w)
	f.allWires = append(f.allWires, w)
}

func (f *Fabric) doorbellOf(dev frame.Address) chan struct{} {
	bell, ok := f.doorbells[dev]
	if !ok {
		bell = make(chan struct{}, 1)
		f.doorbells[dev] = bell
	}

	return bell
}

// Doorbell returns a channel that receives a signal whenever a frame is put
// on one of the device's inbound wires. Signals coalesce, so a reader must
// drain all the wires after each signal.
func (f *Fabric) Doorbell(dev frame.Address) <-chan struct{} {
	return f.doorbells[dev]
}

// WireTo returns the wire that goes from a device to one of its neighbors,
// or nil if they are not connected.
func (f *Fabric) WireTo(from, neighbor frame.Address) *Wire {
	return f.wires[wireKey{from, neighbor}]
}

// Inbound returns the wires that a device reads from, in connection order.
func (f *Fabric) Inbound(dev frame.Address) []*Wire {
	return f.inbound[dev]
}

// Outbound returns the wires that a device writes to, in connection order.
func (f *Fabric) Outbound(dev frame.Address) []*Wire {
	return f.outbound[dev]
}

// Wires returns all the wires of the fabric.
func (f *Fabric) Wires() []*Wire {
	return f.allWires
}

// Send puts a frame on the wire from src to dst. The stored checksum is
// written as-is so that corrupted frames stay corrupted.
func (f *Fabric) Send(src frame.Address, fr frame.Frame, dst frame.Address) error {
	w := f.WireTo(src, dst)
	if w == nil {
		return fmt.Errorf("%w: %s -> %s", ErrNotConnected, src, dst)
	}

	w.Push(frame.EncodeWithChecksum(fr, fr.Checksum))

	return nil
}

// Broadcast puts the frame on every outbound wire of src, except the one
// that leads back to the writer of exclude. Exclude can be nil.
func (f *Fabric) Broadcast(src frame.Address, fr frame.Frame, exclude *Wire) {
	f.BroadcastWithChecksum(src, fr, exclude, fr.Checksum)
}

// BroadcastWithChecksum is Broadcast, but writes the given checksum instead
// of the stored one for this transmission only.
func (f *Fabric) BroadcastWithChecksum(
	src frame.Address,
	fr frame.Frame,
	exclude *Wire,
	checksum uint8,
) {
	b := frame.EncodeWithChecksum(fr, checksum)

	for _, w := range f.outbound[src] {
		if exclude != nil && exclude.src == w.dst {
			continue
		}

		w.Push(b)
	}
}

// Receive takes the first frame found on the inbound wires of dev, scanning
// the wires in connection order. If no wire holds a frame, ok is false. A
// frame that cannot be decoded is consumed and reported as an error together
// with the wire it came from.
func (f *Fabric) Receive(dev frame.Address) (
	w *Wire,
	fr frame.Frame,
	ok bool,
	err error,
) {
	for _, w := range f.inbound[dev] {
		b, found := w.Pop()
		if !found {
			continue
		}

		fr, err = frame.Decode(b)
		if err != nil {
			return w, frame.Frame{}, false, err
		}

		return w, fr, true, nil
	}

	return nil, frame.Frame{}, false, nil
}
