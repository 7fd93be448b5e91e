package device

import (
	"context"
	"time"

	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/hooking"
	"github.com/sarchlab/bridgesim/wiring"
)

// DefaultHeartbeat is the interval between heartbeat ticks when no frame
// arrives.
const DefaultHeartbeat = 100 * time.Millisecond

// A Runner feeds one device with the frames that arrive on its inbound wires
// and with heartbeat ticks. All the handler calls of a device happen on the
// goroutine that calls Run.
type Runner struct {
	dev         Device
	rx          Receiver
	coordinator *Coordinator
	heartbeat   time.Duration

	registered   bool
	deregistered bool
}

// NewRunner creates a runner for the device. A node registers with the
// coordinator right away, so all the runners of a topology must be created
// before any of them runs.
func NewRunner(
	dev Device,
	rx Receiver,
	coordinator *Coordinator,
	heartbeat time.Duration,
) *Runner {
	if heartbeat <= 0 {
		panic("heartbeat must be positive")
	}

	r := &Runner{
		dev:         dev,
		rx:          rx,
		coordinator: coordinator,
		heartbeat:   heartbeat,
	}

	if KindOf(dev.Address()) == KindNode {
		coordinator.Register()
		r.registered = true
	}

	return r
}

// Device returns the device that the runner feeds.
func (r *Runner) Device() Device {
	return r.dev
}

// Run processes frames until the device is done and the whole simulation is
// quiescent, or until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	addr := r.dev.Address()
	doorbell := r.rx.Doorbell(addr)
	quiescent := r.coordinator.Quiescent()

	for r.shouldContinue() {
		if ctx.Err() != nil {
			return
		}

		if r.drainOne(addr) {
			r.tickIfDue(ticker)
			r.checkDone()

			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-doorbell:
		case <-quiescent:
			quiescent = nil
		case <-ticker.C:
			r.dev.Handle(nil, nil)
			r.checkDone()
		}
	}
}

func (r *Runner) shouldContinue() bool {
	if r.dev.IsAlive() {
		return true
	}

	r.checkDone()

	return !r.coordinator.IsQuiescent()
}

// drainOne handles at most one frame. It returns false if no wire holds a
// frame.
func (r *Runner) drainOne(addr frame.Address) bool {
	w, f, ok, err := r.rx.Receive(addr)
	if err != nil {
		r.notifyMalformed(w, err)
		return true
	}

	if !ok {
		return false
	}

	r.dev.Handle(w, &f)

	return true
}

// tickIfDue delivers a pending heartbeat without waiting, so that a wire that
// never runs dry cannot starve the timeouts.
func (r *Runner) tickIfDue(ticker *time.Ticker) {
	select {
	case <-ticker.C:
		r.dev.Handle(nil, nil)
	default:
	}
}

type notifier interface {
	Notify(pos *hooking.HookPos, item, detail interface{})
}

func (r *Runner) notifyMalformed(w *wiring.Wire, err error) {
	n, ok := r.dev.(notifier)
	if !ok {
		return
	}

	if w == nil {
		n.Notify(HookPosFrameMalformed, err, nil)
		return
	}

	n.Notify(HookPosFrameMalformed, err, w)
}

func (r *Runner) checkDone() {
	if !r.registered || r.deregistered || r.dev.IsAlive() {
		return
	}

	r.deregistered = true
	r.coordinator.Deregister()
}
