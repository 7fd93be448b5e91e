// Package switches provides the learning bridge that connects networks.
package switches

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/fault"
	"github.com/sarchlab/bridgesim/firewall"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/routing"
	"github.com/sarchlab/bridgesim/timing"
	"github.com/sarchlab/bridgesim/wiring"
)

// Comp is a learning bridge. It learns where addresses live from the frames
// it relays, floods frames to unknown destinations, and turns blocked traffic
// into firewall acknowledgements.
type Comp struct {
	*device.Base

	medium     device.Medium
	timeTeller timing.TimeTeller
	drop       fault.Injector

	lock       sync.Mutex
	table      *routing.ExpiringTable
	policy     *firewall.Policy
	localRules []int
}

// LocalRules returns the ids that the switch announces at start up.
func (c *Comp) LocalRules() []int {
	return c.localRules
}

// LocalBlocks returns the ids blocked because of rule frames received from
// neighbors.
func (c *Comp) LocalBlocks() []int {
	return c.policy.Local()
}

// GlobalBlocks returns the networks blocked for every switch.
func (c *Comp) GlobalBlocks() []int {
	return c.policy.Global()
}

// TableSize returns the number of learned routes.
func (c *Comp) TableSize() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.table.Len()
}

// Route returns the wire that the switch would use to reach dst, or nil if it
// would flood.
func (c *Comp) Route(dst frame.Address) *wiring.Wire {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.table.FindWire(dst)
}

// State is a point-in-time view of a switch.
type State struct {
	Name         string
	Alive        bool
	TableSize    int
	LocalRules   []int
	LocalBlocks  []int
	GlobalBlocks []int
}

// State copies the switch state while no frame is being handled.
func (c *Comp) State() any {
	c.lock.Lock()
	defer c.lock.Unlock()

	return State{
		Name:         c.Name(),
		Alive:        c.IsAlive(),
		TableSize:    c.table.Len(),
		LocalRules:   append([]int(nil), c.localRules...),
		LocalBlocks:  c.policy.Local(),
		GlobalBlocks: c.policy.Global(),
	}
}

// InitMessages announces the local rules to the neighbors.
func (c *Comp) InitMessages() error {
	for _, rule := range c.localRules {
		f := frame.MakeControl(
			frame.RuleAddress, frame.RuleAddress,
			frame.CodeRule, strconv.Itoa(rule))
		c.medium.Broadcast(c.Address(), f, nil)
	}

	return nil
}

// Handle processes a frame that arrived through w. Heartbeats are ignored.
func (c *Comp) Handle(w *wiring.Wire, f *frame.Frame) {
	if w == nil || f == nil {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.Notify(device.HookPosFrameRecv, *f, w)

	if f.Type() == frame.TypeRule {
		c.learnRule(w, *f)
		return
	}

	if c.table.ExpireIfStale(c.timeTeller.CurrentTime()) {
		c.Notify(device.HookPosTableFlush, nil, nil)
	}

	back := c.medium.WireTo(c.Address(), w.Src())
	c.table.Learn(f.Src(), back)

	out := *f
	if c.policy.Blocks(out) {
		out = frame.MakeReply(out, frame.CodeFirewallAck)
		c.Notify(device.HookPosFrameBlocked, *f, w)
	}

	if c.drop.Fire() {
		c.Notify(device.HookPosFrameDrop, out, w)
		return
	}

	c.forward(w, out)
}

func (c *Comp) learnRule(w *wiring.Wire, f frame.Frame) {
	id, err := strconv.Atoi(f.Payload)
	if err != nil {
		c.Notify(device.HookPosFrameMalformed,
			fmt.Errorf("rule %q: %w", f.Payload, frame.ErrMalformedFrame), w)
		return
	}

	c.policy.AddLocal(id)
	c.Notify(device.HookPosRuleLearned, f, w)
}

func (c *Comp) forward(in *wiring.Wire, f frame.Frame) {
	next := c.table.FindWire(f.Dest())
	if next == nil {
		c.medium.Broadcast(c.Address(), f, in)
		c.Notify(device.HookPosFrameFlood, f, in)

		return
	}

	err := c.medium.Send(c.Address(), f, next.Dst())
	if err != nil {
		panic(err)
	}

	c.Notify(device.HookPosFrameForward, f, next)
}
