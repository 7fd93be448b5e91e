// Package topology builds the network: a hub switch, one switch per network
// connected to the hub, and the nodes spread round-robin over the networks.
package topology

import (
	"fmt"

	"github.com/sarchlab/bridgesim/config"
	"github.com/sarchlab/bridgesim/delivery"
	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/endpoint"
	"github.com/sarchlab/bridgesim/fault"
	"github.com/sarchlab/bridgesim/firewall"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/switches"
	"github.com/sarchlab/bridgesim/timing"
	"github.com/sarchlab/bridgesim/wiring"
)

// HubNetwork is the network number of the hub switch.
const HubNetwork = 0

// A SwitchIDAllocator hands out switch ids -1, -2, -3, ...
type SwitchIDAllocator struct {
	last int
}

// Next returns a fresh switch id.
func (a *SwitchIDAllocator) Next() int {
	a.last--
	return a.last
}

// Options tune the devices that Build creates.
type Options struct {
	// TimeTeller is the clock of every device. Defaults to the wall clock.
	TimeTeller timing.TimeTeller

	// RandSource returns the random source of a device by name. Defaults to
	// fault.NewStream.
	RandSource func(name string) fault.Source
}

// Topology holds the devices and the fabric that connects them.
type Topology struct {
	Fabric   *wiring.Fabric
	Hub      *switches.Comp
	Switches map[int]*switches.Comp
	Nodes    []*endpoint.Comp

	networks int
}

// Build creates the devices of a topology and connects them in fabric.
// Configuration errors are returned before any frame is sent.
func Build(
	fabric *wiring.Fabric,
	params config.Params,
	source config.Source,
	sink delivery.Sink,
	opts Options,
) (*Topology, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if opts.TimeTeller == nil {
		opts.TimeTeller = timing.WallClock{}
	}

	if opts.RandSource == nil {
		opts.RandSource = fault.NewStream
	}

	rules, err := source.FirewallRules()
	if err != nil {
		return nil, err
	}

	t := &Topology{
		Fabric:   fabric,
		Switches: make(map[int]*switches.Comp),
		networks: params.Networks,
	}

	var ids SwitchIDAllocator

	switchBuilder := switches.MakeBuilder().
		WithMedium(fabric).
		WithGlobalBlocks(rules.Global).
		WithExpiry(params.TableExpiry).
		WithDropProbability(params.DropProbability).
		WithTimeTeller(opts.TimeTeller)

	t.Hub = buildSwitch(switchBuilder, rules, HubNetwork, ids.Next(), opts)

	for net := 1; net <= params.Networks; net++ {
		sw := buildSwitch(switchBuilder, rules, net, ids.Next(), opts)
		fabric.Connect(sw.Address(), t.Hub.Address())
		t.Switches[net] = sw
	}

	nodeBuilder := endpoint.MakeBuilder().
		WithMedium(fabric).
		WithSink(sink).
		WithTimeout(params.NodeTimeout).
		WithCorruptProbability(params.CorruptProbability).
		WithIgnoreProbability(params.IgnoreProbability).
		WithTimeTeller(opts.TimeTeller)

	for _, addr := range config.NodeAddresses(params.Nodes, params.Networks) {
		msgs, err := source.Messages(addr)
		if err != nil {
			return nil, err
		}

		n := nodeBuilder.
			WithMessages(msgs).
			WithRandSource(opts.RandSource(addr.String())).
			Build(addr.Network, addr.ID)
		fabric.Connect(addr, t.Switches[addr.Network].Address())
		t.Nodes = append(t.Nodes, n)
	}

	return t, nil
}

func buildSwitch(
	b switches.Builder,
	rules firewall.Rules,
	net, id int,
	opts Options,
) *switches.Comp {
	addr := frame.Address{Network: net, ID: id}

	return b.
		WithLocalRules(rules.LocalOf(net)).
		WithRandSource(opts.RandSource(addr.String())).
		Build(net, id)
}

// Networks returns the number of networks, not counting the hub.
func (t *Topology) Networks() int {
	return t.networks
}

// Devices returns the switches, hub first, followed by the nodes.
func (t *Topology) Devices() []device.Device {
	devs := []device.Device{t.Hub}
	for net := 1; net <= t.networks; net++ {
		devs = append(devs, t.Switches[net])
	}

	for _, n := range t.Nodes {
		devs = append(devs, n)
	}

	return devs
}

// Node returns the node with the given address, or nil.
func (t *Topology) Node(addr frame.Address) *endpoint.Comp {
	for _, n := range t.Nodes {
		if n.Address() == addr {
			return n
		}
	}

	return nil
}

// Find returns the device with the given name, or nil.
func (t *Topology) Find(name string) device.Device {
	for _, d := range t.Devices() {
		if d.Name() == name {
			return d
		}
	}

	return nil
}

// InitMessages lets every device send its initial frames, switches first so
// that rules are on the wires before the first message.
func (t *Topology) InitMessages() error {
	for _, d := range t.Devices() {
		if err := d.InitMessages(); err != nil {
			return fmt.Errorf("init %s: %w", d.Name(), err)
		}
	}

	return nil
}
