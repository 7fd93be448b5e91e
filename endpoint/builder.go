package endpoint

import (
	"time"

	"github.com/sarchlab/bridgesim/config"
	"github.com/sarchlab/bridgesim/delivery"
	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/fault"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/timing"
)

// Builder can help building nodes.
type Builder struct {
	medium             device.Medium
	sink               delivery.Sink
	messages           []config.Outbound
	timeout            time.Duration
	corruptProbability float64
	ignoreProbability  float64
	randSource         fault.Source
	timeTeller         timing.TimeTeller
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		timeout:            3 * time.Second,
		corruptProbability: 0.05,
		ignoreProbability:  0.05,
		timeTeller:         timing.WallClock{},
	}
}

// WithMedium sets the fabric that the node sends frames through.
func (b Builder) WithMedium(medium device.Medium) Builder {
	b.medium = medium
	return b
}

// WithSink sets where accepted payloads are recorded.
func (b Builder) WithSink(sink delivery.Sink) Builder {
	b.sink = sink
	return b
}

// WithMessages sets the messages that the node sends when it starts.
func (b Builder) WithMessages(msgs []config.Outbound) Builder {
	b.messages = msgs
	return b
}

// WithTimeout sets how long the node waits for an acknowledgement before it
// asks again.
func (b Builder) WithTimeout(timeout time.Duration) Builder {
	b.timeout = timeout
	return b
}

// WithCorruptProbability sets how likely an initial message goes out with a
// wrong checksum.
func (b Builder) WithCorruptProbability(p float64) Builder {
	b.corruptProbability = p
	return b
}

// WithIgnoreProbability sets how likely the node loses a frame addressed to
// it.
func (b Builder) WithIgnoreProbability(p float64) Builder {
	b.ignoreProbability = p
	return b
}

// WithRandSource sets the random source of the fault injection.
func (b Builder) WithRandSource(src fault.Source) Builder {
	b.randSource = src
	return b
}

// WithTimeTeller sets the clock used for the timeouts.
func (b Builder) WithTimeTeller(tt timing.TimeTeller) Builder {
	b.timeTeller = tt
	return b
}

// Build creates a new node.
func (b Builder) Build(net, id int) *Comp {
	b.mediumMustBeGiven()
	b.sinkMustBeGiven()
	b.timeoutMustBePositive()

	addr := frame.Address{Network: net, ID: id}
	addressMustFitHeader(addr)

	src := b.randSource
	if src == nil {
		src = fault.NewStream(addr.String())
	}

	c := &Comp{
		Base:       device.NewBase(addr.String(), addr),
		medium:     b.medium,
		sink:       b.sink,
		timeTeller: b.timeTeller,
		timeout:    b.timeout,
		messages:   append([]config.Outbound(nil), b.messages...),
		corrupt:    fault.NewInjector(src, b.corruptProbability),
		ignore:     fault.NewInjector(src, b.ignoreProbability),
		received:   make(map[receivedKey]bool),
	}

	return c
}

func (b Builder) mediumMustBeGiven() {
	if b.medium == nil {
		panic("node requires a medium to operate")
	}
}

func (b Builder) sinkMustBeGiven() {
	if b.sink == nil {
		panic("node requires a delivery sink")
	}
}

func (b Builder) timeoutMustBePositive() {
	if b.timeout <= 0 {
		panic("node timeout must be positive")
	}
}

func addressMustFitHeader(addr frame.Address) {
	if !addr.FitsHeader() {
		panic("node address must fit in the frame header")
	}
}
