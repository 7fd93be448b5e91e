package switches

import (
	"time"

	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/fault"
	"github.com/sarchlab/bridgesim/firewall"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/routing"
	"github.com/sarchlab/bridgesim/timing"
)

// Builder can help building switches.
type Builder struct {
	medium          device.Medium
	globalBlocks    []int
	localRules      []int
	expiry          time.Duration
	dropProbability float64
	randSource      fault.Source
	timeTeller      timing.TimeTeller
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		expiry:          3 * time.Second,
		dropProbability: 0.05,
		timeTeller:      timing.WallClock{},
	}
}

// WithMedium sets the fabric that the switch sends frames through.
func (b Builder) WithMedium(medium device.Medium) Builder {
	b.medium = medium
	return b
}

// WithGlobalBlocks sets the networks that no traffic may enter. The slice is
// shared, not copied.
func (b Builder) WithGlobalBlocks(networks []int) Builder {
	b.globalBlocks = networks
	return b
}

// WithLocalRules sets the ids that the switch announces to its neighbors as
// blocked.
func (b Builder) WithLocalRules(ids []int) Builder {
	b.localRules = ids
	return b
}

// WithExpiry sets how long the forwarding table is kept before it is
// cleared.
func (b Builder) WithExpiry(expiry time.Duration) Builder {
	b.expiry = expiry
	return b
}

// WithDropProbability sets how likely the switch is to lose a frame.
func (b Builder) WithDropProbability(p float64) Builder {
	b.dropProbability = p
	return b
}

// WithRandSource sets the random source used to drop frames.
func (b Builder) WithRandSource(src fault.Source) Builder {
	b.randSource = src
	return b
}

// WithTimeTeller sets the clock that ages the forwarding table.
func (b Builder) WithTimeTeller(tt timing.TimeTeller) Builder {
	b.timeTeller = tt
	return b
}

// Build creates a new switch. The id must be negative.
func (b Builder) Build(net, id int) *Comp {
	b.mediumMustBeGiven()
	idMustBeSwitchID(id)
	b.expiryMustBePositive()

	addr := frame.Address{Network: net, ID: id}

	src := b.randSource
	if src == nil {
		src = fault.NewStream(addr.String())
	}

	c := &Comp{
		Base:       device.NewBase(addr.String(), addr),
		medium:     b.medium,
		timeTeller: b.timeTeller,
		policy:     firewall.NewPolicy(b.globalBlocks),
		localRules: append([]int(nil), b.localRules...),
		drop:       fault.NewInjector(src, b.dropProbability),
	}
	c.table = routing.NewExpiringTable(b.expiry, b.timeTeller.CurrentTime())

	return c
}

func (b Builder) mediumMustBeGiven() {
	if b.medium == nil {
		panic("switch requires a medium to operate")
	}
}

func (b Builder) expiryMustBePositive() {
	if b.expiry <= 0 {
		panic("switch table expiry must be positive")
	}
}

func idMustBeSwitchID(id int) {
	if id >= 0 {
		panic("switch id must be negative")
	}
}
