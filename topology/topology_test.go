package topology

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bridgesim/config"
	"github.com/sarchlab/bridgesim/delivery"
	"github.com/sarchlab/bridgesim/firewall"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/wiring"
)

type brokenSource struct{}

func (brokenSource) FirewallRules() (firewall.Rules, error) {
	return firewall.Rules{}, errors.New("cannot read rules")
}

func (brokenSource) Messages(frame.Address) ([]config.Outbound, error) {
	return nil, nil
}

var _ = Describe("Topology", func() {
	var (
		params config.Params
		source config.StaticSource
		sink   *delivery.MemorySink
		fabric *wiring.Fabric
	)

	BeforeEach(func() {
		params = config.DefaultParams()
		params.Nodes = 5
		params.Networks = 2
		source = config.StaticSource{
			Rules: firewall.Rules{
				Global: []int{2},
				Local:  map[int][]int{1: {4}},
			},
			Outbox: map[frame.Address][]config.Outbound{
				{Network: 1, ID: 0}: {
					{Dest: frame.Address{Network: 2, ID: 1}, Text: "hello"},
				},
			},
		}
		sink = delivery.NewMemorySink()
		fabric = wiring.NewFabric()
	})

	It("should allocate switch ids downwards", func() {
		var ids SwitchIDAllocator

		Expect(ids.Next()).To(Equal(-1))
		Expect(ids.Next()).To(Equal(-2))
	})

	It("should build a hub, a switch per network and the nodes", func() {
		t, err := Build(fabric, params, source, sink, Options{})
		Expect(err).NotTo(HaveOccurred())

		Expect(t.Hub.Address()).To(Equal(frame.Address{Network: 0, ID: -1}))
		Expect(t.Switches).To(HaveLen(2))
		Expect(t.Switches[1].Address()).
			To(Equal(frame.Address{Network: 1, ID: -2}))
		Expect(t.Switches[2].Address()).
			To(Equal(frame.Address{Network: 2, ID: -3}))
		Expect(t.Nodes).To(HaveLen(5))
		Expect(t.Devices()).To(HaveLen(8))
		Expect(t.Networks()).To(Equal(2))

		Expect(t.Nodes[3].Address()).To(Equal(frame.Address{Network: 2, ID: 3}))
		Expect(fabric.WireTo(t.Nodes[3].Address(), t.Switches[2].Address())).
			NotTo(BeNil())
		Expect(fabric.WireTo(t.Switches[2].Address(), t.Hub.Address())).
			NotTo(BeNil())
		Expect(fabric.Wires()).To(HaveLen(2 * (2 + 5)))
	})

	It("should hand out the configuration", func() {
		t, err := Build(fabric, params, source, sink, Options{})
		Expect(err).NotTo(HaveOccurred())

		Expect(t.Switches[1].LocalRules()).To(Equal([]int{4}))
		Expect(t.Switches[2].LocalRules()).To(BeEmpty())
		Expect(t.Hub.GlobalBlocks()).To(Equal([]int{2}))
		Expect(t.Switches[2].GlobalBlocks()).To(Equal([]int{2}))

		n := t.Node(frame.Address{Network: 1, ID: 0})
		Expect(n.Messages()).To(HaveLen(1))
		Expect(t.Node(frame.Address{Network: 9, ID: 9})).To(BeNil())
		Expect(t.Find("2_SWITCH3")).To(BeIdenticalTo(t.Switches[2]))
	})

	It("should be connected", func() {
		t, err := Build(fabric, params, source, sink, Options{})
		Expect(err).NotTo(HaveOccurred())

		Expect(t.MustBeConnected).NotTo(Panic())
		Expect(t.Components()).To(HaveLen(1))
		Expect(t.Hops(frame.Address{Network: 1, ID: 0},
			frame.Address{Network: 2, ID: 1})).To(Equal(4))
		Expect(t.Hops(frame.Address{Network: 1, ID: 0},
			frame.Address{Network: 1, ID: 2})).To(Equal(2))
	})

	It("should detect a split fabric", func() {
		t, err := Build(fabric, params, source, sink, Options{})
		Expect(err).NotTo(HaveOccurred())

		t.Fabric = wiring.NewFabric()

		Expect(t.MustBeConnected).To(Panic())
		Expect(t.Hops(t.Hub.Address(), t.Nodes[0].Address())).To(Equal(-1))
	})

	It("should reject invalid parameters", func() {
		params.Networks = 0

		_, err := Build(fabric, params, source, sink, Options{})

		Expect(err).To(MatchError(config.ErrMalformedConfig))
	})

	It("should return configuration errors", func() {
		_, err := Build(fabric, params, brokenSource{}, sink, Options{})

		Expect(err).To(MatchError("cannot read rules"))
	})

	It("should announce rules and send messages on init", func() {
		t, err := Build(fabric, params, source, sink, Options{})
		Expect(err).NotTo(HaveOccurred())

		Expect(t.InitMessages()).To(Succeed())

		hubIn := fabric.WireTo(t.Switches[1].Address(), t.Hub.Address())
		Expect(hubIn.Len()).To(Equal(1))

		swIn := fabric.WireTo(t.Nodes[0].Address(), t.Switches[1].Address())
		Expect(swIn.Len()).To(BeNumerically("<=", 1))
		Expect(t.Nodes[1].IsAlive()).To(BeFalse())
	})
})
