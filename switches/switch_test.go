package switches

import (
	"bytes"
	"log"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/timing"
	"github.com/sarchlab/bridgesim/wiring"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Switch", func() {
	var (
		mockCtrl  *gomock.Controller
		medium    *MockMedium
		rand      *MockSource
		randValue float64
		clock     *timing.ManualClock
		fabric    *wiring.Fabric
		builder   Builder

		swAddr = frame.Address{Network: 1, ID: -2}
		hub    = frame.Address{Network: 0, ID: -1}
		n0     = frame.Address{Network: 1, ID: 0}
		n2     = frame.Address{Network: 1, ID: 2}
		remote = frame.Address{Network: 2, ID: 1}
	)

	message := func(dst, src frame.Address) frame.Frame {
		f, err := frame.MakeMessage(dst, src, frame.DefaultMarker, "hello")
		Expect(err).NotTo(HaveOccurred())

		return f
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		medium = NewMockMedium(mockCtrl)
		rand = NewMockSource(mockCtrl)
		randValue = 0.5
		clock = timing.NewManualClock(time.Unix(1000, 0))

		fabric = wiring.NewFabric()
		fabric.Connect(swAddr, hub)
		fabric.Connect(n0, swAddr)
		fabric.Connect(n2, swAddr)

		medium.EXPECT().
			WireTo(gomock.Any(), gomock.Any()).
			DoAndReturn(fabric.WireTo).
			AnyTimes()
		rand.EXPECT().
			RandU01().
			DoAndReturn(func() float64 { return randValue }).
			AnyTimes()

		builder = MakeBuilder().
			WithMedium(medium).
			WithRandSource(rand).
			WithTimeTeller(clock)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should ignore heartbeats", func() {
		sw := builder.Build(1, -2)

		sw.Handle(nil, nil)

		Expect(sw.TableSize()).To(Equal(0))
		Expect(sw.IsAlive()).To(BeTrue())
	})

	It("should flood frames to unknown destinations", func() {
		sw := builder.Build(1, -2)
		in := fabric.WireTo(n0, swAddr)
		f := message(n2, n0)

		medium.EXPECT().Broadcast(swAddr, f, in)

		sw.Handle(in, &f)

		Expect(sw.Route(n0)).To(BeIdenticalTo(fabric.WireTo(swAddr, n0)))
	})

	It("should unicast frames to learned destinations", func() {
		sw := builder.Build(1, -2)
		fromN2 := message(n0, n2)
		toN2 := message(n2, n0)

		medium.EXPECT().Broadcast(swAddr, fromN2, fabric.WireTo(n2, swAddr))
		medium.EXPECT().Send(swAddr, toN2, n2).Return(nil)

		sw.Handle(fabric.WireTo(n2, swAddr), &fromN2)
		sw.Handle(fabric.WireTo(n0, swAddr), &toN2)

		Expect(sw.TableSize()).To(Equal(2))
	})

	It("should clear the table before learning once expired", func() {
		sw := builder.Build(1, -2)
		fromN2 := message(n0, n2)
		toN2 := message(n2, n0)

		medium.EXPECT().Broadcast(swAddr, fromN2, gomock.Any())
		medium.EXPECT().Broadcast(swAddr, toN2, fabric.WireTo(n0, swAddr))

		sw.Handle(fabric.WireTo(n2, swAddr), &fromN2)
		clock.Advance(4 * time.Second)
		sw.Handle(fabric.WireTo(n0, swAddr), &toN2)

		Expect(sw.TableSize()).To(Equal(1))
		Expect(sw.Route(n2)).To(BeNil())
	})

	It("should keep routes within the expiry interval", func() {
		sw := builder.WithExpiry(10 * time.Second).Build(1, -2)
		fromN2 := message(n0, n2)
		toN2 := message(n2, n0)

		medium.EXPECT().Broadcast(swAddr, fromN2, gomock.Any())
		medium.EXPECT().Send(swAddr, toN2, n2).Return(nil)

		sw.Handle(fabric.WireTo(n2, swAddr), &fromN2)
		clock.Advance(4 * time.Second)
		sw.Handle(fabric.WireTo(n0, swAddr), &toN2)
	})

	It("should answer blocked messages with a firewall ack", func() {
		sw := builder.WithGlobalBlocks([]int{2}).Build(1, -2)
		f := message(remote, n0)

		medium.EXPECT().
			Send(swAddr, gomock.Any(), n0).
			DoAndReturn(func(
				_ frame.Address, fak frame.Frame, _ frame.Address,
			) error {
				Expect(fak.Type()).To(Equal(frame.TypeFirewallAck))
				Expect(fak.Dest()).To(Equal(n0))
				Expect(fak.Src()).To(Equal(remote))
				Expect(fak.Payload).To(Equal("hello"))
				Expect(fak.IsValid()).To(BeTrue())

				return nil
			})

		sw.Handle(fabric.WireTo(n0, swAddr), &f)
	})

	It("should not block traffic inside the network", func() {
		sw := builder.WithGlobalBlocks([]int{1}).Build(1, -2)
		f := message(n2, n0)

		medium.EXPECT().Broadcast(swAddr, f, gomock.Any())

		sw.Handle(fabric.WireTo(n0, swAddr), &f)
	})

	It("should drop frames after learning", func() {
		sw := builder.Build(1, -2)
		f := message(n2, n0)
		randValue = 0.01

		sw.Handle(fabric.WireTo(n0, swAddr), &f)

		Expect(sw.TableSize()).To(Equal(1))
	})

	It("should learn rules without forwarding them", func() {
		sw := builder.Build(1, -2)
		rule := frame.MakeControl(
			frame.RuleAddress, frame.RuleAddress, frame.CodeRule, "4")

		sw.Handle(fabric.WireTo(hub, swAddr), &rule)

		Expect(sw.LocalBlocks()).To(ConsistOf(4))
		Expect(sw.TableSize()).To(Equal(0))
	})

	It("should block ids learned from rules", func() {
		sw := builder.Build(1, -2)
		rule := frame.MakeControl(
			frame.RuleAddress, frame.RuleAddress, frame.CodeRule, "1")
		f := message(remote, n0)

		medium.EXPECT().
			Send(swAddr, gomock.Any(), n0).
			DoAndReturn(func(
				_ frame.Address, fak frame.Frame, _ frame.Address,
			) error {
				Expect(fak.Type()).To(Equal(frame.TypeFirewallAck))
				return nil
			})

		sw.Handle(fabric.WireTo(hub, swAddr), &rule)
		sw.Handle(fabric.WireTo(n0, swAddr), &f)
	})

	It("should report rule frames that do not carry an id", func() {
		buf := new(bytes.Buffer)
		sw := builder.Build(1, -2)
		sw.AcceptHook(device.NewFrameLogger(log.New(buf, "", 0)))
		rule := frame.MakeControl(
			frame.RuleAddress, frame.RuleAddress, frame.CodeRule, "x")

		sw.Handle(fabric.WireTo(hub, swAddr), &rule)

		Expect(sw.LocalBlocks()).To(BeEmpty())
		Expect(buf.String()).To(ContainSubstring("FrameMalformed"))
	})

	It("should announce local rules", func() {
		sw := builder.WithLocalRules([]int{4, 5}).Build(1, -2)

		var announced []string
		medium.EXPECT().
			Broadcast(swAddr, gomock.Any(), nil).
			Do(func(_ frame.Address, f frame.Frame, _ *wiring.Wire) {
				Expect(f.Type()).To(Equal(frame.TypeRule))
				Expect(f.Dest()).To(Equal(frame.RuleAddress))
				announced = append(announced, f.Payload)
			}).
			Times(2)

		Expect(sw.InitMessages()).To(Succeed())
		Expect(announced).To(Equal([]string{"4", "5"}))
	})

	It("should panic when a learned route is not connected", func() {
		sw := builder.Build(1, -2)
		fromN2 := message(n0, n2)
		toN2 := message(n2, n0)

		medium.EXPECT().Broadcast(swAddr, fromN2, gomock.Any())
		medium.EXPECT().Send(swAddr, toN2, n2).Return(wiring.ErrNotConnected)

		sw.Handle(fabric.WireTo(n2, swAddr), &fromN2)

		Expect(func() { sw.Handle(fabric.WireTo(n0, swAddr), &toN2) }).
			To(Panic())
	})

	It("should refuse to build without a medium", func() {
		Expect(func() { MakeBuilder().Build(1, -1) }).To(Panic())
	})

	It("should refuse to build with a node id", func() {
		Expect(func() { builder.Build(1, 0) }).To(Panic())
	})
})
