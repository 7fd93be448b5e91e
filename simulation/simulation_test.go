package simulation

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bridgesim/config"
	"github.com/sarchlab/bridgesim/datarecording"
	"github.com/sarchlab/bridgesim/delivery"
	"github.com/sarchlab/bridgesim/firewall"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/tracing"
)

var _ = Describe("Simulation", func() {
	var (
		params config.Params
		source config.StaticSource
		sink   *delivery.MemorySink
		n10    = frame.Address{Network: 1, ID: 0}
		n21    = frame.Address{Network: 2, ID: 1}
	)

	quietParams := func() config.Params {
		p := config.DefaultParams()
		p.Heartbeat = 5 * time.Millisecond
		p.NodeTimeout = 100 * time.Millisecond
		p.TableExpiry = time.Second
		p.DropProbability = 0
		p.CorruptProbability = 0
		p.IgnoreProbability = 0
		p.OutputDir = GinkgoT().TempDir()

		return p
	}

	run := func(s *Simulation) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		Expect(s.Run(ctx)).To(Succeed())
	}

	BeforeEach(func() {
		params = quietParams()
		source = config.StaticSource{
			Outbox: map[frame.Address][]config.Outbound{
				n10: {{Dest: n21, Text: "hello"}},
			},
		}
		sink = delivery.NewMemorySink()
	})

	It("should require a source", func() {
		Expect(func() { _, _ = MakeBuilder().Build() }).To(Panic())
	})

	It("should return configuration errors from Build", func() {
		params.Networks = 0

		_, err := MakeBuilder().
			WithParams(params).
			WithSource(source).
			Build()

		Expect(err).To(HaveOccurred())
	})

	It("should refuse message files that are not valid UTF-8", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, config.MessageFileName(n10))
		Expect(os.WriteFile(path, []byte("2_1: \xffhi\n"), 0o644)).To(Succeed())

		_, err := MakeBuilder().
			WithParams(params).
			WithSource(config.NewDirSource(dir)).
			WithSink(sink).
			Build()

		Expect(err).To(MatchError(config.ErrMalformedConfig))
		Expect(err).To(MatchError(frame.ErrInvalidPayload))
	})

	It("should fail to start with a message that is not valid UTF-8", func() {
		source.Outbox[n10] = []config.Outbound{{Dest: n21, Text: "\xffhi"}}

		s, err := MakeBuilder().
			WithParams(params).
			WithSource(source).
			WithSink(sink).
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Expect(s.Run(ctx)).To(MatchError(frame.ErrInvalidPayload))
	})

	It("should deliver one message across two networks", func() {
		var logBuf bytes.Buffer

		s, err := MakeBuilder().
			WithParams(params).
			WithSource(source).
			WithSink(sink).
			WithFrameLogger(log.New(&logBuf, "", 0)).
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		run(s)

		Expect(sink.Lines(n21)).To(Equal([]string{"1_0: hello"}))
		Expect(sink.Lines(n10)).To(BeEmpty())
		Expect(s.Topology().Node(n10).Pending()).To(BeEmpty())
		Expect(s.Coordinator().IsQuiescent()).To(BeTrue())

		out, err := os.ReadFile(filepath.Join(params.OutputDir, "node2_1output.txt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal("1_0: hello\n"))

		sum := s.Summary()
		Expect(sum.Messages).To(Equal(1))
		Expect(sum.Delivered).To(Equal(1))
		Expect(sum.Settled).To(Equal(uint64(1)))
		Expect(sum.Unsettled).To(Equal(0))

		Expect(logBuf.String()).To(ContainSubstring("2_1,Deliver"))
		Expect(logBuf.String()).To(ContainSubstring("1_0,DeviceDone"))
	})

	It("should settle a blocked message with the firewall reply", func() {
		source.Rules = firewall.Rules{Global: []int{2}}

		s, err := MakeBuilder().
			WithParams(params).
			WithSource(source).
			WithSink(sink).
			WithoutFileOutput().
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		run(s)

		Expect(sink.Lines(n21)).To(BeEmpty())
		Expect(s.Summary().Settled).To(Equal(uint64(1)))
		Expect(s.Summary().Delivered).To(Equal(0))
	})

	It("should finish at once when no node has messages", func() {
		source.Outbox = nil

		s, err := MakeBuilder().
			WithParams(params).
			WithSource(source).
			WithoutFileOutput().
			WithSink(sink).
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		run(s)

		Expect(sink.Total()).To(Equal(0))
	})

	It("should only run once", func() {
		s, err := MakeBuilder().
			WithParams(params).
			WithSource(source).
			WithSink(sink).
			WithoutFileOutput().
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		run(s)

		Expect(s.Run(context.Background())).To(HaveOccurred())
	})

	It("should stop when the context is cancelled", func() {
		params.Nodes = 1
		params.Networks = 1
		source.Outbox = map[frame.Address][]config.Outbound{
			n10: {{Dest: frame.Address{Network: 1, ID: 7}, Text: "nobody"}},
		}

		s, err := MakeBuilder().
			WithParams(params).
			WithSource(source).
			WithSink(sink).
			WithoutFileOutput().
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		Expect(s.Run(ctx)).To(MatchError(context.DeadlineExceeded))
		Expect(s.Summary().Unsettled).To(Equal(1))
		Expect(s.Summary().Resends).To(BeNumerically(">", 0))
	})

	It("should record deliveries and message traces", func() {
		params.RecordPath = filepath.Join(params.OutputDir, "run")

		s, err := MakeBuilder().
			WithParams(params).
			WithSource(source).
			WithoutFileOutput().
			WithRecording().
			Build()
		Expect(err).NotTo(HaveOccurred())

		run(s)
		s.Terminate()

		reader := datarecording.NewReader(params.RecordPath + ".sqlite3")
		defer reader.Close()

		reader.MapTable(delivery.TableName, delivery.Entry{})
		reader.MapTable(tracing.TaskTableName, tracing.TaskEntry{})

		rows, n, err := reader.Query(
			context.Background(), delivery.TableName, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(rows[0].(*delivery.Entry).Text).To(Equal("hello"))
		Expect(rows[0].(*delivery.Entry).RunID).To(Equal(s.ID()))

		rows, n, err = reader.Query(
			context.Background(), tracing.TaskTableName, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(rows[0].(*tracing.TaskEntry).Outcome).To(Equal("ACK"))
	})

	It("should finish under faults", func() {
		dir := GinkgoT().TempDir()
		Expect(config.GenerateDemo(dir, 4, 2)).To(Succeed())

		params.Nodes = 4
		params.NodeTimeout = 30 * time.Millisecond
		params.TableExpiry = 50 * time.Millisecond
		params.DropProbability = 0.2
		params.CorruptProbability = 0.2
		params.IgnoreProbability = 0.2

		s, err := MakeBuilder().
			WithParams(params).
			WithSource(config.NewDirSource(dir)).
			WithSink(sink).
			WithoutFileOutput().
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		run(s)

		for _, addr := range config.NodeAddresses(4, 2) {
			Expect(sink.Lines(addr)).To(HaveLen(3))
		}

		Expect(s.Summary().Unsettled).To(Equal(0))
		Expect(s.Summary().Settled).To(Equal(uint64(12)))
	})
})
