// Package simulation runs a topology until every message is acknowledged.
package simulation

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sarchlab/bridgesim/config"
	"github.com/sarchlab/bridgesim/datarecording"
	"github.com/sarchlab/bridgesim/delivery"
	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/monitoring"
	"github.com/sarchlab/bridgesim/topology"
	"github.com/sarchlab/bridgesim/tracing"
)

// A Simulation holds a built topology and the services around it.
type Simulation struct {
	id          string
	params      config.Params
	topology    *topology.Topology
	coordinator *device.Coordinator

	fileSink    *delivery.FileSink
	recorder    datarecording.DataRecorder
	tracer      *tracing.DBTracer
	stepCounter *tracing.StepCountTracer

	monitor     *monitoring.Monitor
	progress    *monitoring.ProgressBar
	openBrowser bool

	runOnce sync.Once
}

// ID returns the id of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Topology returns the devices of the run.
func (s *Simulation) Topology() *topology.Topology {
	return s.topology
}

// Coordinator returns the coordinator that tracks the unfinished nodes.
func (s *Simulation) Coordinator() *device.Coordinator {
	return s.coordinator
}

// DataRecorder returns the recorder, or nil if recording is disabled.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.recorder
}

// Tracer returns the message tracer, or nil if recording is disabled.
func (s *Simulation) Tracer() *tracing.DBTracer {
	return s.tracer
}

// Monitor returns the monitor, or nil if monitoring is disabled.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Run starts one goroutine per device and returns once every node is done
// and all the device goroutines have returned. If ctx is cancelled first, the
// devices are stopped and the context error is returned. Run can only be
// called once.
func (s *Simulation) Run(ctx context.Context) error {
	err := fmt.Errorf("simulation %s already ran", s.id)

	s.runOnce.Do(func() {
		err = s.run(ctx)
	})

	return err
}

func (s *Simulation) run(ctx context.Context) error {
	devs := s.topology.Devices()
	runners := make([]*device.Runner, 0, len(devs))

	for _, d := range devs {
		runners = append(runners, device.NewRunner(
			d, s.topology.Fabric, s.coordinator, s.params.Heartbeat))
	}

	if s.monitor != nil {
		url := s.monitor.StartServer()
		if s.openBrowser {
			s.monitor.OpenInBrowser(url)
		}
	}

	if err := s.topology.InitMessages(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, r := range runners {
		wg.Add(1)

		go func(r *device.Runner) {
			defer wg.Done()
			r.Run(runCtx)
		}(r)
	}

	err := s.coordinator.Wait(ctx)

	cancel()
	wg.Wait()

	if s.progress != nil {
		s.monitor.CompleteProgressBar(s.progress)
	}

	return err
}

// Summary counts what happened during a run.
type Summary struct {
	Messages    int
	Delivered   int
	Settled     uint64
	Resends     uint64
	Retransmits uint64
	Unsettled   int
}

// Summary returns the counters of the run so far.
func (s *Simulation) Summary() Summary {
	sum := Summary{
		Settled:     s.stepCounter.Ended(),
		Resends:     s.stepCounter.GetStepCount(tracing.StepResend),
		Retransmits: s.stepCounter.GetStepCount(tracing.StepRetransmit),
	}

	for _, n := range s.topology.Nodes {
		sum.Messages += len(n.Messages())
		sum.Delivered += n.Received()
		sum.Unsettled += len(n.Pending())
	}

	return sum
}

// Report writes the summary to stderr.
func (s *Simulation) Report() {
	sum := s.Summary()
	fmt.Fprintf(os.Stderr,
		"Simulation %s: %d messages, %d delivered, %d settled, "+
			"%d resends, %d retransmits, %d unsettled\n",
		s.id, sum.Messages, sum.Delivered, sum.Settled,
		sum.Resends, sum.Retransmits, sum.Unsettled)
}

func (s *Simulation) nodeAddresses() []frame.Address {
	addrs := make([]frame.Address, 0, len(s.topology.Nodes))
	for _, n := range s.topology.Nodes {
		addrs = append(addrs, n.Address())
	}

	return addrs
}

// Terminate writes the unfinished traces, closes the recorder, and stops the
// monitor.
func (s *Simulation) Terminate() {
	if s.tracer != nil {
		s.tracer.Terminate()
	}

	if s.recorder != nil {
		err := s.recorder.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "closing recorder: %v\n", err)
		}
	}

	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = s.monitor.StopServer(ctx)
	}
}
