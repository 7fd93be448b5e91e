package simulation

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/bridgesim/config"
	"github.com/sarchlab/bridgesim/datarecording"
	"github.com/sarchlab/bridgesim/delivery"
	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/fault"
	"github.com/sarchlab/bridgesim/monitoring"
	"github.com/sarchlab/bridgesim/timing"
	"github.com/sarchlab/bridgesim/topology"
	"github.com/sarchlab/bridgesim/tracing"
	"github.com/sarchlab/bridgesim/wiring"
)

// Builder can be used to build a simulation.
type Builder struct {
	params      config.Params
	source      config.Source
	sink        delivery.Sink
	fileOutput  bool
	recordOn    bool
	monitorOn   bool
	openBrowser bool
	logger      *log.Logger
	timeTeller  timing.TimeTeller
	randSource  func(name string) fault.Source
}

// MakeBuilder creates a new builder. By default, deliveries are written to
// files in the output directory and nothing is recorded or monitored.
func MakeBuilder() Builder {
	return Builder{
		params:     config.DefaultParams(),
		fileOutput: true,
		timeTeller: timing.WallClock{},
	}
}

// WithParams sets the parameters of the run.
func (b Builder) WithParams(p config.Params) Builder {
	b.params = p
	return b
}

// WithSource sets where the firewall rules and the messages come from.
func (b Builder) WithSource(s config.Source) Builder {
	b.source = s
	return b
}

// WithSink adds a sink that receives every delivery.
func (b Builder) WithSink(s delivery.Sink) Builder {
	b.sink = s
	return b
}

// WithoutFileOutput stops deliveries from being written into files.
func (b Builder) WithoutFileOutput() Builder {
	b.fileOutput = false
	return b
}

// WithRecording records deliveries and message traces into a SQLite file.
// The record path of the parameters is used; a fresh name is generated if it
// is empty.
func (b Builder) WithRecording() Builder {
	b.recordOn = true
	return b
}

// WithMonitor serves the state of the run over HTTP.
func (b Builder) WithMonitor() Builder {
	b.monitorOn = true
	return b
}

// WithBrowser opens the monitor page once the server is up.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithFrameLogger logs every device event into the logger.
func (b Builder) WithFrameLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithTimeTeller sets the clock of every device.
func (b Builder) WithTimeTeller(tt timing.TimeTeller) Builder {
	b.timeTeller = tt
	return b
}

// WithRandSource sets how devices get their random sources.
func (b Builder) WithRandSource(fn func(name string) fault.Source) Builder {
	b.randSource = fn
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.source == nil {
		panic("simulation requires a configuration source")
	}

	if b.openBrowser && !b.monitorOn {
		panic("cannot open a browser when monitoring is disabled")
	}
}

// Build builds the simulation. Configuration errors are returned before any
// device starts.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	if err := b.params.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:          xid.New().String(),
		params:      b.params,
		coordinator: device.NewCoordinator(),
		stepCounter: tracing.NewStepCountTracer(nil),
		openBrowser: b.openBrowser,
	}

	sinks, err := b.buildSinks(s)
	if err != nil {
		return nil, err
	}

	fabric := wiring.NewFabric()

	s.topology, err = topology.Build(fabric, b.params, b.source, sinks,
		topology.Options{
			TimeTeller: b.timeTeller,
			RandSource: b.randSource,
		})
	if err != nil {
		return nil, err
	}

	s.topology.MustBeConnected()

	if s.fileSink != nil {
		err = s.fileSink.Reset(s.nodeAddresses())
		if err != nil {
			return nil, err
		}
	}

	b.attachHooks(s)

	if b.monitorOn {
		b.buildMonitor(s)
	}

	return s, nil
}

func (b Builder) buildSinks(s *Simulation) (delivery.MultiSink, error) {
	var sinks delivery.MultiSink

	if b.fileOutput {
		s.fileSink = delivery.NewFileSink(b.params.OutputDir)
		sinks = append(sinks, s.fileSink)
	}

	if b.sink != nil {
		sinks = append(sinks, b.sink)
	}

	if b.recordOn {
		path := b.params.RecordPath
		if path == "" {
			path = filepath.Join(b.params.OutputDir, datarecording.DefaultName())
		}

		s.recorder = datarecording.New(path)
		s.tracer = tracing.NewDBTracer(s.id, time.Now(), s.recorder)
		sinks = append(sinks, delivery.NewRecorderSink(s.id, s.recorder))
	}

	if len(sinks) == 0 {
		return nil, fmt.Errorf("no delivery sink configured")
	}

	return sinks, nil
}

func (b Builder) attachHooks(s *Simulation) {
	if b.logger != nil {
		logger := device.NewFrameLogger(b.logger)
		for _, d := range s.topology.Devices() {
			d.AcceptHook(logger)
		}
	}

	for _, n := range s.topology.Nodes {
		tracing.CollectTrace(n, s.stepCounter, b.timeTeller)

		if s.tracer != nil {
			tracing.CollectTrace(n, s.tracer, b.timeTeller)
		}
	}
}

func (b Builder) buildMonitor(s *Simulation) {
	s.monitor = monitoring.NewMonitor().WithPortNumber(b.params.MonitorPort)
	s.monitor.RegisterFabric(s.topology.Fabric)

	for _, d := range s.topology.Devices() {
		s.monitor.RegisterDevice(d)
	}

	total := 0
	for _, n := range s.topology.Nodes {
		total += len(n.Messages())
	}

	s.progress = s.monitor.CreateProgressBar("Messages", uint64(total))
	hook := monitoring.NewProgressHook(s.progress)

	for _, n := range s.topology.Nodes {
		n.AcceptHook(hook)
	}
}
