package simulation

import (
	"io"
	"log"

	"github.com/rs/xid"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/datarecording"
	"github.com/sarchlab/signalflow/monitoring"
	"github.com/sarchlab/signalflow/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	recordOn       bool
	outputFileName string
	sweepLog       io.Writer
	eventLog       io.Writer
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: true,
		recordOn:  true,
	}
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithoutRecording sets the simulation to not record sweeps.
func (b Builder) WithoutRecording() Builder {
	b.recordOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithSweepLog makes every sweep and node update print into the writer.
func (b Builder) WithSweepLog(w io.Writer) Builder {
	b.sweepLog = w
	return b
}

// WithEventLog makes the engine print every event before it runs.
func (b Builder) WithEventLog(w io.Writer) Builder {
	b.eventLog = w
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordOn && b.outputFileName != "" {
		panic("output file cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:     xid.New().String(),
		engine: sim.NewSerialEngine(),
	}

	if b.recordOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "signalflow_sim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		s.sweepRecorder = datarecording.NewSweepRecorder(s.dataRecorder)
		s.engine.RegisterSimulationEndHandler(flushOnEnd{s.dataRecorder})
	}

	if b.sweepLog != nil {
		s.sweepLogger = calc.NewSweepLogger(log.New(b.sweepLog, "", 0))
	}

	if b.eventLog != nil {
		s.engine.AcceptHook(sim.NewEventLogger(log.New(b.eventLog, "", 0)))
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitorURL = s.monitor.StartServer()
	}

	return s
}

type flushOnEnd struct {
	recorder datarecording.DataRecorder
}

func (h flushOnEnd) Handle(_ sim.VTimeInSec) {
	h.recorder.Flush()
}
