// Package simulation wires a calculation network to an engine, a data
// recorder, and a monitor.
package simulation

import (
	"errors"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/datarecording"
	"github.com/sarchlab/signalflow/monitoring"
	"github.com/sarchlab/signalflow/sim"
)

// A Simulation runs one calculation network.
type Simulation struct {
	id     string
	engine sim.Engine

	dataRecorder  datarecording.DataRecorder
	sweepRecorder *datarecording.SweepRecorder
	sweepLogger   *calc.SweepLogger
	monitor       *monitoring.Monitor
	monitorURL    string

	network   *calc.Network
	observers []calc.Observer
	hooked    bool
	started   bool
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation. It is nil
// when recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil when
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// GetNetwork returns the registered network.
func (s *Simulation) GetNetwork() *calc.Network {
	return s.network
}

// RegisterNetwork registers the network that the simulation runs.
func (s *Simulation) RegisterNetwork(n *calc.Network) {
	if s.network != nil {
		panic("network already registered")
	}

	s.network = n

	if s.monitor != nil {
		s.monitor.RegisterNetwork(n)
	}
}

// AddObserver adds an observer that is subscribed to every controller when
// the simulation starts.
func (s *Simulation) AddObserver(o calc.Observer) {
	if s.started {
		panic("cannot add observers after the simulation started")
	}

	s.observers = append(s.observers, o)
}

// Start takes the network through its lifecycle and subscribes the recorder,
// the monitor, and the added observers to every controller.
func (s *Simulation) Start() error {
	if s.network == nil {
		return errors.New("no network registered")
	}

	if s.started {
		return errors.New("simulation already started")
	}

	if s.sweepLogger != nil && !s.hooked {
		for _, c := range s.network.Controllers() {
			c.AcceptHook(s.sweepLogger)
		}

		for _, n := range s.network.Nodes() {
			n.AcceptHook(s.sweepLogger)
		}

		s.hooked = true
	}

	if err := s.network.Start(); err != nil {
		return err
	}

	s.started = true

	for _, c := range s.network.Controllers() {
		if s.sweepRecorder != nil {
			s.sweepRecorder.Observe(c)
		}

		for _, o := range s.observers {
			c.Subscribe(o)
		}
	}

	if s.monitor != nil {
		s.monitor.Attach()
	}

	return nil
}

// Run starts the network if needed and runs the engine until no sweep is
// left or a sweep fails.
func (s *Simulation) Run() error {
	if !s.started {
		if err := s.Start(); err != nil {
			return err
		}
	}

	err := s.engine.Run()
	s.engine.Finished()

	return err
}

// Terminate closes the data recorder.
func (s *Simulation) Terminate() error {
	if s.dataRecorder == nil {
		return nil
	}

	return s.dataRecorder.Close()
}
