package calc

import (
	"math"

	"github.com/sarchlab/signalflow/sim"
)

// ControllerBuilder can build controllers.
type ControllerBuilder struct {
	scheduler     sim.EventScheduler
	firstTickTime sim.VTimeInSec
	interval      ValueSource
	maxTicks      ValueSource
}

// MakeControllerBuilder creates a ControllerBuilder with a one-second
// interval and no tick limit.
func MakeControllerBuilder() ControllerBuilder {
	return ControllerBuilder{
		interval: Const(1),
		maxTicks: Const(math.Inf(1)),
	}
}

// WithScheduler sets the event scheduler that drives the controller.
func (b ControllerBuilder) WithScheduler(s sim.EventScheduler) ControllerBuilder {
	b.scheduler = s
	return b
}

// WithFirstTickTime sets the delay between start up and the first sweep.
func (b ControllerBuilder) WithFirstTickTime(t sim.VTimeInSec) ControllerBuilder {
	b.firstTickTime = t
	return b
}

// WithInterval sets a fixed interval between sweeps, in seconds.
func (b ControllerBuilder) WithInterval(interval sim.VTimeInSec) ControllerBuilder {
	b.interval = Const(float64(interval))
	return b
}

// WithIntervalSource sets a source that is sampled after every sweep to
// decide when the next sweep happens.
func (b ControllerBuilder) WithIntervalSource(src ValueSource) ControllerBuilder {
	b.interval = src
	return b
}

// WithFreq sets the interval to the period of the given frequency.
func (b ControllerBuilder) WithFreq(freq sim.Freq) ControllerBuilder {
	b.interval = Const(float64(freq.Period()))
	return b
}

// WithMaxTicks limits the number of sweeps.
func (b ControllerBuilder) WithMaxTicks(n uint64) ControllerBuilder {
	b.maxTicks = Const(float64(n))
	return b
}

// WithMaxTicksSource sets a source that is sampled to decide whether the
// controller keeps sweeping.
func (b ControllerBuilder) WithMaxTicksSource(src ValueSource) ControllerBuilder {
	b.maxTicks = src
	return b
}

// Build creates a new Controller.
func (b ControllerBuilder) Build(name string) *Controller {
	if b.interval == nil || b.maxTicks == nil {
		panic("interval and max ticks must be set")
	}

	return &Controller{
		ComponentBase: sim.NewComponentBase(name),
		scheduler:     b.scheduler,
		firstTickTime: b.firstTickTime,
		interval:      b.interval,
		maxTicks:      b.maxTicks,
	}
}
