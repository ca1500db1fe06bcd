package calc

import (
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// StepState is everything a kernel may look at to compute a new output.
type StepState struct {
	Ctx        *SampleContext
	Now        sim.VTimeInSec
	Input      float64
	LastTime   sim.VTimeInSec
	LastInput  float64
	LastOutput float64
}

// Dt returns the time elapsed since the last update.
func (s StepState) Dt() float64 {
	return float64(s.Now - s.LastTime)
}

// A Result is the outcome of one kernel step. Commit, when set, applies the
// kernel's private state changes. It only runs when the step comes from an
// update, never when it comes from a read.
type Result struct {
	Value  float64
	Commit func()
}

// A Kernel is the update law of a numeric calculation node.
type Kernel interface {
	// InitialValue seeds the node's last output at early init.
	InitialValue() float64

	// OutputUnit derives the output unit type from the input unit type.
	OutputUnit(in unit.Type) unit.Type

	// Step computes a new output. It must not change the kernel's state
	// except through the returned Result's Commit.
	Step(s StepState) (Result, error)
}

// InputOwner is implemented by kernels that read their own input slots
// instead of the node's single default input.
type InputOwner interface {
	Inputs() []*Input

	// SampleInput combines the owned inputs into the node's input value.
	SampleInput(ctx *SampleContext, now sim.VTimeInSec) (float64, error)
}

// KernelValidator is implemented by kernels with settings to check.
type KernelValidator interface {
	Validate(owner string) error
}

// KernelIniter is implemented by kernels that reset private state at early
// init.
type KernelIniter interface {
	EarlyInit() error
}

// Delayer is implemented by kernels whose readers must see the cached
// output of the previous update instead of a fresh recursive sample. Such
// kernels break closed loops.
type Delayer interface {
	Delays() bool
}

// Meaner is implemented by kernels that know their long-run mean.
type Meaner interface {
	Mean() float64
}
