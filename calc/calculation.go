package calc

import (
	"errors"
	"fmt"

	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// HookPosNodeUpdated triggers after a node updates. Detail carries the update
// error, if any.
var HookPosNodeUpdated = &sim.HookPos{Name: "NodeUpdated"}

// A Calculation is a numeric node. It keeps the last update time, input, and
// output, and delegates the update law to its Kernel.
type Calculation struct {
	nodeBase

	kernel     Kernel
	input      *Input
	inputUnit  unit.Type
	unitLocked bool

	lastUpdateTime sim.VTimeInSec
	lastInput      float64
	lastOutput     float64
}

// NewCalculation creates a numeric node with the given update law.
func NewCalculation(name string, kernel Kernel) *Calculation {
	c := &Calculation{
		nodeBase: newNodeBase(name),
		kernel:   kernel,
	}

	if _, ok := kernel.(InputOwner); !ok {
		c.input = NewInput("Input", nil)
	}

	return c
}

// Kernel returns the update law of the node.
func (c *Calculation) Kernel() Kernel {
	return c.kernel
}

// SetInput connects the node's default input. It panics for kernels that own
// their inputs.
func (c *Calculation) SetInput(src ValueSource) {
	if c.input == nil {
		panic(fmt.Sprintf("%s reads its own inputs", c.Name()))
	}

	c.input.Source = src
}

// Inputs returns the input slots of the node.
func (c *Calculation) Inputs() []*Input {
	if owner, ok := c.kernel.(InputOwner); ok {
		return owner.Inputs()
	}

	return []*Input{c.input}
}

// InputUnit returns the unit type of the node's inputs.
func (c *Calculation) InputUnit() unit.Type {
	return c.inputUnit
}

// OutputUnit returns the unit type of the node's output.
func (c *Calculation) OutputUnit() unit.Type {
	return c.kernel.OutputUnit(c.inputUnit)
}

// SetInputUnit sets the input unit type of the node and of every input slot it
// owns. It fails if the unit was locked to a different type.
func (c *Calculation) SetInputUnit(u unit.Type) error {
	if c.unitLocked && u != c.inputUnit {
		return configErrorf(c.Name(), "InputUnit",
			"locked to %s, cannot change to %s", c.inputUnit, u)
	}

	c.inputUnit = u
	for _, in := range c.Inputs() {
		in.SetUnit(u)
	}

	return nil
}

// LockInputUnit declares the input unit type, so that propagation from
// upstream nodes checks it instead of overwriting it.
func (c *Calculation) LockInputUnit(u unit.Type) error {
	c.unitLocked = false
	if err := c.SetInputUnit(u); err != nil {
		return err
	}

	c.unitLocked = true

	return nil
}

// InputUnitLocked tells if the input unit was declared.
func (c *Calculation) InputUnitLocked() bool {
	return c.unitLocked
}

// Validate checks the node's binding, inputs, and kernel settings.
func (c *Calculation) Validate() error {
	errs := []error{c.validateBinding()}

	for _, in := range c.Inputs() {
		errs = append(errs, in.Check(c.Name()))
	}

	if v, ok := c.kernel.(KernelValidator); ok {
		errs = append(errs, v.Validate(c.Name()))
	}

	return errors.Join(errs...)
}

// EarlyInit seeds the last output with the kernel's initial value.
func (c *Calculation) EarlyInit() error {
	if initer, ok := c.kernel.(KernelIniter); ok {
		if err := initer.EarlyInit(); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}

	c.lastUpdateTime = 0
	c.lastOutput = c.kernel.InitialValue()
	c.state = NodeSeeded

	return nil
}

// LateInit seeds the last input with the input sampled at time 0.
func (c *Calculation) LateInit() error {
	ctx := NewSampleContext()
	if err := ctx.Enter(c); err != nil {
		return err
	}
	defer ctx.Leave(c)

	in, err := c.sampleInput(ctx, 0)
	if err != nil {
		return err
	}

	c.lastInput = in

	return nil
}

func (c *Calculation) sampleInput(
	ctx *SampleContext,
	now sim.VTimeInSec,
) (float64, error) {
	if owner, ok := c.kernel.(InputOwner); ok {
		return owner.SampleInput(ctx, now)
	}

	return c.input.Sample(ctx, now)
}

func (c *Calculation) step(
	ctx *SampleContext,
	now sim.VTimeInSec,
) (float64, Result, error) {
	in, err := c.sampleInput(ctx, now)
	if err != nil {
		return 0, Result{}, err
	}

	res, err := c.kernel.Step(StepState{
		Ctx:        ctx,
		Now:        now,
		Input:      in,
		LastTime:   c.lastUpdateTime,
		LastInput:  c.lastInput,
		LastOutput: c.lastOutput,
	})
	if err != nil {
		return 0, Result{}, fmt.Errorf("%s: %w", c.Name(), err)
	}

	return in, res, nil
}

// Update samples the input, runs the kernel, and replaces the cached update
// time, input, and output.
func (c *Calculation) Update(now sim.VTimeInSec) error {
	if c.state == NodeUninitialized {
		return fmt.Errorf("%s: %w", c.Name(), ErrNotInitialized)
	}

	ctx := NewSampleContext()
	if err := ctx.Enter(c); err != nil {
		return err
	}
	defer ctx.Leave(c)

	in, res, err := c.step(ctx, now)
	if err != nil {
		c.invoke(c, HookPosNodeUpdated, now, err)
		return err
	}

	if res.Commit != nil {
		res.Commit()
	}

	c.lastUpdateTime = now
	c.lastInput = in
	c.lastOutput = res.Value
	c.state = NodeUpdated

	c.invoke(c, HookPosNodeUpdated, now, nil)

	return nil
}

// Sample computes what the node would output at the given time without
// changing any cached state. Delaying kernels return the cached output.
func (c *Calculation) Sample(
	ctx *SampleContext,
	now sim.VTimeInSec,
) (float64, error) {
	if d, ok := c.kernel.(Delayer); ok && d.Delays() {
		return c.lastOutput, nil
	}

	if c.state == NodeUninitialized {
		return 0, fmt.Errorf("%s: %w", c.Name(), ErrNotInitialized)
	}

	ctx = ensureContext(ctx)
	if err := ctx.Enter(c); err != nil {
		return 0, err
	}
	defer ctx.Leave(c)

	_, res, err := c.step(ctx, now)
	if err != nil {
		return 0, err
	}

	return res.Value, nil
}

// MeanValue returns the kernel's mean when it has one, and the last output
// otherwise.
func (c *Calculation) MeanValue(_ sim.VTimeInSec) float64 {
	if m, ok := c.kernel.(Meaner); ok {
		return m.Mean()
	}

	return c.lastOutput
}

// LastValue returns the output of the last update.
func (c *Calculation) LastValue() float64 {
	return c.lastOutput
}

// LastInput returns the input of the last update.
func (c *Calculation) LastInput() float64 {
	return c.lastInput
}

// LastUpdateTime returns the time of the last update.
func (c *Calculation) LastUpdateTime() sim.VTimeInSec {
	return c.lastUpdateTime
}
