package calc

import (
	"errors"
	"fmt"

	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// A Logic is the update law of a boolean node.
type Logic interface {
	// Evaluate computes the boolean output from the inputs. It must not
	// change any state.
	Evaluate(ctx *SampleContext, now sim.VTimeInSec) (bool, error)

	// Validate checks the settings of the logic.
	Validate(owner string) error
}

// A Gate is a boolean node. It caches the value of its last update, and its
// numeric view is 1 for true and 0 for false.
type Gate struct {
	nodeBase

	logic   Logic
	initial bool

	lastUpdateTime sim.VTimeInSec
	lastValue      bool
}

// NewGate creates a boolean node with the given logic.
func NewGate(name string, logic Logic) *Gate {
	return &Gate{
		nodeBase: newNodeBase(name),
		logic:    logic,
	}
}

// Logic returns the update law of the gate.
func (g *Gate) Logic() Logic {
	return g.logic
}

// SetInitialValue sets the value that the gate holds before its first update.
func (g *Gate) SetInitialValue(v bool) {
	g.initial = v
}

// Inputs returns no slots. Boolean inputs carry no unit type.
func (g *Gate) Inputs() []*Input {
	return nil
}

// InputUnit is always dimensionless.
func (g *Gate) InputUnit() unit.Type {
	return unit.Dimensionless
}

// OutputUnit is always dimensionless.
func (g *Gate) OutputUnit() unit.Type {
	return unit.Dimensionless
}

// SetInputUnit only accepts the dimensionless unit type.
func (g *Gate) SetInputUnit(u unit.Type) error {
	if !u.IsDimensionless() {
		return configErrorf(g.Name(), "InputUnit",
			"boolean nodes are dimensionless, got %s", u)
	}

	return nil
}

// InputUnitLocked is always true; a gate's unit type never changes.
func (g *Gate) InputUnitLocked() bool {
	return true
}

// Validate checks the binding and the logic settings.
func (g *Gate) Validate() error {
	return errors.Join(g.validateBinding(), g.logic.Validate(g.Name()))
}

// EarlyInit seeds the last value with the initial value.
func (g *Gate) EarlyInit() error {
	g.lastUpdateTime = 0
	g.lastValue = g.initial
	g.state = NodeSeeded

	return nil
}

// LateInit does nothing; gates keep no input history.
func (g *Gate) LateInit() error {
	return nil
}

// Update evaluates the logic and caches the result.
func (g *Gate) Update(now sim.VTimeInSec) error {
	if g.state == NodeUninitialized {
		return fmt.Errorf("%s: %w", g.Name(), ErrNotInitialized)
	}

	v, err := g.SampleBool(nil, now)
	if err != nil {
		g.invoke(g, HookPosNodeUpdated, now, err)
		return err
	}

	g.lastUpdateTime = now
	g.lastValue = v
	g.state = NodeUpdated

	g.invoke(g, HookPosNodeUpdated, now, nil)

	return nil
}

// SampleBool evaluates the logic without changing the cached value.
func (g *Gate) SampleBool(ctx *SampleContext, now sim.VTimeInSec) (bool, error) {
	if g.state == NodeUninitialized {
		return false, fmt.Errorf("%s: %w", g.Name(), ErrNotInitialized)
	}

	ctx = ensureContext(ctx)
	if err := ctx.Enter(g); err != nil {
		return false, err
	}
	defer ctx.Leave(g)

	v, err := g.logic.Evaluate(ctx, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", g.Name(), err)
	}

	return v, nil
}

// Sample returns the numeric view of SampleBool.
func (g *Gate) Sample(ctx *SampleContext, now sim.VTimeInSec) (float64, error) {
	v, err := g.SampleBool(ctx, now)
	if err != nil {
		return 0, err
	}

	return boolToFloat(v), nil
}

// MeanValue returns the numeric view of the last value.
func (g *Gate) MeanValue(_ sim.VTimeInSec) float64 {
	return boolToFloat(g.lastValue)
}

// LastBool returns the value of the last update.
func (g *Gate) LastBool() bool {
	return g.lastValue
}

// LastValue returns the numeric view of the last value.
func (g *Gate) LastValue() float64 {
	return boolToFloat(g.lastValue)
}

// LastUpdateTime returns the time of the last update.
func (g *Gate) LastUpdateTime() sim.VTimeInSec {
	return g.lastUpdateTime
}
