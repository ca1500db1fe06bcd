package calc

import (
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// An Input is a unit-typed slot through which a node reads a ValueSource.
// Kernels that read several sources own one Input per source, so that a unit
// type declared on the node reaches all of them.
type Input struct {
	name   string
	Source ValueSource
	unit   unit.Type
}

// NewInput creates an input slot.
func NewInput(name string, src ValueSource) *Input {
	return &Input{name: name, Source: src}
}

// Name returns the name of the slot.
func (i *Input) Name() string {
	return i.name
}

// Unit returns the unit type the slot expects.
func (i *Input) Unit() unit.Type {
	return i.unit
}

// SetUnit changes the unit type the slot expects.
func (i *Input) SetUnit(u unit.Type) {
	i.unit = u
}

// IsSet tells if a source is connected.
func (i *Input) IsSet() bool {
	return i != nil && i.Source != nil
}

// Sample samples the connected source.
func (i *Input) Sample(ctx *SampleContext, now sim.VTimeInSec) (float64, error) {
	return i.Source.Sample(ctx, now)
}

// Check reports an unset source and a source whose unit type does not match
// the slot's.
func (i *Input) Check(owner string) error {
	if !i.IsSet() {
		return configErrorf(owner, i.name, "input is not set")
	}

	typed, ok := i.Source.(UnitTyped)
	if !ok {
		return nil
	}

	if !i.unit.Compatible(typed.OutputUnit()) {
		return configErrorf(owner, i.name,
			"expects unit %s but the source provides %s",
			i.unit, typed.OutputUnit())
	}

	return nil
}
