// Package logic provides the update laws of boolean calculation nodes.
package logic

import (
	"fmt"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
)

func inputsRequired(owner string, n int) error {
	if n == 0 {
		return &calc.ConfigError{
			Component: owner,
			Field:     "Inputs",
			Reason:    "at least one input is required",
		}
	}

	return nil
}

func sampleInput(
	ctx *calc.SampleContext,
	now sim.VTimeInSec,
	in calc.BoolSource,
	i int,
) (bool, error) {
	if in == nil {
		return false, fmt.Errorf("input %d is not set", i)
	}

	return in.SampleBool(ctx, now)
}

// And is true when all inputs are true. It stops at the first false input.
type And struct {
	Inputs []calc.BoolSource
}

// NewAnd creates an AND gate.
func NewAnd(name string, inputs ...calc.BoolSource) *calc.Gate {
	return calc.NewGate(name, &And{Inputs: inputs})
}

// Evaluate computes the conjunction.
func (l *And) Evaluate(ctx *calc.SampleContext, now sim.VTimeInSec) (bool, error) {
	for i, in := range l.Inputs {
		v, err := sampleInput(ctx, now, in, i)
		if err != nil {
			return false, err
		}

		if !v {
			return false, nil
		}
	}

	return true, nil
}

// Validate requires at least one input.
func (l *And) Validate(owner string) error {
	return inputsRequired(owner, len(l.Inputs))
}

// Or is true when any input is true. Inputs listed as negated count as true
// when they are false. It stops at the first true input.
type Or struct {
	Inputs []calc.BoolSource
	Negate []bool
}

// NewOr creates an OR gate without negated inputs.
func NewOr(name string, inputs ...calc.BoolSource) *calc.Gate {
	return calc.NewGate(name, &Or{Inputs: inputs})
}

// Evaluate computes the disjunction.
func (l *Or) Evaluate(ctx *calc.SampleContext, now sim.VTimeInSec) (bool, error) {
	for i, in := range l.Inputs {
		v, err := sampleInput(ctx, now, in, i)
		if err != nil {
			return false, err
		}

		if len(l.Negate) > 0 && l.Negate[i] {
			v = !v
		}

		if v {
			return true, nil
		}
	}

	return false, nil
}

// Validate requires at least one input and, when a negation list is given,
// one entry per input.
func (l *Or) Validate(owner string) error {
	if err := inputsRequired(owner, len(l.Inputs)); err != nil {
		return err
	}

	if len(l.Negate) > 0 && len(l.Negate) != len(l.Inputs) {
		return &calc.ConfigError{
			Component: owner,
			Field:     "Negate",
			Reason: fmt.Sprintf("%d negation flags for %d inputs",
				len(l.Negate), len(l.Inputs)),
		}
	}

	return nil
}

// Not is the complement of its input.
type Not struct {
	Input calc.BoolSource
}

// NewNot creates a NOT gate.
func NewNot(name string, input calc.BoolSource) *calc.Gate {
	return calc.NewGate(name, &Not{Input: input})
}

// Evaluate computes the complement.
func (l *Not) Evaluate(ctx *calc.SampleContext, now sim.VTimeInSec) (bool, error) {
	v, err := sampleInput(ctx, now, l.Input, 0)
	if err != nil {
		return false, err
	}

	return !v, nil
}

// Validate requires the input.
func (l *Not) Validate(owner string) error {
	if l.Input == nil {
		return &calc.ConfigError{
			Component: owner,
			Field:     "Input",
			Reason:    "input is not set",
		}
	}

	return nil
}

// Xor is true when an odd number of inputs are true.
type Xor struct {
	Inputs []calc.BoolSource
}

// NewXor creates an XOR gate.
func NewXor(name string, inputs ...calc.BoolSource) *calc.Gate {
	return calc.NewGate(name, &Xor{Inputs: inputs})
}

// Evaluate computes the parity.
func (l *Xor) Evaluate(ctx *calc.SampleContext, now sim.VTimeInSec) (bool, error) {
	out := false

	for i, in := range l.Inputs {
		v, err := sampleInput(ctx, now, in, i)
		if err != nil {
			return false, err
		}

		out = out != v
	}

	return out, nil
}

// Validate requires at least one input.
func (l *Xor) Validate(owner string) error {
	return inputsRequired(owner, len(l.Inputs))
}
