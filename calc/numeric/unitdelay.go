package numeric

import (
	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/unit"
)

// UnitDelay holds its input for one sweep. Readers always see the value of
// the previous update, never a fresh sample, so a UnitDelay placed in a
// feedback path breaks the closed loop.
type UnitDelay struct {
	Initial float64
}

// NewUnitDelay creates a unit-delay node.
func NewUnitDelay(
	name string,
	input calc.ValueSource,
	initial float64,
) *calc.Calculation {
	c := calc.NewCalculation(name, &UnitDelay{Initial: initial})
	c.SetInput(input)

	return c
}

// InitialValue returns what readers see before the first update.
func (k *UnitDelay) InitialValue() float64 {
	return k.Initial
}

// OutputUnit is the input unit.
func (k *UnitDelay) OutputUnit(in unit.Type) unit.Type {
	return in
}

// Delays is always true.
func (k *UnitDelay) Delays() bool {
	return true
}

// Step records the input.
func (k *UnitDelay) Step(s calc.StepState) (calc.Result, error) {
	return calc.Result{Value: s.Input}, nil
}
