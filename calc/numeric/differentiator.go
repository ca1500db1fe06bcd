package numeric

import (
	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/unit"
)

// Differentiator outputs the rate of change of its input.
type Differentiator struct {
	Initial float64
}

// NewDifferentiator creates a differentiating node.
func NewDifferentiator(
	name string,
	input calc.ValueSource,
	initial float64,
) *calc.Calculation {
	c := calc.NewCalculation(name, &Differentiator{Initial: initial})
	c.SetInput(input)

	return c
}

// InitialValue returns the output before the first update.
func (k *Differentiator) InitialValue() float64 {
	return k.Initial
}

// OutputUnit is the input unit divided by time.
func (k *Differentiator) OutputUnit(in unit.Type) unit.Type {
	return in.DivTime()
}

// Step returns the backward difference quotient. The output holds when no
// time has passed.
func (k *Differentiator) Step(s calc.StepState) (calc.Result, error) {
	dt := s.Dt()
	if dt <= 0 {
		return calc.Result{Value: s.LastOutput}, nil
	}

	return calc.Result{Value: (s.Input - s.LastInput) / dt}, nil
}
