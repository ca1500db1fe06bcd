package numeric

import (
	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/unit"
)

// Integrator integrates its input over time with the trapezoidal rule.
type Integrator struct {
	Initial float64
}

// NewIntegrator creates an integrating node.
func NewIntegrator(
	name string,
	input calc.ValueSource,
	initial float64,
) *calc.Calculation {
	c := calc.NewCalculation(name, &Integrator{Initial: initial})
	c.SetInput(input)

	return c
}

// InitialValue returns the value the integral starts from.
func (k *Integrator) InitialValue() float64 {
	return k.Initial
}

// OutputUnit is the input unit multiplied by time.
func (k *Integrator) OutputUnit(in unit.Type) unit.Type {
	return in.MulTime()
}

// Step adds the trapezoid between the last and the current input. The output
// holds when no time has passed.
func (k *Integrator) Step(s calc.StepState) (calc.Result, error) {
	dt := s.Dt()
	if dt <= 0 {
		return calc.Result{Value: s.LastOutput}, nil
	}

	return calc.Result{
		Value: s.LastOutput + 0.5*(s.LastInput+s.Input)*dt,
	}, nil
}
