package numeric

import (
	"math"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/unit"
)

// Lag is a first-order lag. The output approaches the input with time
// constant Tau.
type Lag struct {
	Tau     float64
	Initial float64
}

// NewLag creates a first-order lag node.
func NewLag(
	name string,
	input calc.ValueSource,
	tau, initial float64,
) *calc.Calculation {
	c := calc.NewCalculation(name, &Lag{Tau: tau, Initial: initial})
	c.SetInput(input)

	return c
}

// InitialValue returns the output before the first update.
func (k *Lag) InitialValue() float64 {
	return k.Initial
}

// OutputUnit is the input unit.
func (k *Lag) OutputUnit(in unit.Type) unit.Type {
	return in
}

// Validate requires a positive, finite time constant.
func (k *Lag) Validate(owner string) error {
	if !(k.Tau > 0) || math.IsInf(k.Tau, 0) {
		return &calc.ConfigError{
			Component: owner,
			Field:     "Tau",
			Reason:    "time constant must be positive and finite",
		}
	}

	return nil
}

// Step moves the output towards the input by one explicit Euler step.
func (k *Lag) Step(s calc.StepState) (calc.Result, error) {
	dt := s.Dt()
	if dt <= 0 {
		return calc.Result{Value: s.LastOutput}, nil
	}

	return calc.Result{
		Value: s.LastOutput + dt*(s.Input-s.LastOutput)/k.Tau,
	}, nil
}
