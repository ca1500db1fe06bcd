package numeric

import (
	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// Constant outputs a fixed value. It reads no input.
type Constant struct {
	Value float64
	Unit  unit.Type
}

// NewConstant creates a node that always outputs v in unit u.
func NewConstant(name string, v float64, u unit.Type) *calc.Calculation {
	return calc.NewCalculation(name, &Constant{Value: v, Unit: u})
}

// InitialValue returns the constant.
func (k *Constant) InitialValue() float64 {
	return k.Value
}

// OutputUnit returns the declared unit.
func (k *Constant) OutputUnit(_ unit.Type) unit.Type {
	return k.Unit
}

// Inputs returns no slots.
func (k *Constant) Inputs() []*calc.Input {
	return nil
}

// SampleInput returns 0.
func (k *Constant) SampleInput(
	_ *calc.SampleContext,
	_ sim.VTimeInSec,
) (float64, error) {
	return 0, nil
}

// Step returns the constant.
func (k *Constant) Step(_ calc.StepState) (calc.Result, error) {
	return calc.Result{Value: k.Value}, nil
}

// Mean returns the constant.
func (k *Constant) Mean() float64 {
	return k.Value
}
