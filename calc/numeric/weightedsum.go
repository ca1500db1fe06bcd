package numeric

import (
	"fmt"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// WeightedSum outputs the sum of its inputs, each multiplied by its
// coefficient. Without coefficients it is a plain sum.
type WeightedSum struct {
	Coefficients []float64

	inputs []*calc.Input
}

// NewWeightedSum creates a weighted-sum node over the given sources.
func NewWeightedSum(
	name string,
	sources []calc.ValueSource,
	coefficients []float64,
) *calc.Calculation {
	k := &WeightedSum{Coefficients: coefficients}
	for _, src := range sources {
		k.AddInput(src)
	}

	return calc.NewCalculation(name, k)
}

// AddInput appends a source.
func (k *WeightedSum) AddInput(src calc.ValueSource) {
	name := fmt.Sprintf("Inputs[%d]", len(k.inputs))
	k.inputs = append(k.inputs, calc.NewInput(name, src))
}

// Inputs returns one slot per source.
func (k *WeightedSum) Inputs() []*calc.Input {
	return k.inputs
}

// SampleInput samples every source and returns the weighted sum.
func (k *WeightedSum) SampleInput(
	ctx *calc.SampleContext,
	now sim.VTimeInSec,
) (float64, error) {
	sum := 0.0

	for i, in := range k.inputs {
		v, err := in.Sample(ctx, now)
		if err != nil {
			return 0, err
		}

		if len(k.Coefficients) > 0 {
			v *= k.Coefficients[i]
		}

		sum += v
	}

	return sum, nil
}

// InitialValue is 0.
func (k *WeightedSum) InitialValue() float64 {
	return 0
}

// OutputUnit is the input unit.
func (k *WeightedSum) OutputUnit(in unit.Type) unit.Type {
	return in
}

// Validate requires at least one input and, when coefficients are given, one
// coefficient per input.
func (k *WeightedSum) Validate(owner string) error {
	if len(k.inputs) == 0 {
		return &calc.ConfigError{
			Component: owner,
			Field:     "Inputs",
			Reason:    "at least one input is required",
		}
	}

	if len(k.Coefficients) > 0 && len(k.Coefficients) != len(k.inputs) {
		return &calc.ConfigError{
			Component: owner,
			Field:     "Coefficients",
			Reason: fmt.Sprintf("%d coefficients for %d inputs",
				len(k.Coefficients), len(k.inputs)),
		}
	}

	return nil
}

// Step returns the sum.
func (k *WeightedSum) Step(s calc.StepState) (calc.Result, error) {
	return calc.Result{Value: s.Input}, nil
}
