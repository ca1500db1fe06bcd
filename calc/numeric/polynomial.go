package numeric

import (
	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/unit"
)

// Polynomial evaluates c[0] + c[1]*x + c[2]*x^2 + ... on its input.
type Polynomial struct {
	Coefficients []float64
	Initial      float64
}

// NewPolynomial creates a polynomial node.
func NewPolynomial(
	name string,
	input calc.ValueSource,
	coefficients ...float64,
) *calc.Calculation {
	c := calc.NewCalculation(name, &Polynomial{Coefficients: coefficients})
	c.SetInput(input)

	return c
}

// Degree returns the degree of the polynomial.
func (k *Polynomial) Degree() int {
	return len(k.Coefficients) - 1
}

// InitialValue returns the output before the first update.
func (k *Polynomial) InitialValue() float64 {
	return k.Initial
}

// OutputUnit is the input unit.
func (k *Polynomial) OutputUnit(in unit.Type) unit.Type {
	return in
}

// Validate requires at least one coefficient.
func (k *Polynomial) Validate(owner string) error {
	if len(k.Coefficients) == 0 {
		return &calc.ConfigError{
			Component: owner,
			Field:     "Coefficients",
			Reason:    "at least one coefficient is required",
		}
	}

	return nil
}

// Step evaluates the polynomial with Horner's scheme.
func (k *Polynomial) Step(s calc.StepState) (calc.Result, error) {
	return calc.Result{Value: Horner(k.Coefficients, s.Input)}, nil
}

// Horner evaluates the polynomial with coefficients c, lowest order first, at
// x.
func Horner(c []float64, x float64) float64 {
	out := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		out = out*x + c[i]
	}

	return out
}
