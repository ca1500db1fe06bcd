package numeric

import (
	"math"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// PID is a proportional-integral-derivative controller. The node's input is
// the process variable. The error is (set point - process variable) / scale.
//
// The set point, the process variable, and the scale share the node's input
// unit.
type PID struct {
	ProcessVariable *calc.Input
	SetPoint        *calc.Input
	Scale           *calc.Input

	Gain float64
	Ti   float64
	Td   float64
	Low  float64
	High float64

	Unit    unit.Type
	Initial float64

	integral  float64
	lastError float64
}

// NewPIDKernel creates a PID kernel with unit gain, unit scale, no derivative
// action, and unbounded output.
func NewPIDKernel() *PID {
	return &PID{
		ProcessVariable: calc.NewInput("ProcessVariable", nil),
		SetPoint:        calc.NewInput("SetPoint", nil),
		Scale:           calc.NewInput("Scale", calc.Const(1)),
		Gain:            1,
		Ti:              1,
		Low:             math.Inf(-1),
		High:            math.Inf(1),
	}
}

// NewPID creates a PID node around the given kernel.
func NewPID(name string, k *PID) *calc.Calculation {
	return calc.NewCalculation(name, k)
}

// Integral returns the accumulated error integral.
func (k *PID) Integral() float64 {
	return k.integral
}

// Inputs returns the process variable, the set point, and the scale.
func (k *PID) Inputs() []*calc.Input {
	return []*calc.Input{k.ProcessVariable, k.SetPoint, k.Scale}
}

// SampleInput samples the process variable.
func (k *PID) SampleInput(
	ctx *calc.SampleContext,
	now sim.VTimeInSec,
) (float64, error) {
	return k.ProcessVariable.Sample(ctx, now)
}

// InitialValue returns the output before the first update.
func (k *PID) InitialValue() float64 {
	return k.Initial
}

// OutputUnit returns the declared actuator unit.
func (k *PID) OutputUnit(_ unit.Type) unit.Type {
	return k.Unit
}

// Validate checks the tuning parameters.
func (k *PID) Validate(owner string) error {
	switch {
	case !(k.Ti > 0):
		return &calc.ConfigError{Component: owner, Field: "Ti",
			Reason: "integral time must be positive"}
	case math.IsNaN(k.Td) || k.Td < 0:
		return &calc.ConfigError{Component: owner, Field: "Td",
			Reason: "derivative time must be non-negative"}
	case math.IsNaN(k.Gain):
		return &calc.ConfigError{Component: owner, Field: "Gain",
			Reason: "gain is not a number"}
	case !(k.Low <= k.High):
		return &calc.ConfigError{Component: owner, Field: "Low",
			Reason: "output low limit is above the high limit"}
	}

	return nil
}

// EarlyInit clears the integral and the remembered error.
func (k *PID) EarlyInit() error {
	k.integral = 0
	k.lastError = 0

	return nil
}

// Step runs one controller step. A zero scale holds the previous output.
func (k *PID) Step(s calc.StepState) (calc.Result, error) {
	sp, err := k.SetPoint.Sample(s.Ctx, s.Now)
	if err != nil {
		return calc.Result{}, err
	}

	scale, err := k.Scale.Sample(s.Ctx, s.Now)
	if err != nil {
		return calc.Result{}, err
	}

	if scale == 0 {
		return calc.Result{Value: s.LastOutput}, nil
	}

	dt := s.Dt()
	e := (sp - s.Input) / scale
	integral := k.integral + e*dt

	derivative := 0.0
	if dt > 0 {
		derivative = (e - k.lastError) / dt
	}

	out := k.Gain * (e + integral/k.Ti + k.Td*derivative)

	return calc.Result{
		Value: clamp(out, k.Low, k.High),
		Commit: func() {
			k.integral = integral
			k.lastError = e
		},
	}, nil
}

func clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}
