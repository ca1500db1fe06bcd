package numeric

import (
	"fmt"
	"math"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// Shape is the shape of a periodic waveform.
type Shape int

// Supported shapes.
const (
	Sine Shape = iota
	Square
)

func (s Shape) String() string {
	switch s {
	case Sine:
		return "sine"
	case Square:
		return "square"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ParseShape converts a shape name into a Shape.
func ParseShape(name string) (Shape, error) {
	switch name {
	case "sine", "sin":
		return Sine, nil
	case "square":
		return Square, nil
	}

	return 0, fmt.Errorf("unknown waveform shape %q", name)
}

// Waveform generates amplitude * shape(2*pi*t/period + phase) + offset. It
// reads no input.
type Waveform struct {
	Shape     Shape
	Amplitude float64
	Period    float64
	Phase     float64
	Offset    float64
	Unit      unit.Type
}

// NewWaveform creates a waveform node.
func NewWaveform(name string, w Waveform) *calc.Calculation {
	return calc.NewCalculation(name, &w)
}

// At returns the value of the waveform at the given time.
func (k *Waveform) At(t sim.VTimeInSec) float64 {
	angle := 2*math.Pi*float64(t)/k.Period + k.Phase

	return k.Amplitude*k.shape(angle) + k.Offset
}

func (k *Waveform) shape(angle float64) float64 {
	switch k.Shape {
	case Square:
		wrapped := math.Mod(angle, 2*math.Pi)
		if wrapped < 0 {
			wrapped += 2 * math.Pi
		}

		if wrapped < math.Pi {
			return 1
		}

		return -1
	default:
		return math.Sin(angle)
	}
}

// Inputs returns no slots.
func (k *Waveform) Inputs() []*calc.Input {
	return nil
}

// SampleInput returns 0.
func (k *Waveform) SampleInput(
	_ *calc.SampleContext,
	_ sim.VTimeInSec,
) (float64, error) {
	return 0, nil
}

// InitialValue is the value at time 0.
func (k *Waveform) InitialValue() float64 {
	return k.At(0)
}

// OutputUnit returns the declared unit.
func (k *Waveform) OutputUnit(_ unit.Type) unit.Type {
	return k.Unit
}

// Validate requires a positive, finite period and a known shape.
func (k *Waveform) Validate(owner string) error {
	if !(k.Period > 0) || math.IsInf(k.Period, 0) {
		return &calc.ConfigError{Component: owner, Field: "Period",
			Reason: "must be positive and finite"}
	}

	if k.Shape != Sine && k.Shape != Square {
		return &calc.ConfigError{Component: owner, Field: "Shape",
			Reason: fmt.Sprintf("unknown shape %s", k.Shape)}
	}

	return nil
}

// Step returns the value at the current time.
func (k *Waveform) Step(s calc.StepState) (calc.Result, error) {
	return calc.Result{Value: k.At(s.Now)}, nil
}

// Mean returns the offset.
func (k *Waveform) Mean() float64 {
	return k.Offset
}
