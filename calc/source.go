package calc

import (
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// A ValueSource can be asked for its value at a simulation time. Every
// calculation node is a ValueSource, and so are a few providers that live
// outside the calculation graph.
type ValueSource interface {
	// Sample returns the value at the given time. It must not change the
	// cached state of the source. The context may be nil.
	Sample(ctx *SampleContext, now sim.VTimeInSec) (float64, error)

	// MeanValue returns the long-run mean of the source.
	MeanValue(now sim.VTimeInSec) float64
}

// A BoolSource can be asked for a boolean value at a simulation time.
type BoolSource interface {
	SampleBool(ctx *SampleContext, now sim.VTimeInSec) (bool, error)
}

// UnitTyped is implemented by sources that know the unit of their output.
type UnitTyped interface {
	OutputUnit() unit.Type
}

// SampleAt samples a source with a fresh context.
func SampleAt(src ValueSource, now sim.VTimeInSec) (float64, error) {
	return src.Sample(NewSampleContext(), now)
}

type constant struct {
	value float64
}

// Const returns a source that always yields v. It carries no unit, so it can
// feed inputs of any unit type.
func Const(v float64) ValueSource {
	return constant{value: v}
}

func (c constant) Sample(_ *SampleContext, _ sim.VTimeInSec) (float64, error) {
	return c.value, nil
}

func (c constant) MeanValue(_ sim.VTimeInSec) float64 {
	return c.value
}

type typedConstant struct {
	constant
	unit unit.Type
}

// ConstOf returns a source that always yields v in unit u.
func ConstOf(v float64, u unit.Type) ValueSource {
	return typedConstant{constant: constant{value: v}, unit: u}
}

func (c typedConstant) OutputUnit() unit.Type {
	return c.unit
}

type funcSource struct {
	src ValueSource
	fn  func(float64) float64
}

// Func returns a source whose value is fn applied to the value of src.
func Func(src ValueSource, fn func(float64) float64) ValueSource {
	return funcSource{src: src, fn: fn}
}

func (f funcSource) Sample(
	ctx *SampleContext,
	now sim.VTimeInSec,
) (float64, error) {
	v, err := f.src.Sample(ctx, now)
	if err != nil {
		return 0, err
	}

	return f.fn(v), nil
}

func (f funcSource) MeanValue(now sim.VTimeInSec) float64 {
	return f.fn(f.src.MeanValue(now))
}

type boolConstant bool

// ConstBool returns a boolean source that always yields b.
func ConstBool(b bool) BoolSource {
	return boolConstant(b)
}

func (b boolConstant) SampleBool(
	_ *SampleContext,
	_ sim.VTimeInSec,
) (bool, error) {
	return bool(b), nil
}

type nonZero struct {
	src ValueSource
}

// BoolOf returns a boolean view of a numeric source: any non-zero value is
// true.
func BoolOf(src ValueSource) BoolSource {
	if b, ok := src.(BoolSource); ok {
		return b
	}

	return nonZero{src: src}
}

func (n nonZero) SampleBool(
	ctx *SampleContext,
	now sim.VTimeInSec,
) (bool, error) {
	v, err := n.src.Sample(ctx, now)
	if err != nil {
		return false, err
	}

	return v != 0, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
