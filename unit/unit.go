// Package unit provides the dimensional tags that calculation nodes attach to
// their inputs and outputs.
package unit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Dimension is one of the base dimensions a unit type is made of.
type Dimension int

// Base dimensions.
const (
	DimTime Dimension = iota
	DimDistance
	DimMass
	DimTemperature
	DimCurrency
	DimAngle
	numDimensions
)

var dimSymbols = [numDimensions]string{"s", "m", "kg", "K", "$", "rad"}

// A Type is a dimensional tag: the exponent of every base dimension. The zero
// value is Dimensionless.
type Type struct {
	exps [numDimensions]int8
}

// Predefined unit types.
var (
	Dimensionless = Type{}
	Time          = base(DimTime)
	Distance      = base(DimDistance)
	Mass          = base(DimMass)
	Temperature   = base(DimTemperature)
	Currency      = base(DimCurrency)
	Angle         = base(DimAngle)
	Rate          = Dimensionless.DivTime()
	Speed         = Distance.DivTime()
	Acceleration  = Speed.DivTime()
	Area          = Distance.Mul(Distance)
	Volume        = Area.Mul(Distance)
	VolumeFlow    = Volume.DivTime()
	MassFlow      = Mass.DivTime()
	Energy        = Mass.Mul(Area).Div(Time.Mul(Time))
	Power         = Energy.DivTime()
	AngularSpeed  = Angle.DivTime()
	CostRate      = Currency.DivTime()
)

var registry = map[string]Type{
	"Dimensionless": Dimensionless,
	"Time":          Time,
	"Distance":      Distance,
	"Mass":          Mass,
	"Temperature":   Temperature,
	"Currency":      Currency,
	"Angle":         Angle,
	"Rate":          Rate,
	"Speed":         Speed,
	"Acceleration":  Acceleration,
	"Area":          Area,
	"Volume":        Volume,
	"VolumeFlow":    VolumeFlow,
	"MassFlow":      MassFlow,
	"Energy":        Energy,
	"Power":         Power,
	"AngularSpeed":  AngularSpeed,
	"CostRate":      CostRate,
}

// ErrUnknownUnit is returned by Parse for names that are not registered.
var ErrUnknownUnit = errors.New("unknown unit type")

func base(d Dimension) Type {
	var t Type
	t.exps[d] = 1

	return t
}

// Mul returns the product of two unit types.
func (t Type) Mul(o Type) Type {
	for i := range t.exps {
		t.exps[i] += o.exps[i]
	}

	return t
}

// Div returns the quotient of two unit types.
func (t Type) Div(o Type) Type {
	for i := range t.exps {
		t.exps[i] -= o.exps[i]
	}

	return t
}

// MulTime returns the unit type multiplied by time, which is what an
// integrator does to its input.
func (t Type) MulTime() Type {
	return t.Mul(Time)
}

// DivTime returns the unit type divided by time, which is what a
// differentiator does to its input.
func (t Type) DivTime() Type {
	return t.Div(Time)
}

// Exponent returns the exponent of a base dimension.
func (t Type) Exponent(d Dimension) int {
	return int(t.exps[d])
}

// IsDimensionless tells if all the exponents are zero.
func (t Type) IsDimensionless() bool {
	return t == Dimensionless
}

// Compatible tells if a value of unit type o can be fed where t is expected.
func (t Type) Compatible(o Type) bool {
	return t == o
}

// String returns the registered name of the type, or its dimensional formula
// when no name is registered for it.
func (t Type) String() string {
	if name, ok := nameOf(t); ok {
		return name
	}

	return t.Formula()
}

// Formula renders the type as products of base symbols, such as "m*s^-1".
func (t Type) Formula() string {
	if t.IsDimensionless() {
		return "1"
	}

	parts := make([]string, 0, len(t.exps))
	for d, e := range t.exps {
		switch {
		case e == 0:
			continue
		case e == 1:
			parts = append(parts, dimSymbols[d])
		default:
			parts = append(parts, fmt.Sprintf("%s^%d", dimSymbols[d], e))
		}
	}

	return strings.Join(parts, "*")
}

func nameOf(t Type) (string, bool) {
	names := make([]string, 0, 1)
	for name, rt := range registry {
		if rt == t {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return "", false
	}

	sort.Strings(names)

	return names[0], true
}

// Parse looks up a unit type by its registered name. Names of the form
// "A/Time" and "A*Time" are accepted for every registered A.
func Parse(name string) (Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Dimensionless, nil
	}

	if t, ok := registry[name]; ok {
		return t, nil
	}

	if i := strings.LastIndex(name, "/"); i >= 0 {
		return combine(name[:i], name[i+1:], Type.Div)
	}

	if i := strings.LastIndex(name, "*"); i >= 0 {
		return combine(name[:i], name[i+1:], Type.Mul)
	}

	return Dimensionless, fmt.Errorf("%w: %q", ErrUnknownUnit, name)
}

func combine(a, b string, op func(Type, Type) Type) (Type, error) {
	ta, err := Parse(a)
	if err != nil {
		return Dimensionless, err
	}

	tb, err := Parse(b)
	if err != nil {
		return Dimensionless, err
	}

	return op(ta, tb), nil
}

// Register adds a named unit type so that Parse can find it.
func Register(name string, t Type) {
	if _, exists := registry[name]; exists {
		panic("unit type " + name + " already registered")
	}

	registry[name] = t
}
