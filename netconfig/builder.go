package netconfig

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/calc/logic"
	"github.com/sarchlab/signalflow/calc/numeric"
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

type bindable interface {
	calc.Node
	BindController(c *calc.Controller)
	SetSequenceNumber(src calc.ValueSource)
}

// Builder turns documents into networks.
type Builder struct {
	scheduler sim.EventScheduler
	entities  map[string]calc.Entity
}

// MakeBuilder creates a Builder without any entity.
func MakeBuilder() Builder {
	return Builder{}
}

// WithScheduler sets the scheduler that drives all the controllers.
func (b Builder) WithScheduler(s sim.EventScheduler) Builder {
	b.scheduler = s
	return b
}

// WithEntity makes an entity available to sensor nodes under the given name.
func (b Builder) WithEntity(name string, e calc.Entity) Builder {
	entities := make(map[string]calc.Entity, len(b.entities)+1)
	for k, v := range b.entities {
		entities[k] = v
	}

	entities[name] = e
	b.entities = entities

	return b
}

// Build creates the network a document describes. All description problems
// are reported together. The network is not validated nor started.
func (b Builder) Build(doc *Document) (*calc.Network, error) {
	if b.scheduler == nil {
		panic("scheduler is not set")
	}

	if err := doc.Check(); err != nil {
		return nil, err
	}

	r := resolver{nodes: make(map[string]bindable)}

	var errs []error
	for i := range doc.Nodes {
		n, err := b.createNode(&doc.Nodes[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}

		r.nodes[n.Name()] = n
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	network := calc.NewNetwork()
	for i := range doc.Controllers {
		c, err := b.createController(&doc.Controllers[i], r)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		network.AddController(c)
	}

	for i := range doc.Nodes {
		spec := &doc.Nodes[i]
		n := r.nodes[spec.Name]

		errs = append(errs,
			bindNode(network, spec, n, r),
			wireNode(spec, n, r),
		)

		network.AddNode(n)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return network, nil
}

// Kinds returns the supported node kinds, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	return kinds
}

type factory func(b Builder, s *NodeSpec, p params) (bindable, error)

var factories = map[string]factory{
	KindConstant: func(_ Builder, s *NodeSpec, p params) (bindable, error) {
		u, err := outputUnit(s)
		return numeric.NewConstant(s.Name, p.get("value", 0), u), err
	},
	KindIntegrator: func(_ Builder, s *NodeSpec, _ params) (bindable, error) {
		return numeric.NewIntegrator(s.Name, nil, s.Initial), nil
	},
	KindDifferentiator: func(_ Builder, s *NodeSpec, _ params) (bindable, error) {
		return numeric.NewDifferentiator(s.Name, nil, s.Initial), nil
	},
	KindLag: func(_ Builder, s *NodeSpec, p params) (bindable, error) {
		return numeric.NewLag(s.Name, nil, p.get("tau", 1), s.Initial), nil
	},
	KindMovingAverage: func(_ Builder, s *NodeSpec, p params) (bindable, error) {
		window := p.get("window", 1)
		if window != math.Trunc(window) {
			return nil, configError(s.Name, "Params",
				"window must be an integer, got %g", window)
		}

		if window < 1 || window > numeric.MaxWindow {
			return nil, configError(s.Name, "Params",
				"window must be between 1 and %d, got %g",
				numeric.MaxWindow, window)
		}

		c := numeric.NewMovingAverage(s.Name, nil, int(window))
		c.Kernel().(*numeric.MovingAverage).Initial = s.Initial

		return c, nil
	},
	KindWeightedSum: func(_ Builder, s *NodeSpec, _ params) (bindable, error) {
		return numeric.NewWeightedSum(s.Name, nil, s.Coefficients), nil
	},
	KindPolynomial: func(_ Builder, s *NodeSpec, _ params) (bindable, error) {
		c := numeric.NewPolynomial(s.Name, nil, s.Coefficients...)
		c.Kernel().(*numeric.Polynomial).Initial = s.Initial

		return c, nil
	},
	KindUnitDelay: func(_ Builder, s *NodeSpec, _ params) (bindable, error) {
		return numeric.NewUnitDelay(s.Name, nil, s.Initial), nil
	},
	KindPID: func(_ Builder, s *NodeSpec, p params) (bindable, error) {
		k := numeric.NewPIDKernel()
		k.Gain = p.get("gain", k.Gain)
		k.Ti = p.get("ti", k.Ti)
		k.Td = p.get("td", k.Td)
		k.Low = p.get("low", k.Low)
		k.High = p.get("high", k.High)
		k.Initial = s.Initial

		u, err := outputUnit(s)
		k.Unit = u

		return numeric.NewPID(s.Name, k), err
	},
	KindWaveform: func(_ Builder, s *NodeSpec, p params) (bindable, error) {
		shape, err := numeric.ParseShape(s.Shape)
		if s.Shape == "" {
			shape, err = numeric.Sine, nil
		}

		if err != nil {
			return nil, configError(s.Name, "Shape", "%v", err)
		}

		u, err := outputUnit(s)

		return numeric.NewWaveform(s.Name, numeric.Waveform{
			Shape:     shape,
			Amplitude: p.get("amplitude", 1),
			Period:    p.get("period", 1),
			Phase:     p.get("phase", 0),
			Offset:    p.get("offset", 0),
			Unit:      u,
		}), err
	},
	KindSensor: func(b Builder, s *NodeSpec, _ params) (bindable, error) {
		entity, found := b.entities[s.Entity]
		if !found {
			return nil, configError(s.Name, "Entity",
				"unknown entity %q", s.Entity)
		}

		u, err := outputUnit(s)
		c := calc.NewSensor(s.Name, entity, s.Property)
		c.Kernel().(*calc.SensorKernel).Unit = u

		return c, err
	},
	KindAnd: func(_ Builder, s *NodeSpec, _ params) (bindable, error) {
		return newGate(s, logic.NewAnd(s.Name)), nil
	},
	KindOr: func(_ Builder, s *NodeSpec, _ params) (bindable, error) {
		g := logic.NewOr(s.Name)
		g.Logic().(*logic.Or).Negate = s.Negate

		return newGate(s, g), nil
	},
	KindNot: func(_ Builder, s *NodeSpec, _ params) (bindable, error) {
		return newGate(s, logic.NewNot(s.Name, nil)), nil
	},
	KindXor: func(_ Builder, s *NodeSpec, _ params) (bindable, error) {
		return newGate(s, logic.NewXor(s.Name)), nil
	},
}

var knownParams = map[string][]string{
	KindConstant:      {"value"},
	KindLag:           {"tau"},
	KindMovingAverage: {"window"},
	KindPID:           {"gain", "ti", "td", "low", "high"},
	KindWaveform:      {"amplitude", "period", "phase", "offset"},
}

type params map[string]float64

func (p params) get(key string, def float64) float64 {
	if v, found := p[key]; found {
		return v
	}

	return def
}

func (b Builder) createNode(s *NodeSpec) (bindable, error) {
	create, found := factories[s.Kind]
	if !found {
		return nil, configError(s.Name, "Kind", "unknown kind %q", s.Kind)
	}

	for key := range s.Params {
		if !contains(knownParams[s.Kind], key) {
			return nil, configError(s.Name, "Params",
				"%s does not take parameter %q", s.Kind, key)
		}
	}

	return create(b, s, params(s.Params))
}

func (b Builder) createController(
	s *ControllerSpec,
	r resolver,
) (*calc.Controller, error) {
	builder := calc.MakeControllerBuilder().
		WithScheduler(b.scheduler).
		WithFirstTickTime(sim.VTimeInSec(s.FirstTick))

	if s.Freq != 0 {
		if s.Interval != nil {
			return nil, configError(s.Name, "Freq",
				"cannot be combined with an interval")
		}

		if !(s.Freq > 0) || math.IsInf(s.Freq, 0) {
			return nil, configError(s.Name, "Freq",
				"must be positive and finite, got %g", s.Freq)
		}

		builder = builder.WithFreq(sim.Freq(s.Freq) * sim.Hz)
	}

	if s.Interval != nil {
		src, err := r.value(*s.Interval)
		if err != nil {
			return nil, configError(s.Name, "Interval", "%v", err)
		}

		builder = builder.WithIntervalSource(src)
	}

	if s.MaxTicks != nil {
		src, err := r.value(*s.MaxTicks)
		if err != nil {
			return nil, configError(s.Name, "MaxTicks", "%v", err)
		}

		builder = builder.WithMaxTicksSource(src)
	}

	return builder.Build(s.Name), nil
}

func bindNode(
	network *calc.Network,
	s *NodeSpec,
	n bindable,
	r resolver,
) error {
	var errs []error

	if c, found := network.Controller(s.Controller); found {
		n.BindController(c)
	} else {
		errs = append(errs, configError(s.Name, "Controller",
			"unknown controller %q", s.Controller))
	}

	if s.Sequence != nil {
		src, err := r.value(*s.Sequence)
		if err != nil {
			errs = append(errs, configError(s.Name, "Sequence", "%v", err))
		} else {
			n.SetSequenceNumber(src)
		}
	}

	if s.Unit != "" {
		errs = append(errs, declareUnit(s, n))
	}

	return errors.Join(errs...)
}

func declareUnit(s *NodeSpec, n bindable) error {
	u, err := unit.Parse(s.Unit)
	if err != nil {
		return configError(s.Name, "Unit", "%v", err)
	}

	if c, ok := n.(*calc.Calculation); ok {
		return c.LockInputUnit(u)
	}

	return n.SetInputUnit(u)
}

func wireNode(s *NodeSpec, n bindable, r resolver) error {
	switch n := n.(type) {
	case *calc.Calculation:
		return wireCalculation(s, n, r)
	case *calc.Gate:
		return wireGate(s, n, r)
	}

	return nil
}

func wireCalculation(s *NodeSpec, c *calc.Calculation, r resolver) error {
	switch k := c.Kernel().(type) {
	case *numeric.Constant, *numeric.Waveform, *calc.SensorKernel:
		return nil
	case *numeric.WeightedSum:
		for i, ref := range s.Inputs {
			src, err := r.value(ref)
			if err != nil {
				return configError(s.Name, fmt.Sprintf("Inputs[%d]", i),
					"%v", err)
			}

			k.AddInput(src)
		}

		return nil
	case *numeric.PID:
		return errors.Join(
			r.connect(s.Name, "Input", s.Input, k.ProcessVariable),
			r.connect(s.Name, "SetPoint", s.SetPoint, k.SetPoint),
			r.connect(s.Name, "Scale", s.Scale, k.Scale),
		)
	}

	if s.Input == nil {
		return nil
	}

	src, err := r.value(*s.Input)
	if err != nil {
		return configError(s.Name, "Input", "%v", err)
	}

	c.SetInput(src)

	return nil
}

func wireGate(s *NodeSpec, g *calc.Gate, r resolver) error {
	refs := s.Inputs
	if s.Input != nil {
		refs = append([]Ref{*s.Input}, refs...)
	}

	inputs := make([]calc.BoolSource, 0, len(refs))
	for i, ref := range refs {
		src, err := r.boolean(ref)
		if err != nil {
			return configError(s.Name, fmt.Sprintf("Inputs[%d]", i), "%v", err)
		}

		inputs = append(inputs, src)
	}

	switch l := g.Logic().(type) {
	case *logic.And:
		l.Inputs = inputs
	case *logic.Or:
		l.Inputs = inputs
	case *logic.Xor:
		l.Inputs = inputs
	case *logic.Not:
		if len(inputs) > 1 {
			return configError(s.Name, "Inputs",
				"not takes one input, got %d", len(inputs))
		}

		if len(inputs) == 1 {
			l.Input = inputs[0]
		}
	}

	return nil
}

func newGate(s *NodeSpec, g *calc.Gate) *calc.Gate {
	g.SetInitialValue(s.Initial != 0)
	return g
}

func outputUnit(s *NodeSpec) (unit.Type, error) {
	if s.OutputUnit == "" {
		return unit.Dimensionless, nil
	}

	u, err := unit.Parse(s.OutputUnit)
	if err != nil {
		return u, configError(s.Name, "OutputUnit", "%v", err)
	}

	return u, nil
}

type resolver struct {
	nodes map[string]bindable
}

func (r resolver) value(ref Ref) (calc.ValueSource, error) {
	if ref.IsConst() {
		return calc.Const(ref.Value), nil
	}

	n, found := r.nodes[ref.Name]
	if !found {
		return nil, fmt.Errorf("unknown node %q", ref.Name)
	}

	return n, nil
}

func (r resolver) boolean(ref Ref) (calc.BoolSource, error) {
	if ref.IsConst() {
		return calc.ConstBool(ref.Value != 0), nil
	}

	n, found := r.nodes[ref.Name]
	if !found {
		return nil, fmt.Errorf("unknown node %q", ref.Name)
	}

	if b, ok := n.(calc.BoolSource); ok {
		return b, nil
	}

	return calc.BoolOf(n), nil
}

func (r resolver) connect(owner, field string, ref *Ref, in *calc.Input) error {
	if ref == nil {
		return nil
	}

	src, err := r.value(*ref)
	if err != nil {
		return configError(owner, field, "%v", err)
	}

	in.Source = src

	return nil
}

func configError(component, field, format string, args ...any) error {
	return &calc.ConfigError{
		Component: component,
		Field:     field,
		Reason:    fmt.Sprintf(format, args...),
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}
