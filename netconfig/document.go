// Package netconfig describes calculation networks in YAML and builds them.
//
// A document lists controllers and nodes. Node inputs refer to other nodes by
// name or give a constant number:
//
//	controllers:
//	  - name: Ctrl
//	    interval: 0.5
//	    max_ticks: 100
//	nodes:
//	  - name: Room
//	    kind: lag
//	    controller: Ctrl
//	    input: Heater
//	    params: {tau: 30}
package netconfig

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/signalflow/sim"
)

// Node kinds.
const (
	KindConstant       = "constant"
	KindIntegrator     = "integrator"
	KindDifferentiator = "differentiator"
	KindLag            = "lag"
	KindMovingAverage  = "moving_average"
	KindWeightedSum    = "weighted_sum"
	KindPolynomial     = "polynomial"
	KindUnitDelay      = "unit_delay"
	KindPID            = "pid"
	KindWaveform       = "waveform"
	KindSensor         = "sensor"
	KindAnd            = "and"
	KindOr             = "or"
	KindNot            = "not"
	KindXor            = "xor"
)

// Document is a network description.
type Document struct {
	// Name names the model. It is informational only.
	Name string `yaml:"name,omitempty"`

	Controllers []ControllerSpec `yaml:"controllers"`
	Nodes       []NodeSpec       `yaml:"nodes"`
}

// ControllerSpec describes a controller.
type ControllerSpec struct {
	Name string `yaml:"name"`

	// FirstTick is the delay of the first sweep after start up.
	FirstTick float64 `yaml:"first_tick,omitempty"`

	// Interval is the time between sweeps. It defaults to 1.
	Interval *Ref `yaml:"interval,omitempty"`

	// Freq sets the interval as a sweep rate in Hz instead.
	Freq float64 `yaml:"freq,omitempty"`

	// MaxTicks limits the number of sweeps. Without it the controller sweeps
	// until the engine stops.
	MaxTicks *Ref `yaml:"max_ticks,omitempty"`
}

// NodeSpec describes a node. Which fields matter depends on the kind.
type NodeSpec struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Controller string `yaml:"controller"`
	Sequence   *Ref   `yaml:"sequence,omitempty"`

	// Unit declares the input unit. Declared units are checked, not derived.
	Unit string `yaml:"unit,omitempty"`

	// OutputUnit is the unit of kinds that do not derive it from their
	// input: constant, pid, waveform, and sensor.
	OutputUnit string `yaml:"output_unit,omitempty"`

	Input    *Ref  `yaml:"input,omitempty"`
	Inputs   []Ref `yaml:"inputs,omitempty"`
	SetPoint *Ref  `yaml:"set_point,omitempty"`
	Scale    *Ref  `yaml:"scale,omitempty"`

	Initial      float64            `yaml:"initial,omitempty"`
	Params       map[string]float64 `yaml:"params,omitempty"`
	Coefficients []float64          `yaml:"coefficients,omitempty"`
	Negate       []bool             `yaml:"negate,omitempty"`
	Shape        string             `yaml:"shape,omitempty"`

	Entity   string `yaml:"entity,omitempty"`
	Property string `yaml:"property,omitempty"`
}

// A Ref is either the name of a node or a constant number.
type Ref struct {
	Name  string
	Value float64
}

// Num creates a constant reference.
func Num(v float64) Ref {
	return Ref{Value: v}
}

// Named creates a reference to a node.
func Named(name string) Ref {
	return Ref{Name: name}
}

// IsConst tells if the reference is a number.
func (r Ref) IsConst() bool {
	return r.Name == ""
}

func (r Ref) String() string {
	if r.IsConst() {
		return fmt.Sprintf("%g", r.Value)
	}

	return r.Name
}

// UnmarshalYAML reads numbers as constants and everything else as names.
func (r *Ref) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a node name or a number",
			value.Line)
	}

	switch value.ShortTag() {
	case "!!int", "!!float":
		*r = Ref{}
		return value.Decode(&r.Value)
	default:
		if value.Value == "" {
			return fmt.Errorf("line %d: empty reference", value.Line)
		}

		*r = Named(value.Value)

		return nil
	}
}

// MarshalYAML writes the reference back as a number or a name.
func (r Ref) MarshalYAML() (any, error) {
	if r.IsConst() {
		return r.Value, nil
	}

	return r.Name, nil
}

// LoadFile reads a document from a YAML file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network file: %w", err)
	}

	return Load(bytes.NewReader(data))
}

// Load parses a document. Unknown fields are rejected.
func Load(r io.Reader) (*Document, error) {
	var doc Document

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := doc.Check(); err != nil {
		return nil, fmt.Errorf("invalid network: %w", err)
	}

	return &doc, nil
}

// Check validates the names and kinds in the document.
func (d *Document) Check() error {
	seen := make(map[string]bool)

	claim := func(what string, i int, name string) error {
		if name == "" {
			return fmt.Errorf("%s[%d]: name is required", what, i)
		}

		if err := sim.CheckName(name); err != nil {
			return fmt.Errorf("%s[%d]: %w", what, i, err)
		}

		if seen[name] {
			return fmt.Errorf("%s[%d]: name %s is already used", what, i, name)
		}

		seen[name] = true

		return nil
	}

	for i, c := range d.Controllers {
		if err := claim("controllers", i, c.Name); err != nil {
			return err
		}
	}

	for i, n := range d.Nodes {
		if err := claim("nodes", i, n.Name); err != nil {
			return err
		}

		if n.Kind == "" {
			return fmt.Errorf("nodes[%d]: kind is required", i)
		}
	}

	return nil
}

// Encode writes the document as YAML.
func (d *Document) Encode(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(d); err != nil {
		return err
	}

	return encoder.Close()
}
