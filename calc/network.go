package calc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sarchlab/signalflow/unit"
)

// A Network owns the controllers and nodes of a model and takes them through
// the model lifecycle. Units are propagated before validation, so that
// undeclared input units are derived before they are checked.
type Network struct {
	controllers []*Controller
	nodes       []Node
	byName      map[string]any
	started     bool
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		byName: make(map[string]any),
	}
}

// AddController registers a controller. It panics if the name is taken.
func (n *Network) AddController(c *Controller) *Controller {
	n.mustNotBeTaken(c.Name())
	n.byName[c.Name()] = c
	n.controllers = append(n.controllers, c)

	return c
}

// AddNode registers a node. It panics if the name is taken.
func (n *Network) AddNode(node Node) Node {
	n.mustNotBeTaken(node.Name())
	n.byName[node.Name()] = node
	n.nodes = append(n.nodes, node)

	return node
}

func (n *Network) mustNotBeTaken(name string) {
	if _, found := n.byName[name]; found {
		panic(fmt.Sprintf("name %s is already used in the network", name))
	}
}

// Controllers returns the registered controllers in registration order.
func (n *Network) Controllers() []*Controller {
	out := make([]*Controller, len(n.controllers))
	copy(out, n.controllers)

	return out
}

// Nodes returns the registered nodes in registration order.
func (n *Network) Nodes() []Node {
	out := make([]Node, len(n.nodes))
	copy(out, n.nodes)

	return out
}

// Controller finds a controller by name.
func (n *Network) Controller(name string) (*Controller, bool) {
	c, ok := n.byName[name].(*Controller)
	return c, ok
}

// Node finds a node by name.
func (n *Network) Node(name string) (Node, bool) {
	node, ok := n.byName[name].(Node)
	return node, ok
}

// Names returns all registered names, sorted.
func (n *Network) Names() []string {
	names := make([]string, 0, len(n.byName))
	for name := range n.byName {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Validate checks every controller and node. All problems are reported
// together.
func (n *Network) Validate() error {
	var errs []error

	for _, c := range n.controllers {
		errs = append(errs, c.Validate())
	}

	for _, node := range n.nodes {
		if c := node.Controller(); c != nil {
			if owned, _ := n.Controller(c.Name()); owned != c {
				errs = append(errs, configErrorf(node.Name(), "Controller",
					"controller %s is not part of the network", c.Name()))
			}
		}

		errs = append(errs, node.Validate())
	}

	return errors.Join(errs...)
}

// PropagateUnits pushes the output unit of every node's first upstream source
// into the downstream node, until nothing changes. Downstream nodes whose
// input unit was declared are checked once the units have settled.
func (n *Network) PropagateUnits() error {
	for pass := 0; pass <= len(n.nodes); pass++ {
		changed, err := n.propagateOnce()
		if err != nil {
			return err
		}

		if !changed {
			return n.checkDeclaredUnits()
		}
	}

	return configErrorf("Network", "", "unit propagation does not settle")
}

func (n *Network) propagateOnce() (bool, error) {
	changed := false

	for _, node := range n.nodes {
		if node.InputUnitLocked() {
			continue
		}

		u, ok := upstreamUnit(node)
		if !ok || u == node.InputUnit() {
			continue
		}

		if err := node.SetInputUnit(u); err != nil {
			return false, err
		}

		changed = true
	}

	return changed, nil
}

func (n *Network) checkDeclaredUnits() error {
	var errs []error

	for _, node := range n.nodes {
		if !node.InputUnitLocked() {
			continue
		}

		u, ok := upstreamUnit(node)
		if !ok || u.Compatible(node.InputUnit()) {
			continue
		}

		errs = append(errs, configErrorf(node.Name(), "InputUnit",
			"declared %s, but %s provides %s",
			node.InputUnit(), node.Inputs()[0].Name(), u))
	}

	return errors.Join(errs...)
}

func upstreamUnit(node Node) (unit.Type, bool) {
	inputs := node.Inputs()
	if len(inputs) == 0 || !inputs[0].IsSet() {
		return unit.Type{}, false
	}

	upstream, ok := inputs[0].Source.(UnitTyped)
	if !ok {
		return unit.Type{}, false
	}

	return upstream.OutputUnit(), true
}

// EarlyInit seeds every node, then lets every controller take its bound
// nodes.
func (n *Network) EarlyInit() error {
	for _, node := range n.nodes {
		if err := node.EarlyInit(); err != nil {
			return err
		}
	}

	for _, c := range n.controllers {
		if err := c.EarlyInit(n.nodes); err != nil {
			return err
		}
	}

	return nil
}

// LateInit seeds the last input of every node.
func (n *Network) LateInit() error {
	for _, node := range n.nodes {
		if err := node.LateInit(); err != nil {
			return err
		}
	}

	return nil
}

// StartUp schedules the first sweep of every controller.
func (n *Network) StartUp() error {
	for _, c := range n.controllers {
		if err := c.StartUp(); err != nil {
			return err
		}
	}

	return nil
}

// Start runs the whole lifecycle up to the scheduling of the first sweeps.
// It can only succeed once.
func (n *Network) Start() error {
	if n.started {
		return errors.New("network already started")
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"propagate units", n.PropagateUnits},
		{"validate", n.Validate},
		{"early init", n.EarlyInit},
		{"late init", n.LateInit},
		{"start up", n.StartUp},
	}

	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	n.started = true

	return nil
}
