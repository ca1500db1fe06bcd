package calc

import (
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// NodeState tracks where a node is in its lifecycle.
type NodeState int

// Node lifecycle states.
const (
	NodeUninitialized NodeState = iota
	NodeSeeded
	NodeUpdated
)

func (s NodeState) String() string {
	switch s {
	case NodeUninitialized:
		return "Uninitialized"
	case NodeSeeded:
		return "Seeded"
	case NodeUpdated:
		return "Updated"
	default:
		return "Unknown"
	}
}

// A Node is a stateful calculation that a Controller updates once per sweep.
type Node interface {
	sim.Named
	sim.Hookable
	ValueSource
	UnitTyped

	// Controller returns the controller that drives the node.
	Controller() *Controller

	// SequenceNumber decides the update order within a sweep. Smaller
	// numbers update first.
	SequenceNumber(now sim.VTimeInSec) (float64, error)

	// Inputs returns the unit-typed input slots the node reads.
	Inputs() []*Input

	// InputUnit returns the unit type of the node's inputs.
	InputUnit() unit.Type

	// SetInputUnit changes the input unit type of the node and of every input
	// slot it owns.
	SetInputUnit(u unit.Type) error

	// InputUnitLocked tells if the input unit type was declared and must not
	// be changed by propagation.
	InputUnitLocked() bool

	Validate() error
	EarlyInit() error
	LateInit() error
	Update(now sim.VTimeInSec) error

	State() NodeState
	LastValue() float64
	LastUpdateTime() sim.VTimeInSec
}

// nodeBase carries the controller binding and ordering shared by all nodes.
type nodeBase struct {
	*sim.ComponentBase

	controller *Controller
	seq        ValueSource
	state      NodeState
}

func newNodeBase(name string) nodeBase {
	return nodeBase{
		ComponentBase: sim.NewComponentBase(name),
		seq:           Const(0),
	}
}

// Controller returns the controller that drives the node.
func (n *nodeBase) Controller() *Controller {
	return n.controller
}

// BindController assigns the controller that drives the node.
func (n *nodeBase) BindController(c *Controller) {
	n.controller = c
}

// SetSequenceNumber sets the source of the node's sequence number.
func (n *nodeBase) SetSequenceNumber(src ValueSource) {
	n.seq = src
}

// SequenceNumber samples the sequence number at the given time.
func (n *nodeBase) SequenceNumber(now sim.VTimeInSec) (float64, error) {
	return SampleAt(n.seq, now)
}

// State returns the lifecycle state of the node.
func (n *nodeBase) State() NodeState {
	return n.state
}

func (n *nodeBase) validateBinding() error {
	if n.controller == nil {
		return configErrorf(n.Name(), "Controller", "no controller assigned")
	}

	if n.seq == nil {
		return configErrorf(n.Name(), "SequenceNumber", "not set")
	}

	seq, err := n.SequenceNumber(0)
	if err != nil {
		return err
	}

	if !(seq >= 0) {
		return configErrorf(n.Name(), "SequenceNumber",
			"must be non-negative, got %g", seq)
	}

	return nil
}

func (n *nodeBase) invoke(
	domain sim.Hookable,
	pos *sim.HookPos,
	now sim.VTimeInSec,
	detail any,
) {
	if n.NumHooks() == 0 {
		return
	}

	n.InvokeHook(sim.HookCtx{
		Domain: domain,
		Now:    now,
		Pos:    pos,
		Item:   domain,
		Detail: detail,
	})
}
