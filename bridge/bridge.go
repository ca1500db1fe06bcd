// Package bridge connects calculation networks to message brokers. Sweep
// results can be published to Kafka or MQTT, and sensor entities can be fed
// from MQTT topics.
package bridge

import (
	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
)

// NodeValue is the output of one node after a sweep.
type NodeValue struct {
	Node  string  `json:"node"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// SweepMessage is the payload published after every sweep.
type SweepMessage struct {
	Controller string      `json:"controller"`
	Tick       uint64      `json:"tick"`
	Time       float64     `json:"time"`
	Values     []NodeValue `json:"values"`
}

// NewSweepMessage collects the outputs of all the nodes bound to the
// controller.
func NewSweepMessage(c *calc.Controller, now sim.VTimeInSec) SweepMessage {
	nodes := c.BoundNodes()

	msg := SweepMessage{
		Controller: c.Name(),
		Tick:       c.TickCount(),
		Time:       float64(now),
		Values:     make([]NodeValue, 0, len(nodes)),
	}

	for _, n := range nodes {
		msg.Values = append(msg.Values, NodeValue{
			Node:  n.Name(),
			Value: n.LastValue(),
			Unit:  n.OutputUnit().String(),
		})
	}

	return msg
}
