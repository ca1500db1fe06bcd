package datarecording

import (
	"context"
	"strings"

	"github.com/rs/xid"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
)

// SweepTable is the table that a SweepRecorder writes into.
const SweepTable = "sweep_values"

// SweepEntry is the value of one node after one sweep.
type SweepEntry struct {
	ID         string
	Controller string
	Tick       uint64
	Time       float64
	Node       string
	Value      float64
	Unit       string
}

// A SweepRecorder observes controllers and records the value of every bound
// node after each sweep.
type SweepRecorder struct {
	recorder     DataRecorder
	tableCreated bool
}

// NewSweepRecorder creates a SweepRecorder that writes into the recorder.
func NewSweepRecorder(recorder DataRecorder) *SweepRecorder {
	return &SweepRecorder{recorder: recorder}
}

// Observe subscribes the recorder to a controller. Controllers drop their
// observers at early init, so this must happen after it.
func (r *SweepRecorder) Observe(c *calc.Controller) {
	c.Subscribe(r)
}

// SweepCompleted records the nodes of the controller.
func (r *SweepRecorder) SweepCompleted(
	c *calc.Controller,
	now sim.VTimeInSec,
) error {
	if !r.tableCreated {
		r.recorder.CreateTable(SweepTable, SweepEntry{})
		r.tableCreated = true
	}

	for _, n := range c.BoundNodes() {
		r.recorder.InsertData(SweepTable, SweepEntry{
			ID:         xid.New().String(),
			Controller: c.Name(),
			Tick:       c.TickCount(),
			Time:       float64(now),
			Node:       n.Name(),
			Value:      n.LastValue(),
			Unit:       n.OutputUnit().String(),
		})
	}

	return nil
}

// SweepQuery selects recorded sweep values. Empty fields match everything.
type SweepQuery struct {
	Controller string
	Node       string
	Limit      int
}

// QuerySweeps reads the recorded sweep values in tick order. It also returns
// the number of rows that match without the limit.
func QuerySweeps(
	ctx context.Context,
	r DataReader,
	q SweepQuery,
) ([]*SweepEntry, int, error) {
	r.MapTable(SweepTable, SweepEntry{})

	var (
		conds  []string
		params = QueryParams{
			OrderBy: "Tick, Controller, Node",
			Limit:   q.Limit,
		}
	)

	if q.Controller != "" {
		conds = append(conds, "Controller = ?")
		params.Args = append(params.Args, q.Controller)
	}

	if q.Node != "" {
		conds = append(conds, "Node = ?")
		params.Args = append(params.Args, q.Node)
	}

	params.Where = strings.Join(conds, " AND ")

	rows, total, err := r.Query(ctx, SweepTable, params)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]*SweepEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.(*SweepEntry)
	}

	return entries, total, nil
}
