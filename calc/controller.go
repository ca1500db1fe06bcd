package calc

import (
	"fmt"
	"log"
	"math"
	"reflect"
	"sort"

	"github.com/sarchlab/signalflow/sim"
)

// Hook positions of a Controller.
var (
	// HookPosSweepStart triggers before the first node of a sweep updates.
	HookPosSweepStart = &sim.HookPos{Name: "SweepStart"}

	// HookPosSweepEnd triggers after the observers of a sweep are notified.
	// Detail carries the SweepError, if any.
	HookPosSweepEnd = &sim.HookPos{Name: "SweepEnd"}

	// HookPosObserverFailure triggers when an observer fails. Item is the
	// observer and Detail is the error.
	HookPosObserverFailure = &sim.HookPos{Name: "ObserverFailure"}
)

// An Observer is notified after every completed sweep of a Controller.
// Observers are best-effort: their failures are reported but never stop the
// controller.
type Observer interface {
	SweepCompleted(c *Controller, now sim.VTimeInSec) error
}

type funcObserver struct {
	fn func(c *Controller, now sim.VTimeInSec) error
}

// ObserverFunc adapts a function to the Observer interface. Every call
// returns a distinct observer, so it can later be unsubscribed.
func ObserverFunc(fn func(c *Controller, now sim.VTimeInSec) error) Observer {
	return &funcObserver{fn: fn}
}

func (o *funcObserver) SweepCompleted(c *Controller, now sim.VTimeInSec) error {
	return o.fn(c, now)
}

// SweepEvent triggers one sweep of a Controller.
type SweepEvent struct {
	sim.EventBase
}

// A Controller periodically updates all the nodes bound to it, in ascending
// order of their sequence numbers.
type Controller struct {
	*sim.ComponentBase

	scheduler     sim.EventScheduler
	firstTickTime sim.VTimeInSec
	interval      ValueSource
	maxTicks      ValueSource

	tickCount uint64
	dormant   bool
	nodes     []Node
	observers []Observer
}

// Scheduler returns the event scheduler that drives the controller.
func (c *Controller) Scheduler() sim.EventScheduler {
	return c.scheduler
}

// FirstTickTime returns the delay of the first sweep.
func (c *Controller) FirstTickTime() sim.VTimeInSec {
	return c.firstTickTime
}

// TickCount returns the number of completed sweeps.
func (c *Controller) TickCount() uint64 {
	return c.tickCount
}

// MaxTicks samples the sweep limit at the current time.
func (c *Controller) MaxTicks() (float64, error) {
	return SampleAt(c.maxTicks, c.scheduler.CurrentTime())
}

// IsDormant tells if the controller has stopped issuing sweeps.
func (c *Controller) IsDormant() bool {
	return c.dormant
}

// BoundNodes returns the nodes in update order. The returned slice is a copy.
func (c *Controller) BoundNodes() []Node {
	nodes := make([]Node, len(c.nodes))
	copy(nodes, c.nodes)

	return nodes
}

// Subscribe registers an observer. Subscribing the same observer twice has
// no effect. Observers of non-comparable types are never the same, so they
// should be passed by pointer to be unsubscribed later.
func (c *Controller) Subscribe(o Observer) {
	for _, existing := range c.observers {
		if sameObserver(existing, o) {
			return
		}
	}

	c.observers = append(c.observers, o)
}

// Unsubscribe removes an observer.
func (c *Controller) Unsubscribe(o Observer) {
	for i, existing := range c.observers {
		if sameObserver(existing, o) {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

func sameObserver(a, b Observer) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}

	if ta != nil && !ta.Comparable() {
		return false
	}

	return a == b
}

// NumObservers returns the number of subscribed observers.
func (c *Controller) NumObservers() int {
	return len(c.observers)
}

// Validate checks the timing settings of the controller.
func (c *Controller) Validate() error {
	if c.scheduler == nil {
		return configErrorf(c.Name(), "Scheduler", "not set")
	}

	if !finiteNonNegative(float64(c.firstTickTime)) {
		return configErrorf(c.Name(), "FirstTickTime",
			"must be finite and non-negative, got %g", c.firstTickTime)
	}

	if _, err := c.sampleInterval(0); err != nil {
		return err
	}

	if _, err := c.sampleMaxTicks(0); err != nil {
		return err
	}

	return nil
}

// EarlyInit takes the nodes bound to the controller out of the given set,
// sorts them by sequence number, and drops all observers.
func (c *Controller) EarlyInit(all []Node) error {
	type keyed struct {
		node Node
		seq  float64
	}

	bound := make([]keyed, 0)
	for _, n := range all {
		if n.Controller() != c {
			continue
		}

		seq, err := n.SequenceNumber(0)
		if err != nil {
			return err
		}

		bound = append(bound, keyed{node: n, seq: seq})
	}

	sort.SliceStable(bound, func(i, j int) bool {
		return bound[i].seq < bound[j].seq
	})

	c.nodes = make([]Node, len(bound))
	for i, k := range bound {
		c.nodes[i] = k.node
	}

	c.observers = nil
	c.tickCount = 0
	c.dormant = false

	return nil
}

// StartUp schedules the first sweep, unless the controller allows no sweep at
// all.
func (c *Controller) StartUp() error {
	maxTicks, err := c.sampleMaxTicks(c.scheduler.CurrentTime())
	if err != nil {
		return err
	}

	if !(maxTicks > 0) {
		c.dormant = true
		return nil
	}

	c.scheduleSweep(c.scheduler.CurrentTime() + c.firstTickTime)

	return nil
}

func (c *Controller) scheduleSweep(t sim.VTimeInSec) {
	evt := SweepEvent{
		EventBase: sim.MakeEventBase(t, c, sim.PriorityNormal, sim.LIFO),
	}
	c.scheduler.Schedule(evt)
}

// Handle runs one sweep. Every bound node is updated even if an earlier one
// fails; the failures are returned together as a SweepError after the
// observers are notified, and the controller stops.
func (c *Controller) Handle(e sim.Event) error {
	if c.dormant {
		return nil
	}

	now := e.Time()

	c.invoke(HookPosSweepStart, now, nil, nil)

	var errs []error
	for _, n := range c.nodes {
		if err := n.Update(now); err != nil {
			errs = append(errs, err)
		}
	}

	c.notifyObservers(now)
	c.tickCount++

	var sweepErr error
	if len(errs) > 0 {
		sweepErr = &SweepError{Controller: c.Name(), Time: now, Errs: errs}
	} else {
		sweepErr = c.scheduleNext(now)
	}

	if sweepErr != nil {
		c.dormant = true
	}

	c.invoke(HookPosSweepEnd, now, nil, sweepErr)

	return sweepErr
}

func (c *Controller) scheduleNext(now sim.VTimeInSec) error {
	maxTicks, err := c.sampleMaxTicks(now)
	if err != nil {
		return err
	}

	if float64(c.tickCount) >= maxTicks {
		c.dormant = true
		return nil
	}

	interval, err := c.sampleInterval(now)
	if err != nil {
		return err
	}

	c.scheduleSweep(now + interval)

	return nil
}

func (c *Controller) sampleMaxTicks(now sim.VTimeInSec) (float64, error) {
	maxTicks, err := SampleAt(c.maxTicks, now)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(maxTicks) || maxTicks < 0 {
		return 0, configErrorf(c.Name(), "MaxTicks",
			"must be non-negative, got %g", maxTicks)
	}

	return maxTicks, nil
}

func (c *Controller) sampleInterval(now sim.VTimeInSec) (sim.VTimeInSec, error) {
	interval, err := SampleAt(c.interval, now)
	if err != nil {
		return 0, err
	}

	if !finiteNonNegative(interval) {
		return 0, configErrorf(c.Name(), "Interval",
			"must be finite and non-negative, got %g", interval)
	}

	return sim.VTimeInSec(interval), nil
}

func (c *Controller) notifyObservers(now sim.VTimeInSec) {
	for _, o := range c.observers {
		if err := c.notifyObserver(o, now); err != nil {
			log.Printf("%s: observer %T failed @ %.10f: %v",
				c.Name(), o, now, err)
			c.invoke(HookPosObserverFailure, now, o, err)
		}
	}
}

func (c *Controller) notifyObserver(o Observer, now sim.VTimeInSec) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()

	return o.SweepCompleted(c, now)
}

func (c *Controller) invoke(
	pos *sim.HookPos,
	now sim.VTimeInSec,
	item, detail any,
) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    now,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
