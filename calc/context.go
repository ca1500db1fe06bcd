package calc

import "github.com/sarchlab/signalflow/sim"

// MaxSampleDepth bounds how deep a single sampling call chain may go.
const MaxSampleDepth = 1024

// A SampleContext travels along one synchronous sampling call chain. It
// records the nodes currently being sampled so that a node reached twice is
// reported as a closed loop instead of recursing until the stack overflows.
type SampleContext struct {
	maxDepth int
	active   map[sim.Named]struct{}
	stack    []string
}

// NewSampleContext creates a context with the default depth bound.
func NewSampleContext() *SampleContext {
	return NewSampleContextWithDepth(MaxSampleDepth)
}

// NewSampleContextWithDepth creates a context with a custom depth bound.
func NewSampleContextWithDepth(maxDepth int) *SampleContext {
	return &SampleContext{
		maxDepth: maxDepth,
		active:   make(map[sim.Named]struct{}),
	}
}

func ensureContext(ctx *SampleContext) *SampleContext {
	if ctx == nil {
		return NewSampleContext()
	}

	return ctx
}

// Enter marks a node as being sampled. It fails if the node is already on the
// active chain or if the chain is too deep. Every successful Enter must be
// paired with a Leave.
func (c *SampleContext) Enter(n sim.Named) error {
	if _, onStack := c.active[n]; onStack || len(c.stack) >= c.maxDepth {
		path := make([]string, len(c.stack), len(c.stack)+1)
		copy(path, c.stack)
		path = append(path, n.Name())

		return &ClosedLoopError{Node: n.Name(), Path: path}
	}

	c.active[n] = struct{}{}
	c.stack = append(c.stack, n.Name())

	return nil
}

// Leave removes the node that was entered last.
func (c *SampleContext) Leave(n sim.Named) {
	delete(c.active, n)
	c.stack = c.stack[:len(c.stack)-1]
}

// Depth returns the number of nodes on the active chain.
func (c *SampleContext) Depth() int {
	return len(c.stack)
}

// Path returns the names on the active chain, outermost first.
func (c *SampleContext) Path() []string {
	path := make([]string, len(c.stack))
	copy(path, c.stack)

	return path
}
