package calc

import (
	"log"

	"github.com/sarchlab/signalflow/sim"
)

// SweepLogger is a hook that prints sweeps, node updates, and observer
// failures. It can be attached to controllers and nodes.
type SweepLogger struct {
	*log.Logger
}

// NewSweepLogger returns a new SweepLogger which will write into the logger.
func NewSweepLogger(logger *log.Logger) *SweepLogger {
	h := new(SweepLogger)
	h.Logger = logger

	return h
}

// Func writes the hook information into the logger.
func (h *SweepLogger) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosSweepStart:
		c := ctx.Domain.(*Controller)
		h.Printf("%.10f, %s, sweep %d start", ctx.Now, c.Name(), c.TickCount())
	case HookPosSweepEnd:
		c := ctx.Domain.(*Controller)
		if ctx.Detail != nil {
			h.Printf("%.10f, %s, sweep end, error: %v",
				ctx.Now, c.Name(), ctx.Detail)
			return
		}

		h.Printf("%.10f, %s, sweep end, %d done", ctx.Now, c.Name(), c.TickCount())
	case HookPosNodeUpdated:
		n := ctx.Domain.(Node)
		if ctx.Detail != nil {
			h.Printf("%.10f, %s, update failed: %v", ctx.Now, n.Name(), ctx.Detail)
			return
		}

		h.Printf("%.10f, %s = %g", ctx.Now, n.Name(), n.LastValue())
	case HookPosObserverFailure:
		h.Printf("%.10f, %s, observer %T failed: %v",
			ctx.Now, ctx.Domain.(sim.Named).Name(), ctx.Item, ctx.Detail)
	}
}
