package sim

import (
	"log"
	"reflect"
)

// EventLogger is an hook that prints the event information
type EventLogger struct {
	*log.Logger
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger

	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	handlerName := "unknown"
	if named, ok := evt.Handler().(Named); ok {
		handlerName = named.Name()
	}

	h.Printf("%.10f, %s -> %s, prio %d, %s",
		evt.Time(), reflect.TypeOf(evt), handlerName,
		evt.Priority(), evt.Ordering())
}
