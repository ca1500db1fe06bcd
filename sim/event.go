package sim

// VTimeInSec defines the time in the simulated space in the unit of second
type VTimeInSec float64

// Priority decides which of two same-time events runs first. Events with a
// smaller priority value run earlier.
type Priority int

// PriorityNormal is the priority that periodic calculation sweeps use.
const PriorityNormal Priority = 5

// Ordering decides how events that share both time and priority are ordered.
type Ordering int

const (
	// FIFO events run in the order that they were scheduled.
	FIFO Ordering = iota

	// LIFO events run most-recently-scheduled first. At one instant, LIFO
	// events run before FIFO events of the same priority.
	LIFO
)

func (o Ordering) String() string {
	switch o {
	case FIFO:
		return "FIFO"
	case LIFO:
		return "LIFO"
	default:
		return "unknown"
	}
}

// An Event is something going to happen in the future.
type Event interface {
	// Return the time that the event should happen
	Time() VTimeInSec

	// Returns the handler that can should handle the event
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary event are
	// handled after all same-time primary events are handled.
	IsSecondary() bool

	// Priority breaks ties between events scheduled at the same time.
	Priority() Priority

	// Ordering breaks ties between events with the same time and priority.
	Ordering() Ordering
}

// EventBase provides the basic fields and getters for other events
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
	priority  Priority
	ordering  Ordering
}

// NewEventBase creates a new EventBase with normal priority and FIFO ordering.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = GetIDGenerator().Generate()
	e.time = t
	e.handler = handler
	e.secondary = false
	e.priority = PriorityNormal
	e.ordering = FIFO

	return e
}

// MakeEventBase creates an EventBase value with the given tie-break tags.
func MakeEventBase(
	t VTimeInSec,
	handler Handler,
	priority Priority,
	ordering Ordering,
) EventBase {
	return EventBase{
		ID:       GetIDGenerator().Generate(),
		time:     t,
		handler:  handler,
		priority: priority,
		ordering: ordering,
	}
}

// Time return the time that the event is going to happen
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// Priority returns the priority of the event.
func (e EventBase) Priority() Priority {
	return e.priority
}

// Ordering returns the same-instant ordering tag of the event.
func (e EventBase) Ordering() Ordering {
	return e.ordering
}

// A Handler defines a domain for the events.
//
// One event is always constraint to one Handler, which means the event can
// only be scheduled by one handler and can only directly modify that handler.
type Handler interface {
	Handle(e Event) error
}
