package layout

import (
	"sync"
)

// Event names carried by a Dispatcher.
const (
	EventResize    = "resize"
	EventDragStart = "drag.start"
	EventDragMove  = "drag.move"
	EventDragEnd   = "drag.end"
	EventFrame     = "frame"
	EventSettled   = "settled"
)

// DragEvent is the payload of the drag events.
type DragEvent struct {
	NodeID string
	X, Y   float64
}

// Handler receives an event payload. Handlers run on the emitting goroutine
// and must not block.
type Handler func(payload interface{})

// Registration identifies one registered handler.
type Registration struct {
	event string
	id    uint64
}

// Dispatcher is the single place event handlers are attached and detached,
// so their lifecycle can be tracked and asserted on.
type Dispatcher struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]map[uint64]Handler)}
}

// Register attaches fn to event.
func (d *Dispatcher) Register(event string, fn Handler) *Registration {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	if d.handlers[event] == nil {
		d.handlers[event] = make(map[uint64]Handler)
	}
	d.handlers[event][d.nextID] = fn
	return &Registration{event: event, id: d.nextID}
}

// Remove detaches a registration. Removing twice is a no-op.
func (d *Dispatcher) Remove(reg *Registration) {
	if reg == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.handlers[reg.event], reg.id)
	if len(d.handlers[reg.event]) == 0 {
		delete(d.handlers, reg.event)
	}
}

// Emit calls every handler registered for event and returns how many ran.
func (d *Dispatcher) Emit(event string, payload interface{}) int {
	d.mu.RLock()
	fns := make([]Handler, 0, len(d.handlers[event]))
	for _, fn := range d.handlers[event] {
		fns = append(fns, fn)
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(payload)
	}
	return len(fns)
}

// Count returns the number of handlers attached to event.
func (d *Dispatcher) Count(event string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[event])
}
