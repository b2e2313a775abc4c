package events

import (
	"sync"

	"acre/core/state"
	"acre/core/types"
)

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
}

// Renderable is implemented by events that can be converted into the
// canonical attribute form delivered to subscribers.
type Renderable interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

type wrapped struct {
	evt *types.Event
}

func (w wrapped) EventType() string {
	if w.evt == nil {
		return ""
	}
	return w.evt.Type
}

func (w wrapped) Event() *types.Event { return w.evt }

// Wrap adapts a canonical event payload to the Event interface.
func Wrap(evt *types.Event) Renderable { return wrapped{evt: evt} }

// Buffer collects emitted events for the operation in flight. Appends are
// journaled so events emitted by a reverted operation disappear with the rest
// of its state changes.
type Buffer struct {
	mu      sync.Mutex
	journal *state.Journal
	items   []Event
}

// NewBuffer constructs a buffer whose appends are recorded in journal.
func NewBuffer(journal *state.Journal) *Buffer {
	return &Buffer{journal: journal}
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	mark := len(b.items)
	b.items = append(b.items, evt)
	b.mu.Unlock()
	b.journal.Record(func() {
		b.mu.Lock()
		if mark <= len(b.items) {
			b.items = b.items[:mark]
		}
		b.mu.Unlock()
	})
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Drain returns the rendered buffered events and clears the buffer. Events
// that cannot be rendered are skipped.
func (b *Buffer) Drain() []*types.Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	items := b.items
	b.items = nil
	b.mu.Unlock()

	out := make([]*types.Event, 0, len(items))
	for _, item := range items {
		renderable, ok := item.(Renderable)
		if !ok {
			continue
		}
		if evt := renderable.Event(); evt != nil {
			out = append(out, evt)
		}
	}
	return out
}
