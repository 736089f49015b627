package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted between two Flush
// calls are delivered by the second one, in emission order. Events emitted
// by handlers during a Flush wait for the next Flush.
type Bus struct {
	mu       sync.Mutex // guards handlers and back
	back     []any
	front    []any
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event for the next Flush.
func Emit[T any](b *Bus, event T) {
	b.mu.Lock()
	b.back = append(b.back, event)
	b.mu.Unlock()
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Pending reports how many events wait for the next Flush.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.back)
}

// Flush swaps the buffers and delivers every queued event to its handlers.
// It returns the number of events delivered.
func (b *Bus) Flush() int {
	b.mu.Lock()
	b.front, b.back = b.back, b.front[:0]
	b.mu.Unlock()

	for _, ev := range b.front {
		b.mu.Lock()
		handlers := b.handlers[reflect.TypeOf(ev)]
		b.mu.Unlock()
		for _, h := range handlers {
			callHandler(h, ev)
		}
	}
	n := len(b.front)
	clear(b.front)
	return n
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
