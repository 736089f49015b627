package arena

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Key identifies an object within one arena. Zero is never issued.
type Key uint64

// Kind tags the entity kind an arena stores.
type Kind uint8

var (
	kindMu    sync.RWMutex
	kindNames = map[Kind]string{}
)

// RegisterKind names a kind for logs and diagnostics.
func RegisterKind(k Kind, name string) {
	kindMu.Lock()
	kindNames[k] = name
	kindMu.Unlock()
}

func (k Kind) String() string {
	kindMu.RLock()
	name, ok := kindNames[k]
	kindMu.RUnlock()
	if !ok {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return name
}

// Handle is a non-owning reference to an object of type T. It does not keep
// the referent alive; resolving it through the arena may come back empty.
type Handle[T any] struct {
	Key  Key
	Kind Kind
}

func (h Handle[T]) IsZero() bool { return h.Key == 0 }

func (h Handle[T]) String() string {
	return fmt.Sprintf("%s#%d", h.Kind, h.Key)
}

// Ref is the kind-erased view of an owning handle that Holder
// implementations hand to garbage collection.
type Ref interface {
	Drop()
	Retire()
	Revive() bool
	Bury()
}

// Owned is the owning reference to an arena object. Dropping it schedules the
// key for removal at the next garbage collection; it never removes anything
// synchronously. Drop is idempotent and safe from any goroutine.
//
// Retire, Revive and Bury serve undo: a retired object is collected like a
// dropped one, subtree included, but can be brought back under the same key
// until it is buried. They belong to the edit session goroutine.
type Owned[T any] struct {
	Handle[T]
	queue   *DropQueue
	home    *Arena[T]
	dropped atomic.Bool
}

// Drop enqueues the key on the arena's shared drop queue.
func (o *Owned[T]) Drop() {
	if o == nil || !o.dropped.CompareAndSwap(false, true) {
		return
	}
	o.queue.Push(o.Key)
}

// Retire drops the handle but keeps the object revivable.
func (o *Owned[T]) Retire() {
	if o == nil || !o.dropped.CompareAndSwap(false, true) {
		return
	}
	o.home.retain(o.Key)
	o.queue.Push(o.Key)
}

// Revive undoes Retire. It reports false when there is nothing to bring
// back.
func (o *Owned[T]) Revive() bool {
	if o == nil || !o.Dropped() || !o.home.revive(o.Key) {
		return false
	}
	o.dropped.Store(false)
	return true
}

// Bury ends a retirement for good. On a live handle it is Drop.
func (o *Owned[T]) Bury() {
	if o == nil {
		return
	}
	if !o.Dropped() {
		o.Drop()
		return
	}
	o.home.bury(o.Key)
}

// Dropped reports whether Drop or Retire has been called.
func (o *Owned[T]) Dropped() bool { return o.dropped.Load() }

// Visit hands every handle in list to fn.
func Visit[T any](list []*Owned[T], fn func(Ref)) {
	for _, o := range list {
		fn(o)
	}
}

// DropQueue collects keys whose owning handles were dropped.
type DropQueue struct {
	mu   sync.Mutex
	keys []Key
}

func (q *DropQueue) Push(k Key) {
	q.mu.Lock()
	q.keys = append(q.keys, k)
	q.mu.Unlock()
}

// Drain removes and returns all queued keys.
func (q *DropQueue) Drain() []Key {
	q.mu.Lock()
	keys := q.keys
	q.keys = nil
	q.mu.Unlock()
	return keys
}

func (q *DropQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.keys)
}
