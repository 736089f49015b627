package arena

import (
	"errors"
	"sort"
)

// ErrNotFound is returned when a handle no longer resolves.
var ErrNotFound = errors.New("arena: object not found")

// Holder is implemented by objects that hold owning handles of their own.
// Garbage collection drops (or retires) every handle a removed object
// holds, so nested children are enqueued in turn.
type Holder interface {
	EachOwned(fn func(Ref))
}

// Arena owns every live object of one kind. Keys come from a monotonic
// counter and are never handed out twice. Access goes through Get (read) or
// GetMut (write); GetMut marks the key modified for the next save.
// Single-writer: only the edit session goroutine may call into an Arena.
type Arena[T any] struct {
	kind     Kind
	data     map[Key]*T
	next     Key
	reserved map[Key]struct{}

	created  map[Key]struct{}
	modified map[Key]struct{}
	deleted  map[Key]struct{}

	owners   map[Key]*Owned[T]
	retained map[Key]struct{} // retired keys, revivable until buried
	tomb     map[Key]*T       // collected retained objects

	queue *DropQueue
	pages *PageIndex
}

func New[T any](kind Kind) *Arena[T] {
	return &Arena[T]{
		kind:     kind,
		data:     make(map[Key]*T, 64),
		reserved: make(map[Key]struct{}),
		created:  make(map[Key]struct{}),
		modified: make(map[Key]struct{}),
		deleted:  make(map[Key]struct{}),
		owners:   make(map[Key]*Owned[T]),
		retained: make(map[Key]struct{}),
		tomb:     make(map[Key]*T),
		queue:    &DropQueue{},
		pages:    NewPageIndex(),
	}
}

func (a *Arena[T]) Kind() Kind        { return a.kind }
func (a *Arena[T]) Pages() *PageIndex { return a.pages }
func (a *Arena[T]) Queue() *DropQueue { return a.queue }

// Handle builds a typed handle for key in this arena.
func (a *Arena[T]) Handle(k Key) Handle[T] { return Handle[T]{Key: k, Kind: a.kind} }

// Add stores obj under the next key and returns its owning handle. The key
// lands in both the created and modified sets.
func (a *Arena[T]) Add(obj *T) *Owned[T] {
	k := a.alloc()
	a.data[k] = obj
	a.created[k] = struct{}{}
	a.modified[k] = struct{}{}
	return a.own(k)
}

func (a *Arena[T]) alloc() Key {
	for {
		a.next++
		if _, taken := a.data[a.next]; taken {
			continue
		}
		if _, taken := a.reserved[a.next]; taken {
			continue
		}
		if _, taken := a.tomb[a.next]; taken {
			continue
		}
		return a.next
	}
}

func (a *Arena[T]) own(k Key) *Owned[T] {
	o := &Owned[T]{Handle: a.Handle(k), queue: a.queue, home: a}
	a.owners[k] = o
	return o
}

// Reserve claims a key for an object being loaded. The stored key is honored
// when it is free and the counter advances past it; otherwise a fresh key is
// allocated and remapped reports true.
func (a *Arena[T]) Reserve(stored Key) (k Key, remapped bool) {
	if stored != 0 && !a.occupied(stored) {
		a.reserved[stored] = struct{}{}
		if stored > a.next {
			a.next = stored
		}
		return stored, false
	}
	k = a.alloc()
	a.reserved[k] = struct{}{}
	return k, true
}

func (a *Arena[T]) occupied(k Key) bool {
	if _, ok := a.data[k]; ok {
		return true
	}
	if _, ok := a.tomb[k]; ok {
		return true
	}
	_, ok := a.reserved[k]
	return ok
}

// Insert stores a loaded object under a key obtained from Reserve. Loaded
// objects are clean: nothing is marked created or modified.
func (a *Arena[T]) Insert(k Key, obj *T) *Owned[T] {
	delete(a.reserved, k)
	a.data[k] = obj
	return a.own(k)
}

// Release gives back a reserved key whose object failed to load.
func (a *Arena[T]) Release(k Key) { delete(a.reserved, k) }

func (a *Arena[T]) Get(h Handle[T]) (*T, bool) {
	if h.Kind != a.kind {
		return nil, false
	}
	obj, ok := a.data[h.Key]
	return obj, ok
}

// GetMut returns the object for writing and marks it modified. Dirtiness is
// tracked by access, not by comparing values.
func (a *Arena[T]) GetMut(h Handle[T]) (*T, bool) {
	obj, ok := a.Get(h)
	if ok {
		a.modified[h.Key] = struct{}{}
	}
	return obj, ok
}

// Touch marks a live key modified without returning the object.
func (a *Arena[T]) Touch(k Key) {
	if _, ok := a.data[k]; ok {
		a.modified[k] = struct{}{}
	}
}

func (a *Arena[T]) Has(k Key) bool {
	_, ok := a.data[k]
	return ok
}

func (a *Arena[T]) Len() int { return len(a.data) }

// Each visits every live object in key order.
func (a *Arena[T]) Each(fn func(Handle[T], *T)) {
	for _, k := range a.Keys() {
		fn(a.Handle(k), a.data[k])
	}
}

// Keys returns all live keys in ascending order.
func (a *Arena[T]) Keys() []Key { return sortedKeys(a.data) }

func (a *Arena[T]) Created() []Key  { return sortedKeys(a.created) }
func (a *Arena[T]) Modified() []Key { return sortedKeys(a.modified) }
func (a *Arena[T]) Deleted() []Key  { return sortedKeys(a.deleted) }

// Collect drains the drop queue once and removes the dropped objects. Objects
// created in this cycle vanish from the dirty sets; older ones are recorded
// as deleted so the next save frees their pages. Removed objects that own
// nested handles drop them, which may refill this or another queue. Retired
// objects go to the tomb instead of being forgotten, and retire what they
// hold.
func (a *Arena[T]) Collect() int {
	removed := 0
	for _, k := range a.queue.Drain() {
		obj, ok := a.data[k]
		if !ok {
			continue
		}
		if o := a.owners[k]; o != nil && !o.Dropped() {
			continue // revived before collection
		}
		delete(a.data, k)
		delete(a.modified, k)
		if _, fresh := a.created[k]; fresh {
			delete(a.created, k)
		} else {
			a.deleted[k] = struct{}{}
		}
		_, keep := a.retained[k]
		if keep {
			a.tomb[k] = obj
		} else {
			delete(a.owners, k)
		}
		if h, ok := any(obj).(Holder); ok {
			if keep {
				h.EachOwned(Ref.Retire)
			} else {
				h.EachOwned(Ref.Drop)
			}
		}
		removed++
	}
	return removed
}

func (a *Arena[T]) retain(k Key) { a.retained[k] = struct{}{} }

// revive brings a retired key back, from the tomb when it was collected.
// A revived object is dirty: it is modified, and also created when its
// pages are gone.
func (a *Arena[T]) revive(k Key) bool {
	if _, keep := a.retained[k]; !keep {
		return false
	}
	delete(a.retained, k)
	obj, collected := a.tomb[k]
	if !collected {
		if _, live := a.data[k]; !live {
			return false
		}
		a.modified[k] = struct{}{}
		return true
	}
	delete(a.tomb, k)
	a.data[k] = obj
	if _, gone := a.deleted[k]; gone {
		delete(a.deleted, k)
	} else {
		a.created[k] = struct{}{}
	}
	a.modified[k] = struct{}{}
	if h, ok := any(obj).(Holder); ok {
		h.EachOwned(func(r Ref) { r.Revive() })
	}
	return true
}

// bury makes a retirement final. A tombed object is forgotten together with
// everything it retired; one still waiting in the queue is dropped for good
// by the next collection.
func (a *Arena[T]) bury(k Key) {
	if _, keep := a.retained[k]; !keep {
		return
	}
	delete(a.retained, k)
	obj, ok := a.tomb[k]
	if !ok {
		return
	}
	delete(a.tomb, k)
	delete(a.owners, k)
	if h, ok := any(obj).(Holder); ok {
		h.EachOwned(Ref.Bury)
	}
}

// Retired reports how many retired objects wait in the tomb.
func (a *Arena[T]) Retired() int { return len(a.tomb) }

// Pending reports how many keys wait in the drop queue.
func (a *Arena[T]) Pending() int { return a.queue.Len() }

// ResetCycle clears the created, modified and deleted sets after a save.
func (a *Arena[T]) ResetCycle() {
	clear(a.created)
	clear(a.modified)
	clear(a.deleted)
}

func sortedKeys[V any](m map[Key]V) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
