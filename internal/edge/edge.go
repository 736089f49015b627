// Package edge implements the generic parent/child ownership operations. Each
// operation mutates the live graph and returns the undo.Action that reverses
// it.
package edge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/undo"
)

var (
	// ErrNotFound means a parent or child handle did not resolve.
	ErrNotFound = errors.New("edge: object not found")

	// ErrInvalid means the operation cannot apply to the current tree.
	ErrInvalid = errors.New("edge: invalid operation")
)

// Edge binds a parent kind to a child kind. Every child stores its parent
// handle and sits in an ordered list owned by the parent.
type Edge[P, C any] struct {
	Name     string
	Parents  *arena.Arena[P]
	Children *arena.Arena[C]
	List     func(*P) *[]*arena.Owned[C]
	Parent   func(*C) *arena.Handle[P]
}

// ParentOf returns the stored parent handle of a live child.
func (e *Edge[P, C]) ParentOf(h arena.Handle[C]) (arena.Handle[P], bool) {
	c, ok := e.Children.Get(h)
	if !ok {
		return arena.Handle[P]{}, false
	}
	return *e.Parent(c), true
}

// ChildHandles lists the children of parent in order.
func (e *Edge[P, C]) ChildHandles(parent arena.Handle[P]) []arena.Handle[C] {
	p, ok := e.Parents.Get(parent)
	if !ok {
		return nil
	}
	list := *e.List(p)
	out := make([]arena.Handle[C], len(list))
	for i, o := range list {
		out[i] = o.Handle
	}
	return out
}

// IndexOf returns the position of h within its parent's list, or -1.
func (e *Edge[P, C]) IndexOf(h arena.Handle[C]) int {
	ph, ok := e.ParentOf(h)
	if !ok {
		return -1
	}
	p, ok := e.Parents.Get(ph)
	if !ok {
		return -1
	}
	return indexOf(*e.List(p), h.Key)
}

// AddAtIndex stores obj as a new child of parent at index. Negative indices
// count from the end, so -1 appends. Undo takes the child out of the list and
// retires its owning handle; redo revives the same handle and puts it back,
// so keys and field values survive the round trip.
func (e *Edge[P, C]) AddAtIndex(parent arena.Handle[P], obj *C, index int) (arena.Handle[C], *undo.Action, error) {
	p, ok := e.Parents.GetMut(parent)
	if !ok {
		return arena.Handle[C]{}, nil, fmt.Errorf("%s add: parent %s: %w", e.Name, parent, ErrNotFound)
	}
	*e.Parent(obj) = parent
	owned := e.Children.Add(obj)
	list := e.List(p)
	at := normalizeIndex(index, len(*list))
	insertAt(list, at, owned)

	h := owned.Handle
	c := &cell[C]{}
	step := undo.Step{
		Redo:    func() { e.restore(c, h, parent, at) },
		Undo:    func() { e.retire(c, h) },
		Release: c.release,
	}
	return h, undo.New(e.Name+" add", step), nil
}

// Delete unlinks h from its parent and retires its owning handle, so the
// next garbage collection removes the child and everything it owns. Undo
// revives the subtree under the same keys. An object whose parent or self
// is already gone is not an error: the result is a nil action and a nil
// error.
func (e *Edge[P, C]) Delete(h arena.Handle[C]) (*undo.Action, error) {
	ph, ok := e.ParentOf(h)
	if !ok {
		return nil, nil
	}
	at := e.IndexOf(h)
	if at < 0 {
		return nil, nil
	}
	c := &cell[C]{}
	if !e.retire(c, h) {
		return nil, nil
	}
	step := undo.Step{
		Redo: func() {
			if idx := e.IndexOf(h); idx >= 0 {
				at = idx
			}
			e.retire(c, h)
		},
		Undo:    func() { e.restore(c, h, ph, at) },
		Release: c.release,
	}
	return undo.New(e.Name+" delete", step), nil
}

// retire detaches h and parks its retired owning handle in c.
func (e *Edge[P, C]) retire(c *cell[C], h arena.Handle[C]) bool {
	o := e.detach(h)
	if o == nil {
		return false
	}
	o.Retire()
	c.put(o)
	return true
}

// restore revives the handle parked in c and attaches it under parent.
func (e *Edge[P, C]) restore(c *cell[C], h arena.Handle[C], parent arena.Handle[P], at int) {
	o := c.take()
	if o == nil {
		return
	}
	if !o.Revive() {
		return
	}
	if !e.attach(h, parent, at, o) {
		o.Retire()
		c.put(o)
	}
}

// Transfer moves h to the end of newParent's list. Moving to the current
// parent is a no-op.
func (e *Edge[P, C]) Transfer(h arena.Handle[C], newParent arena.Handle[P]) (*undo.Action, error) {
	from, ok := e.ParentOf(h)
	if !ok {
		return nil, fmt.Errorf("%s transfer: child %s: %w", e.Name, h, ErrNotFound)
	}
	if from == newParent {
		return nil, nil
	}
	if !e.Parents.Has(newParent.Key) {
		return nil, fmt.Errorf("%s transfer: parent %s: %w", e.Name, newParent, ErrNotFound)
	}
	at := e.IndexOf(h)
	if at < 0 {
		return nil, fmt.Errorf("%s transfer: %s not linked: %w", e.Name, h, ErrInvalid)
	}
	if !e.move(h, newParent, -1) {
		return nil, fmt.Errorf("%s transfer: %w", e.Name, ErrInvalid)
	}
	step := undo.Step{
		Redo: func() { e.move(h, newParent, -1) },
		Undo: func() { e.move(h, from, at) },
	}
	return undo.New(e.Name+" transfer", step), nil
}

// SetIndex moves h within its parent. The target is clamped to [0, len] and
// shifted left by one when it lies after the current position, because
// removing the child first shifts everything behind it.
func (e *Edge[P, C]) SetIndex(h arena.Handle[C], index int) (*undo.Action, error) {
	ph, ok := e.ParentOf(h)
	if !ok {
		return nil, fmt.Errorf("%s reorder: child %s: %w", e.Name, h, ErrNotFound)
	}
	p, ok := e.Parents.Get(ph)
	if !ok {
		return nil, fmt.Errorf("%s reorder: parent %s: %w", e.Name, ph, ErrNotFound)
	}
	list := *e.List(p)
	cur := indexOf(list, h.Key)
	if cur < 0 {
		return nil, fmt.Errorf("%s reorder: %s not linked: %w", e.Name, h, ErrInvalid)
	}
	target := clamp(index, len(list))
	if target > cur {
		target--
	}
	if target == cur {
		return nil, nil
	}
	e.move(h, ph, target)
	step := undo.Step{
		Redo: func() { e.move(h, ph, target) },
		Undo: func() { e.move(h, ph, cur) },
	}
	return undo.New(e.Name+" reorder", step), nil
}

// detach removes h from its stored parent's list and returns the owning
// handle. The child's parent field is left as is so undo knows where to go.
func (e *Edge[P, C]) detach(h arena.Handle[C]) *arena.Owned[C] {
	ph, ok := e.ParentOf(h)
	if !ok {
		return nil
	}
	p, ok := e.Parents.GetMut(ph)
	if !ok {
		return nil
	}
	list := e.List(p)
	i := indexOf(*list, h.Key)
	if i < 0 {
		return nil
	}
	return removeAt(list, i)
}

// attach inserts o under parent at index (clamped) and points the child at
// its parent.
func (e *Edge[P, C]) attach(h arena.Handle[C], parent arena.Handle[P], at int, o *arena.Owned[C]) bool {
	p, ok := e.Parents.GetMut(parent)
	if !ok {
		return false
	}
	if c, ok := e.Children.GetMut(h); ok {
		*e.Parent(c) = parent
	}
	list := e.List(p)
	insertAt(list, clamp(at, len(*list)), o)
	return true
}

// move detaches h wherever it currently is and attaches it under parent at
// index; -1 appends.
func (e *Edge[P, C]) move(h arena.Handle[C], parent arena.Handle[P], at int) bool {
	if !e.Parents.Has(parent.Key) {
		return false
	}
	o := e.detach(h)
	if o == nil {
		return false
	}
	if at < 0 {
		at = int(^uint(0) >> 1)
	}
	return e.attach(h, parent, at, o)
}

// cell holds a retired owning handle while its child is out of the tree.
type cell[C any] struct {
	mu    sync.Mutex
	stash *arena.Owned[C]
}

func (c *cell[C]) put(o *arena.Owned[C]) {
	c.mu.Lock()
	c.stash = o
	c.mu.Unlock()
}

func (c *cell[C]) take() *arena.Owned[C] {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := c.stash
	c.stash = nil
	return o
}

func (c *cell[C]) release() {
	c.take().Bury()
}

func indexOf[C any](list []*arena.Owned[C], k arena.Key) int {
	for i, o := range list {
		if o.Key == k {
			return i
		}
	}
	return -1
}

func insertAt[C any](list *[]*arena.Owned[C], i int, o *arena.Owned[C]) {
	l := append(*list, nil)
	copy(l[i+1:], l[i:])
	l[i] = o
	*list = l
}

func removeAt[C any](list *[]*arena.Owned[C], i int) *arena.Owned[C] {
	l := *list
	o := l[i]
	copy(l[i:], l[i+1:])
	l[len(l)-1] = nil
	*list = l[:len(l)-1]
	return o
}

// normalizeIndex maps an insertion index onto [0, n]. Negative values count
// from the end modulo n+1.
func normalizeIndex(i, n int) int {
	if i < 0 {
		m := n + 1
		i = ((i % m) + m) % m
	}
	return clamp(i, n)
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
