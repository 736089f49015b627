package edge

import (
	"fmt"

	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/undo"
)

// SetField assigns value to one field of the object behind h and returns the
// action restoring the previous value.
func SetField[T, V any](a *arena.Arena[T], h arena.Handle[T], name string, field func(*T) *V, value V) (*undo.Action, error) {
	obj, ok := a.GetMut(h)
	if !ok {
		return nil, fmt.Errorf("set %s: %s: %w", name, h, ErrNotFound)
	}
	f := field(obj)
	old := *f
	*f = value
	step := undo.Step{
		Redo: func() {
			if o, ok := a.GetMut(h); ok {
				*field(o) = value
			}
		},
		Undo: func() {
			if o, ok := a.GetMut(h); ok {
				*field(o) = old
			}
		},
	}
	return undo.New("set "+name, step), nil
}
