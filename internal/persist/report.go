package persist

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/l1jgo/inkgraph/internal/core/arena"
)

// Diagnostic describes one object that failed to load or save. Offset is an
// absolute file offset when known, -1 otherwise.
type Diagnostic struct {
	Path   string
	Kind   arena.Kind
	Key    arena.Key
	Offset int64
	Err    error
}

func (d Diagnostic) Error() string {
	where := d.Path
	if d.Offset >= 0 {
		where = fmt.Sprintf("%s@%d", d.Path, d.Offset)
	}
	if d.Key == 0 {
		return fmt.Sprintf("%s: %v", where, d.Err)
	}
	return fmt.Sprintf("%s: %s %d: %v", where, d.Kind, d.Key, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// Report accumulates the outcome of a load or save. Failures of single
// objects do not abort the whole operation; they land here and the object
// is treated as missing.
type Report struct {
	Diagnostics []Diagnostic

	Files    int // asset files opened or written
	Objects  int // objects decoded or encoded
	Freed    int // page chains released
	Remapped int // loaded objects that received a new key
}

func (r *Report) add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// OK reports whether nothing went wrong.
func (r *Report) OK() bool { return len(r.Diagnostics) == 0 }

// Err combines every diagnostic into one error, nil when there are none.
func (r *Report) Err() error {
	var err error
	for _, d := range r.Diagnostics {
		err = multierr.Append(err, d)
	}
	return err
}
