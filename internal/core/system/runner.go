package system

import (
	"sort"

	"go.uber.org/multierr"
)

// Runner executes systems in phase order. Systems sharing a phase run in
// registration order.
type Runner struct {
	systems []System
	sorted  bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs every system once. A failing system does not stop the ones after
// it; all errors are combined.
func (r *Runner) Tick() error {
	r.ensureSorted()
	var err error
	for _, s := range r.systems {
		err = multierr.Append(err, s.Update())
	}
	return err
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
