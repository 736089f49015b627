package arena

// Collectable is implemented by every arena so the Registry can run garbage
// collection and cycle resets across all kinds at once.
type Collectable interface {
	Kind() Kind
	Collect() int
	Pending() int
	ResetCycle()
}

// Registry tracks all arenas of a project.
type Registry struct {
	arenas []Collectable
}

func NewRegistry() *Registry {
	return &Registry{
		arenas: make([]Collectable, 0, 16),
	}
}

// Register adds an arena to the registry.
func (r *Registry) Register(a Collectable) {
	r.arenas = append(r.arenas, a)
}

// GarbageCollect drains every drop queue until all are empty. Freeing a
// container drops its children's owning handles, so one pass over the arenas
// is not enough. It returns the number of passes and removed objects.
func (r *Registry) GarbageCollect() (rounds, removed int) {
	for {
		n := 0
		for _, a := range r.arenas {
			n += a.Collect()
		}
		if n == 0 && r.pending() == 0 {
			return rounds, removed
		}
		rounds++
		removed += n
	}
}

func (r *Registry) pending() int {
	n := 0
	for _, a := range r.arenas {
		n += a.Pending()
	}
	return n
}

// ResetCycle clears the dirty sets of every arena.
func (r *Registry) ResetCycle() {
	for _, a := range r.arenas {
		a.ResetCycle()
	}
}
