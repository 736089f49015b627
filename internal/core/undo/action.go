// Package undo holds reversible actions and the linear undo history.
package undo

// Step is one reversible mutation over the object graph. Redo and Undo must
// re-derive their targets from the live graph rather than replay stored
// bytes. Release runs once when the step leaves the history for good; steps
// that stash owning handles drop them there.
type Step struct {
	Redo    func()
	Undo    func()
	Release func()
}

// Action is an ordered list of steps applied as one undoable unit. Undo runs
// the steps in reverse so dependency-ordered edits (create parent, then
// child) unwind symmetrically.
type Action struct {
	Name  string
	steps []Step
}

func New(name string, steps ...Step) *Action {
	return &Action{Name: name, steps: steps}
}

// Push appends a step.
func (a *Action) Push(s Step) *Action {
	a.steps = append(a.steps, s)
	return a
}

// Append moves the steps of other to the end of a. A nil other is ignored.
func (a *Action) Append(other *Action) *Action {
	if other == nil || other == a {
		return a
	}
	a.steps = append(a.steps, other.steps...)
	other.steps = nil
	return a
}

// Join composes actions in order, skipping nil ones. It returns nil when
// nothing is left to undo.
func Join(name string, actions ...*Action) *Action {
	out := New(name)
	for _, act := range actions {
		out.Append(act)
	}
	if out.Empty() {
		return nil
	}
	return out
}

func (a *Action) Len() int {
	if a == nil {
		return 0
	}
	return len(a.steps)
}

func (a *Action) Empty() bool { return a.Len() == 0 }

// Redo applies the steps first to last.
func (a *Action) Redo() {
	for _, s := range a.steps {
		if s.Redo != nil {
			s.Redo()
		}
	}
}

// Undo applies the steps last to first.
func (a *Action) Undo() {
	for i := len(a.steps) - 1; i >= 0; i-- {
		if s := a.steps[i]; s.Undo != nil {
			s.Undo()
		}
	}
}

// Release lets every step drop what it stashed. Actions that are built but
// never pushed onto a Stack must be released by the caller.
func (a *Action) Release() {
	if a == nil {
		return
	}
	for _, s := range a.steps {
		if s.Release != nil {
			s.Release()
		}
	}
	a.steps = nil
}
