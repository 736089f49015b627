package undo

// Stack is a linear undo history. Actions before the cursor are applied,
// actions at or after it have been undone and can be redone until a new
// action is pushed.
type Stack struct {
	actions []*Action
	cursor  int
	limit   int
}

// NewStack creates a history holding at most limit actions (0 = unbounded).
func NewStack(limit int) *Stack {
	if limit < 0 {
		limit = 0
	}
	return &Stack{limit: limit}
}

// Push records an already applied action. Everything after the cursor is
// discarded and released. Nil or empty actions are ignored.
func (s *Stack) Push(a *Action) {
	if a.Empty() {
		return
	}
	for _, old := range s.actions[s.cursor:] {
		old.Release()
	}
	clear(s.actions[s.cursor:])
	s.actions = append(s.actions[:s.cursor], a)
	s.cursor++

	if s.limit > 0 && len(s.actions) > s.limit {
		drop := len(s.actions) - s.limit
		for _, old := range s.actions[:drop] {
			old.Release()
		}
		s.actions = append(s.actions[:0], s.actions[drop:]...)
		s.cursor -= drop
	}
}

// Undo reverts the action before the cursor.
func (s *Stack) Undo() (*Action, bool) {
	if !s.CanUndo() {
		return nil, false
	}
	s.cursor--
	a := s.actions[s.cursor]
	a.Undo()
	return a, true
}

// Redo reapplies the action at the cursor.
func (s *Stack) Redo() (*Action, bool) {
	if !s.CanRedo() {
		return nil, false
	}
	a := s.actions[s.cursor]
	a.Redo()
	s.cursor++
	return a, true
}

func (s *Stack) CanUndo() bool { return s.cursor > 0 }
func (s *Stack) CanRedo() bool { return s.cursor < len(s.actions) }
func (s *Stack) Len() int      { return len(s.actions) }
func (s *Stack) Cursor() int   { return s.cursor }

// Clear releases the whole history.
func (s *Stack) Clear() {
	for _, a := range s.actions {
		a.Release()
	}
	s.actions = nil
	s.cursor = 0
}
