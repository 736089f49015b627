package system

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"pgregory.net/rapid"
)

type pass struct {
	phase Phase
	id    int
	log   *[]int
	err   error
}

func (p *pass) Phase() Phase { return p.phase }
func (p *pass) Update() error {
	*p.log = append(*p.log, p.id)
	return p.err
}

func TestRunnerOrdersByPhase(t *testing.T) {
	var log []int
	r := NewRunner()
	r.Register(&pass{phase: PhaseRoot, id: 1, log: &log})
	r.Register(&pass{phase: PhaseLeaf, id: 2, log: &log})
	r.Register(&pass{phase: PhaseTrunk, id: 3, log: &log})
	r.Register(&pass{phase: PhaseLeaf, id: 4, log: &log})
	r.Register(&pass{phase: PhaseBranch, id: 5, log: &log})

	require.NoError(t, r.Tick())
	assert.Equal(t, []int{2, 4, 5, 3, 1}, log)
}

func TestRunnerCombinesErrors(t *testing.T) {
	var log []int
	e1, e2 := errors.New("one"), errors.New("two")
	r := NewRunner()
	r.Register(&pass{phase: PhaseLeaf, id: 1, log: &log, err: e1})
	r.Register(&pass{phase: PhaseRoot, id: 2, log: &log, err: e2})

	err := r.Tick()
	assert.Equal(t, []int{1, 2}, log)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
	assert.Len(t, multierr.Errors(err), 2)
}

// Whatever the registration order, phases never run out of order and
// systems sharing a phase keep their registration order.
func TestRunnerOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		phases := rapid.SliceOf(rapid.IntRange(int(PhaseLeaf), int(PhaseRoot))).Draw(t, "phases")
		var log []int
		r := NewRunner()
		for i, ph := range phases {
			r.Register(&pass{phase: Phase(ph), id: i, log: &log})
		}
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
		for i := 1; i < len(log); i++ {
			a, b := phases[log[i-1]], phases[log[i]]
			if a > b || (a == b && log[i-1] > log[i]) {
				t.Fatalf("out of order: %v", log)
			}
		}
	})
}
