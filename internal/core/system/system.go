package system

// Phase orders the per-kind passes of a save. Children are written before
// their containers so a container always encodes the final page pointers of
// its children.
type Phase int

const (
	PhaseLeaf   Phase = iota // 0: strokes, swatches
	PhaseBranch              // 1: frames
	PhaseTrunk               // 2: layers
	PhaseRoot                // 3: graphics, palettes (asset roots)
)

func (p Phase) String() string {
	switch p {
	case PhaseLeaf:
		return "leaf"
	case PhaseBranch:
		return "branch"
	case PhaseTrunk:
		return "trunk"
	case PhaseRoot:
		return "root"
	}
	return "unknown"
}

// System is one pass run by the Runner.
type System interface {
	Phase() Phase
	Update() error
}
