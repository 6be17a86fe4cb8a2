package model

// State is an incident's current disposition. Declaration order defines the
// progression used for prior/following comparisons; transitions themselves
// are unrestricted.
type State int

const (
	StateNew State = iota
	StateOnHold
	StateDispatched
	StateOnScene
	StateClosed
)

var stateLabels = map[State]string{
	StateNew:        "New",
	StateOnHold:     "On Hold",
	StateDispatched: "Dispatched",
	StateOnScene:    "On Scene",
	StateClosed:     "Closed",
}

// States returns all states in progression order.
func States() []State {
	return []State{StateNew, StateOnHold, StateDispatched, StateOnScene, StateClosed}
}

// Label returns the display name for the state.
func (s State) Label() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return "Unknown"
}

func (s State) String() string { return s.Label() }

// Precedes reports whether s comes before other in the progression.
func (s State) Precedes(other State) bool { return s < other }

// Follows reports whether s comes after other in the progression.
func (s State) Follows(other State) bool { return s > other }

func (s State) valid() bool {
	_, ok := stateLabels[s]
	return ok
}
