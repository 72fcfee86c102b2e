package engine

// State of the dispatch loop.
type State int32

const (
	StateRunning State = iota
	// StateDraining means no new ticks arrive but the bus still holds events.
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
