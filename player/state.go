package player

// State is the lifecycle position of an Engine.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Playing
	Paused
	Buffering
	Ended
	Error
)

var stateNames = [...]string{
	Idle:      "idle",
	Loading:   "loading",
	Ready:     "ready",
	Playing:   "playing",
	Paused:    "paused",
	Buffering: "buffering",
	Ended:     "ended",
	Error:     "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// loaded reports whether media is attached to the decoder in this state.
func (s State) loaded() bool {
	switch s {
	case Ready, Playing, Paused, Ended:
		return true
	default:
		return false
	}
}
