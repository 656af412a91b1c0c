package controller

// State is the submission lifecycle state of one page instance
type State int

const (
	Idle State = iota
	Validating
	Blocked
	Submitting
	Reloaded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Blocked:
		return "blocked"
	case Submitting:
		return "submitting"
	case Reloaded:
		return "reloaded"
	default:
		return "unknown"
	}
}
