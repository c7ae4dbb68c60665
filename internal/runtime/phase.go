package runtime

// Phase is the lifecycle state of the runtime. Exactly one phase is active
// at a time; it is the sole source of truth for which commands are legal.
type Phase int

const (
	PhaseStopped Phase = iota
	PhasePaused
	PhaseRunning
	PhaseExited
)

func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhasePaused:
		return "paused"
	case PhaseRunning:
		return "running"
	case PhaseExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Prompt returns the console prompt shown while in this phase.
func (p Phase) Prompt() string {
	switch p {
	case PhaseStopped:
		return "stopped> "
	case PhasePaused:
		return "paused> "
	case PhaseRunning:
		return "running> "
	default:
		return "> "
	}
}
