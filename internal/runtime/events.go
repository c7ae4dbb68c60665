package runtime

import (
	"math/big"
	"time"
)

// Event types published on the bus.
const (
	EventBlock  = "sequence.block"
	EventRun    = "sequence.run"
	EventConfig = "sequence.config"
)

// Stop reasons carried by RunEvent.Reason on "stop" actions.
const (
	StopRequested  = "requested"
	StopCeiling    = "ceiling reached"
	StopGeneration = "generation failed"
)

// BlockEvent carries one emitted batch of sequence terms. Terms are deep
// copies; subscribers may retain them.
type BlockEvent struct {
	RunID     string
	Seq       uint64 // 1-based tick number within the run
	Terms     []*big.Int
	Truncated bool // the ceiling cut this batch short
}

// RunEvent records a lifecycle transition.
type RunEvent struct {
	RunID  string
	Phase  Phase
	Action string // start, resume, restart, pause, stop, reset, exit
	Reason string // optional detail, e.g. "ceiling reached"
	Seed   string // rendered start pair
}

// ConfigEvent records an applied tuning change.
type ConfigEvent struct {
	Period  time.Duration
	Batch   int
	Ceiling string // rendered bound; empty = unbounded
}
