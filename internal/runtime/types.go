package runtime

import (
	"math/big"
	"time"

	"fibtick/internal/sequence"
)

const (
	// DefaultPeriod is the tick interval before any speed command.
	DefaultPeriod = time.Second
	// MinPeriod caps the tick rate at five blocks per second.
	MinPeriod = 200 * time.Millisecond
	// DefaultBatch is the number of terms generated per tick.
	DefaultBatch = 5
	// MinBatch is the smallest usable batch: the last two terms of each
	// block seed the next one, so a block must hold at least two.
	MinBatch = 2
)

// Config carries the tunables the runtime applies at construction and on
// reload. The zero value means "use defaults".
type Config struct {
	Period  time.Duration // tick interval, clamped up to Floor
	Floor   time.Duration // minimum tick interval
	Batch   int           // terms per tick
	Ceiling *big.Int      // emit no term above this; nil = unbounded
}

func (c Config) withDefaults() Config {
	if c.Floor <= 0 {
		c.Floor = MinPeriod
	}
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.Period < c.Floor {
		c.Period = c.Floor
	}
	if c.Batch <= 0 {
		c.Batch = DefaultBatch
	}
	if c.Batch < MinBatch {
		c.Batch = MinBatch
	}
	return c
}

func (c Config) clone() Config {
	if c.Ceiling != nil {
		c.Ceiling = new(big.Int).Set(c.Ceiling)
	}
	return c
}

// Snapshot is a point-in-time copy of the runtime's observable state. All
// reference fields are deep copies; holders may retain them freely.
type Snapshot struct {
	Phase   Phase
	RunID   string
	Start   sequence.Pair
	Current sequence.Pair
	Period  time.Duration
	Floor   time.Duration
	Batch   int
	Ceiling *big.Int
	Ticks   uint64
	Terms   uint64
}
