// Package journal persists the run history: lifecycle transitions, emitted
// blocks, and tuning changes. It is append-only and write-only; nothing in
// the process ever replays it back into runtime state.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "fibtick/pkg/logx"
)

var ErrClosed = errors.New("journal closed")

// Config selects the journal backend.
//
// Driver values:
//   - "file": append-only JSON Lines file
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry kinds.
const (
	KindRun    = "run"    // lifecycle transition
	KindBlock  = "block"  // one emitted batch
	KindConfig = "config" // tuning change
)

// Entry is one journal record. Kind decides which fields are meaningful;
// the rest stay zero. Term values are decimal strings because they outgrow
// every fixed-width integer column.
type Entry struct {
	At    time.Time `json:"at"`
	Kind  string    `json:"kind"`
	RunID string    `json:"run_id,omitempty"`

	// Run fields.
	Action string `json:"action,omitempty"` // start, resume, restart, pause, stop, reset, exit
	Phase  string `json:"phase,omitempty"`
	Reason string `json:"reason,omitempty"`
	Seed   string `json:"seed,omitempty"`

	// Block fields.
	Seq       uint64 `json:"seq,omitempty"`
	Terms     int    `json:"terms,omitempty"`
	FirstTerm string `json:"first_term,omitempty"`
	LastTerm  string `json:"last_term,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`

	// Config fields.
	Period  string `json:"period,omitempty"`
	Batch   int    `json:"batch,omitempty"`
	Ceiling string `json:"ceiling,omitempty"`
}

// Journal is the minimal persistence API the recorder writes through.
type Journal interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Open initializes the configured backend.
// It returns (nil, nil) when the journal is disabled.
func Open(cfg Config, log logx.Logger) (Journal, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown journal driver: " + driver)
	}
}
