package runtime

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"fibtick/internal/eventbus"
	"fibtick/internal/sequence"
	logx "fibtick/pkg/logx"
)

// Runtime is the scheduler plus state machine driving a sequence run. All
// state, including the timer handle, sits behind one mutex; command
// handlers and the tick callback serialize through it, so no two ticks for
// the same run are ever concurrent and no tick fires into a phase that no
// longer permits it.
type Runtime struct {
	log logx.Logger
	bus eventbus.Bus

	mu           sync.Mutex
	phase        Phase
	start        sequence.Pair // pair a fresh run or restart begins from
	current      sequence.Pair // advances every tick
	cfg          Config        // live tunables
	defaults     Config        // what Reset restores
	runID        string
	ticks        uint64
	terms        uint64
	pending      *pendingTick
	tickGen      uint64
	pendingBlock []*big.Int // first block of a run, emitted by the delay-0 tick
	inflight     sync.WaitGroup
	now          func() time.Time
}

func New(cfg Config, bus eventbus.Bus, log logx.Logger) *Runtime {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	return &Runtime{
		log:      log,
		bus:      bus,
		phase:    PhaseStopped,
		start:    sequence.DefaultPair(),
		current:  sequence.DefaultPair(),
		cfg:      cfg.clone(),
		defaults: cfg.clone(),
		now:      time.Now,
	}
}

// Start begins, resumes, or reseeds a run. seed == nil is the bare form:
// from Stopped it starts at (0, 1), from Paused it resumes at the pause
// point, and while Running it is rejected. With a seed, Stopped and Running
// begin a fresh run from that pair (a restart when Running), and Paused
// continues after the pair without re-emitting it.
//
// Validation happens before any mutation: a rejected start leaves phase,
// start, and current exactly as they were.
func (r *Runtime) Start(seed *sequence.Pair) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase {
	case PhaseExited:
		return "", ErrClosed

	case PhaseStopped:
		pair := sequence.DefaultPair()
		if seed != nil {
			pair = seed.Clone()
		}
		block, err := sequence.Sequence(r.cfg.Batch, pair)
		if err != nil {
			return "", err
		}
		r.beginRunLocked(pair, block, "start", true)
		return "sequence started from " + pair.String(), nil

	case PhasePaused:
		if seed == nil {
			if r.pendingBlock != nil {
				// The run paused before its first block was emitted;
				// resume by emitting it rather than skipping ahead.
				block := r.pendingBlock
				r.pendingBlock = nil
				r.beginRunLocked(r.current.Clone(), block, "resume", false)
				return "sequence resumed from " + r.start.String(), nil
			}
			pair := r.current.Clone()
			block, err := sequence.NextBlock(r.cfg.Batch, pair)
			if err != nil {
				return "", err
			}
			r.beginRunLocked(pair, block, "resume", false)
			return "sequence resumed from " + pair.String(), nil
		}
		pair := seed.Clone()
		block, err := sequence.NextBlock(r.cfg.Batch, pair)
		if err != nil {
			return "", err
		}
		r.beginRunLocked(pair, block, "resume", false)
		return "sequence resumed from " + pair.String(), nil

	case PhaseRunning:
		if seed == nil {
			return "", fmt.Errorf("%w: already running", ErrIllegalTransition)
		}
		pair := seed.Clone()
		block, err := sequence.Sequence(r.cfg.Batch, pair)
		if err != nil {
			return "", err
		}
		r.beginRunLocked(pair, block, "restart", true)
		return "sequence restarted from " + pair.String(), nil
	}
	return "", fmt.Errorf("%w: %s", ErrIllegalTransition, r.phase)
}

// beginRunLocked commits an already-validated run: every input was computed
// before the first mutation. The delay-0 arm makes the first tick fire
// immediately and emit the prepared block.
func (r *Runtime) beginRunLocked(pair sequence.Pair, block []*big.Int, action string, newRun bool) {
	r.cancelTickLocked()
	if newRun {
		r.runID = newRunID()
		r.ticks = 0
		r.terms = 0
	}
	r.start = pair.Clone()
	r.current = pair.Clone()
	r.pendingBlock = block
	r.phase = PhaseRunning
	r.publishRunLocked(action, "")
	r.log.Info("run "+action,
		logx.String("run_id", r.runID),
		logx.String("seed", r.start.String()),
		logx.Duration("period", r.cfg.Period))
	r.armLocked(0)
}

// Pause cancels the pending tick and retains current, so a later bare
// start continues where the run left off.
func (r *Runtime) Pause() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase {
	case PhaseExited:
		return "", ErrClosed
	case PhaseRunning:
		r.cancelTickLocked()
		r.phase = PhasePaused
		r.publishRunLocked("pause", "")
		r.log.Info("run paused",
			logx.String("run_id", r.runID),
			logx.String("at", r.current.String()))
		return "sequence paused at " + r.current.String(), nil
	default:
		return "", fmt.Errorf("%w: nothing to pause while %s", ErrIllegalTransition, r.phase)
	}
}

// Stop ends the active run and resets current back to start. Stopping an
// already stopped runtime is a no-op that reports as such.
func (r *Runtime) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase {
	case PhaseExited:
		return "", ErrClosed
	case PhaseStopped:
		return "already stopped", nil
	default:
		r.haltRunLocked(StopRequested)
		return "sequence stopped", nil
	}
}

// Restart begins a fresh run from start. Only meaningful while a run is
// active; from Stopped there is nothing to restart.
func (r *Runtime) Restart() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase {
	case PhaseExited:
		return "", ErrClosed
	case PhaseStopped:
		return "", fmt.Errorf("%w: no active sequence", ErrIllegalTransition)
	default:
		block, err := sequence.Sequence(r.cfg.Batch, r.start)
		if err != nil {
			return "", err
		}
		r.beginRunLocked(r.start.Clone(), block, "restart", true)
		return "sequence restarted from " + r.start.String(), nil
	}
}

// Reset returns the runtime to its factory state: Stopped, seed (0, 1),
// and the configured default period, batch, and ceiling.
func (r *Runtime) Reset() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseExited {
		return "", ErrClosed
	}
	r.cancelTickLocked()
	r.pendingBlock = nil
	r.phase = PhaseStopped
	r.cfg = r.defaults.clone()
	r.start = sequence.DefaultPair()
	r.current = sequence.DefaultPair()
	r.publishRunLocked("reset", "")
	r.publishConfigLocked()
	r.log.Info("runtime reset")
	return "reset to defaults", nil
}

// SetPeriod applies a new tick period, clamped up to the floor. While
// Running the pending tick is rescheduled in place: the time already
// waited counts against the new period, so shortening the interval
// mid-wait never forces a full fresh wait.
func (r *Runtime) SetPeriod(d time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseExited {
		return "", ErrClosed
	}
	clamped := d
	if clamped < r.cfg.Floor {
		clamped = r.cfg.Floor
	}
	r.cfg.Period = clamped
	if r.phase == PhaseRunning && r.pending != nil {
		elapsed := r.now().Sub(r.pending.armedAt)
		r.armLocked(reconcileDelay(clamped, elapsed))
	}
	r.publishConfigLocked()
	msg := fmt.Sprintf("tick period set to %s", clamped)
	if clamped != d {
		msg += " (clamped to minimum)"
	}
	return msg, nil
}

// SetCeiling bounds emitted terms; nil clears the bound. The change takes
// effect with the next tick's truncation check, in any phase.
func (r *Runtime) SetCeiling(limit *big.Int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseExited {
		return "", ErrClosed
	}
	if limit == nil {
		r.cfg.Ceiling = nil
		r.publishConfigLocked()
		return "ceiling cleared", nil
	}
	r.cfg.Ceiling = new(big.Int).Set(limit)
	r.publishConfigLocked()
	return "ceiling set to " + limit.String(), nil
}

// ApplyConfig folds a reloaded file config into the runtime. Floor and
// batch take effect immediately; period and ceiling only replace the
// defaults Reset restores, so a file reload never clobbers an interactive
// speed or max choice.
func (r *Runtime) ApplyConfig(cfg Config) {
	cfg = cfg.withDefaults()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseExited {
		return
	}
	r.defaults = cfg.clone()
	r.cfg.Floor = cfg.Floor
	r.cfg.Batch = cfg.Batch
	if r.cfg.Period < cfg.Floor {
		r.cfg.Period = cfg.Floor
		if r.phase == PhaseRunning && r.pending != nil {
			elapsed := r.now().Sub(r.pending.armedAt)
			r.armLocked(reconcileDelay(r.cfg.Period, elapsed))
		}
	}
	r.publishConfigLocked()
	r.log.Info("runtime config applied",
		logx.Duration("floor", cfg.Floor),
		logx.Int("batch", cfg.Batch))
}

// Close moves the runtime to Exited, cancels the pending tick, and waits
// for any in-flight tick callback to drain, bounded by ctx. Exited is
// terminal; every later call reports ErrClosed.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.phase == PhaseExited {
		r.mu.Unlock()
		return nil
	}
	r.cancelTickLocked()
	r.pendingBlock = nil
	r.phase = PhaseExited
	r.publishRunLocked("exit", "")
	r.log.Info("runtime closed")
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a deep copy of the observable state.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Phase:   r.phase,
		RunID:   r.runID,
		Start:   r.start.Clone(),
		Current: r.current.Clone(),
		Period:  r.cfg.Period,
		Floor:   r.cfg.Floor,
		Batch:   r.cfg.Batch,
		Ticks:   r.ticks,
		Terms:   r.terms,
	}
	if r.cfg.Ceiling != nil {
		snap.Ceiling = new(big.Int).Set(r.cfg.Ceiling)
	}
	return snap
}

// Floor reports the minimum tick period currently configured.
func (r *Runtime) Floor() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Floor
}

func (r *Runtime) publishRunLocked(action, reason string) {
	r.bus.Publish(eventbus.Event{Type: EventRun, Data: RunEvent{
		RunID:  r.runID,
		Phase:  r.phase,
		Action: action,
		Reason: reason,
		Seed:   r.start.String(),
	}})
}

func (r *Runtime) publishConfigLocked() {
	ev := ConfigEvent{Period: r.cfg.Period, Batch: r.cfg.Batch}
	if r.cfg.Ceiling != nil {
		ev.Ceiling = r.cfg.Ceiling.String()
	}
	r.bus.Publish(eventbus.Event{Type: EventConfig, Data: ev})
}

func newRunID() string {
	return uuid.NewString()
}
