package runtime

import (
	"math/big"
	"time"

	"fibtick/internal/eventbus"
	"fibtick/internal/sequence"
	logx "fibtick/pkg/logx"
)

// pendingTick is the single armed timer plus the bookkeeping needed to
// reconcile it against a period change. It exists iff the phase is Running.
type pendingTick struct {
	timer   *time.Timer
	armedAt time.Time
	delay   time.Duration
	gen     uint64
}

// armLocked cancels any armed timer and arms a fresh one. Callers hold r.mu.
func (r *Runtime) armLocked(delay time.Duration) {
	r.cancelTickLocked()
	r.tickGen++
	gen := r.tickGen
	r.inflight.Add(1)
	pt := &pendingTick{armedAt: r.now(), delay: delay, gen: gen}
	pt.timer = time.AfterFunc(delay, func() {
		defer r.inflight.Done()
		r.onTick(gen)
	})
	r.pending = pt
}

// cancelTickLocked disarms the pending timer, if any. A callback already in
// flight keeps running but is invalidated by the generation bump; it will
// check the generation under the lock and no-op. Callers hold r.mu.
func (r *Runtime) cancelTickLocked() {
	if r.pending == nil {
		return
	}
	if r.pending.timer.Stop() {
		// The callback will never run, so settle its inflight slot here.
		r.inflight.Done()
	}
	r.tickGen++
	r.pending = nil
}

// onTick runs on the timer's goroutine. It emits one batch, advances the
// pair, and re-arms, unless it lost the race against a cancel or transition.
func (r *Runtime) onTick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseRunning || r.pending == nil || r.pending.gen != gen {
		return
	}

	block := r.pendingBlock
	r.pendingBlock = nil
	if block == nil {
		b, err := sequence.NextBlock(r.cfg.Batch, r.current)
		if err != nil {
			// A harvested pair is always valid, so this is a bug; stop
			// the run rather than spin on it.
			r.log.Error("tick block generation failed", logx.Err(err))
			r.haltRunLocked(StopGeneration)
			return
		}
		block = b
	}

	// Advance from the full block before truncation so a later run could
	// in principle continue past the ceiling.
	if tail, err := sequence.TailPair(block); err == nil {
		r.current = tail
	}

	emit, truncated := truncateAbove(block, r.cfg.Ceiling)
	r.ticks++
	r.terms += uint64(len(emit))
	r.bus.Publish(eventbus.Event{Type: EventBlock, Data: BlockEvent{
		RunID:     r.runID,
		Seq:       r.ticks,
		Terms:     cloneTerms(emit),
		Truncated: truncated,
	}})

	if truncated {
		r.haltRunLocked(StopCeiling)
		return
	}
	r.armLocked(r.cfg.Period)
}

// haltRunLocked ends the active run the way an explicit stop would.
func (r *Runtime) haltRunLocked(reason string) {
	r.cancelTickLocked()
	r.pendingBlock = nil
	r.phase = PhaseStopped
	r.current = r.start.Clone()
	r.publishRunLocked("stop", reason)
	r.log.Info("run stopped", logx.String("run_id", r.runID), logx.String("reason", reason))
}

// reconcileDelay computes the initial delay for an in-place reschedule:
// the time already waited counts against the new period, floored at zero.
// The result may be off by up to one tick around the switch; that slop is
// accepted rather than engineered away.
func reconcileDelay(period, elapsed time.Duration) time.Duration {
	d := period - elapsed
	if d < 0 {
		return 0
	}
	return d
}

// truncateAbove cuts block at the first term exceeding ceiling. The
// returned slice shares backing storage with block.
func truncateAbove(block []*big.Int, ceiling *big.Int) ([]*big.Int, bool) {
	if ceiling == nil {
		return block, false
	}
	for i, term := range block {
		if term.Cmp(ceiling) > 0 {
			return block[:i], true
		}
	}
	return block, false
}

func cloneTerms(block []*big.Int) []*big.Int {
	out := make([]*big.Int, len(block))
	for i, t := range block {
		out[i] = new(big.Int).Set(t)
	}
	return out
}
