package journal

import (
	"context"
	"time"

	"fibtick/internal/eventbus"
	"fibtick/internal/runtime"
	logx "fibtick/pkg/logx"
)

// Recorder subscribes to the emission bus and appends one journal entry per
// runtime event. The runtime itself never knows the journal exists.
type Recorder struct {
	j   Journal
	bus eventbus.Bus
	log logx.Logger
}

func NewRecorder(j Journal, bus eventbus.Bus, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Recorder{j: j, bus: bus, log: log}
}

// Run consumes bus events until ctx is done. On shutdown it drains what is
// already buffered before returning, so the final stop/exit transitions of
// a session still get journaled.
func (r *Recorder) Run(ctx context.Context) error {
	events, unsub := r.bus.Subscribe(256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			r.drain(events)
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			r.record(ctx, e)
		}
	}
}

func (r *Recorder) drain(events <-chan eventbus.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			r.record(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) record(ctx context.Context, e eventbus.Event) {
	ent, ok := entryFrom(e)
	if !ok {
		return
	}
	if err := r.j.Append(ctx, ent); err != nil {
		r.log.Warn("journal append failed",
			logx.String("kind", ent.Kind), logx.Err(err))
	}
}

// entryFrom maps a bus event to a journal entry; events the journal does
// not care about report ok=false.
func entryFrom(e eventbus.Event) (Entry, bool) {
	switch d := e.Data.(type) {
	case runtime.RunEvent:
		return Entry{
			At:     e.Time,
			Kind:   KindRun,
			RunID:  d.RunID,
			Action: d.Action,
			Phase:  d.Phase.String(),
			Reason: d.Reason,
			Seed:   d.Seed,
		}, true
	case runtime.BlockEvent:
		ent := Entry{
			At:        e.Time,
			Kind:      KindBlock,
			RunID:     d.RunID,
			Seq:       d.Seq,
			Terms:     len(d.Terms),
			Truncated: d.Truncated,
		}
		if len(d.Terms) > 0 {
			ent.FirstTerm = d.Terms[0].String()
			ent.LastTerm = d.Terms[len(d.Terms)-1].String()
		}
		return ent, true
	case runtime.ConfigEvent:
		return Entry{
			At:      e.Time,
			Kind:    KindConfig,
			Period:  d.Period.String(),
			Batch:   d.Batch,
			Ceiling: d.Ceiling,
		}, true
	default:
		return Entry{}, false
	}
}
