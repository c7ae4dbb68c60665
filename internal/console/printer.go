package console

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"fibtick/internal/eventbus"
	"fibtick/internal/runtime"
	logx "fibtick/pkg/logx"
)

// Printer subscribes to the emission bus and renders each block as one
// line of comma-separated terms. It also surfaces stops the user did not
// ask for (ceiling truncation, a failed generation), since those land
// between prompts with no command to confirm them.
type Printer struct {
	bus eventbus.Bus
	out io.Writer
	log logx.Logger
}

func NewPrinter(bus eventbus.Bus, out io.Writer, log logx.Logger) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Printer{bus: bus, out: out, log: log}
}

// Run consumes bus events until ctx is canceled. The subscription buffer
// absorbs bursts; at the floor period a reader this slow has bigger
// problems than a dropped line.
func (p *Printer) Run(ctx context.Context) error {
	ch, unsub := p.bus.Subscribe(256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			p.render(ev)
		}
	}
}

func (p *Printer) render(ev eventbus.Event) {
	switch data := ev.Data.(type) {
	case runtime.BlockEvent:
		if len(data.Terms) > 0 {
			fmt.Fprintln(p.out, renderTerms(data.Terms))
		}
		p.log.Debug("block rendered",
			logx.String("run_id", data.RunID),
			logx.Uint64("tick", data.Seq),
			logx.Int("terms", len(data.Terms)),
			logx.Bool("truncated", data.Truncated))
	case runtime.RunEvent:
		// Requested stops were already confirmed by the verb's own status
		// line; only the asynchronous ones need announcing.
		if data.Action == "stop" && data.Reason != "" && data.Reason != runtime.StopRequested {
			fmt.Fprintln(p.out, "sequence stopped: "+data.Reason)
		}
	}
}

func renderTerms(terms []*big.Int) string {
	var b strings.Builder
	for i, t := range terms {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	return b.String()
}
