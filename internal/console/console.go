package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"fibtick/internal/runtime"
	"fibtick/internal/sequence"
	logx "fibtick/pkg/logx"
)

// Port is the slice of the runtime the console drives. *runtime.Runtime
// implements it.
type Port interface {
	Start(seed *sequence.Pair) (string, error)
	Pause() (string, error)
	Stop() (string, error)
	Restart() (string, error)
	Reset() (string, error)
	SetPeriod(d time.Duration) (string, error)
	SetCeiling(limit *big.Int) (string, error)
	Snapshot() runtime.Snapshot
	Floor() time.Duration
}

// Config carries the console's I/O streams. Zero values mean stdin/stdout.
type Config struct {
	In  io.Reader
	Out io.Writer
}

// Console owns the command table and the line loop. All handling happens
// on the loop's goroutine; the runtime's own lock serializes it against
// tick callbacks.
type Console struct {
	rt  Port
	log logx.Logger
	in  io.Reader
	out io.Writer

	cmds  map[string]*Command // name and aliases -> command
	names []string            // canonical names, sorted for help

	quit     bool // set by the exit handler, read only by the loop
	done     chan struct{}
	doneOnce sync.Once
}

func New(cfg Config, rt Port, log logx.Logger) *Console {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Console{
		rt:   rt,
		log:  log,
		in:   cfg.In,
		out:  cfg.Out,
		done: make(chan struct{}),
	}
	c.register(c.commands())
	return c
}

// Done is closed once the line loop has finished: exit verb, end of
// input, or a dead input stream. The app treats it as a shutdown request.
func (c *Console) Done() <-chan struct{} { return c.done }

// Run drives the line loop until the exit verb, EOF, or ctx cancellation.
// A blocking stdin read cannot be interrupted portably, so cancellation
// leaves the feeder goroutine parked on its final read; it exits with the
// process.
func (c *Console) Run(ctx context.Context) error {
	defer c.doneOnce.Do(func() { close(c.done) })

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			c.log.Warn("console input failed", logx.Err(err))
		}
	}()

	c.log.Debug("console loop started")
	c.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// EOF is an implicit exit.
				c.log.Debug("console input closed")
				return nil
			}
			c.handleLine(line)
			if c.quit {
				return nil
			}
			c.prompt()
		}
	}
}

func (c *Console) handleLine(line string) {
	tokens := tokenize(line)
	if len(tokens) == 0 {
		return
	}
	verb := strings.ToLower(tokens[0])
	args := tokens[1:]

	cmd, ok := c.cmds[verb]
	if !ok {
		c.println("unknown command " + strconv.Quote(verb) + `; try "help"`)
		return
	}

	msg, err := cmd.Handle(args)
	if err != nil {
		c.println(feedback(err))
		c.log.Debug("command rejected", logx.String("verb", cmd.Name), logx.Err(err))
		return
	}
	if msg != "" {
		c.println(msg)
	}
	c.log.Debug("command handled", logx.String("verb", cmd.Name), logx.Int("args", len(args)))
}

// feedback renders a rejection as the one line the user sees. Illegal
// transitions read better without their category prefix; the rest of the
// taxonomy already reads as a sentence.
func feedback(err error) string {
	if errors.Is(err, runtime.ErrClosed) {
		return "the runtime is already shut down"
	}
	if errors.Is(err, runtime.ErrIllegalTransition) {
		if msg, ok := strings.CutPrefix(err.Error(), runtime.ErrIllegalTransition.Error()+": "); ok {
			return msg
		}
	}
	return err.Error()
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, c.rt.Snapshot().Phase.Prompt())
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

// ---- Handlers (one per verb: parse, call, report) ----

func (c *Console) handleStart(args []string) (string, error) {
	switch len(args) {
	case 0:
		return c.rt.Start(nil)
	case 2:
		pair, err := parseSeed(args[0], args[1])
		if err != nil {
			return "", err
		}
		return c.rt.Start(pair)
	default:
		return "", fmt.Errorf("%w: start takes two terms or none", ErrSyntax)
	}
}

func (c *Console) handleStop(args []string) (string, error) {
	if len(args) != 0 {
		return "", fmt.Errorf("%w: stop takes no arguments", ErrSyntax)
	}
	return c.rt.Stop()
}

func (c *Console) handlePause(args []string) (string, error) {
	if len(args) != 0 {
		return "", fmt.Errorf("%w: pause takes no arguments", ErrSyntax)
	}
	return c.rt.Pause()
}

func (c *Console) handleRestart(args []string) (string, error) {
	if len(args) != 0 {
		return "", fmt.Errorf("%w: restart takes no arguments", ErrSyntax)
	}
	return c.rt.Restart()
}

func (c *Console) handleReset(args []string) (string, error) {
	if len(args) != 0 {
		return "", fmt.Errorf("%w: reset takes no arguments", ErrSyntax)
	}
	return c.rt.Reset()
}

func (c *Console) handleSpeed(args []string) (string, error) {
	switch len(args) {
	case 0:
		// No value asks for the fastest legal rate: the floor, not the
		// default period.
		return c.rt.SetPeriod(c.rt.Floor())
	case 1:
		sec, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
		if err != nil || math.IsNaN(sec) || math.IsInf(sec, 0) {
			return "", fmt.Errorf("%w: speed takes a number of seconds, got %q", ErrSyntax, args[0])
		}
		return c.rt.SetPeriod(secondsToDuration(sec))
	default:
		return "", fmt.Errorf("%w: speed takes one number of seconds or none", ErrSyntax)
	}
}

func (c *Console) handleMax(args []string) (string, error) {
	switch len(args) {
	case 0:
		return c.rt.SetCeiling(nil)
	case 1:
		limit, ok := new(big.Int).SetString(strings.TrimSpace(args[0]), 10)
		if !ok {
			return "", fmt.Errorf("%w: max takes an integer, got %q", ErrSyntax, args[0])
		}
		if limit.Sign() < 0 {
			return "", fmt.Errorf("%w: max must be non-negative, got %s", ErrSyntax, limit)
		}
		return c.rt.SetCeiling(limit)
	default:
		return "", fmt.Errorf("%w: max takes one integer or none", ErrSyntax)
	}
}

func (c *Console) handleHelp(args []string) (string, error) {
	switch len(args) {
	case 0:
		return c.helpText(), nil
	case 1:
		return c.helpFor(args[0]), nil
	default:
		return "", fmt.Errorf("%w: help takes at most one command name", ErrSyntax)
	}
}

func (c *Console) handleExit(args []string) (string, error) {
	if len(args) != 0 {
		return "", fmt.Errorf("%w: exit takes no arguments", ErrSyntax)
	}
	c.quit = true
	return "exiting", nil
}
