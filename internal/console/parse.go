package console

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"fibtick/internal/sequence"
)

// ErrSyntax reports an argument the console could not parse: wrong count,
// or text where a number was expected. Like every command failure it is
// feedback, not a fault; the command is abandoned and nothing changes.
var ErrSyntax = errors.New("syntax error")

// tokenize splits a command line into tokens, honoring quotes and
// backslash escapes, so `start "12" 13` parses the way a shell would.
func tokenize(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		out   []string
		buf   strings.Builder
		inQ   bool
		qChar byte
		esc   bool
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if esc {
			buf.WriteByte(ch)
			esc = false
			continue
		}
		if ch == '\\' {
			esc = true
			continue
		}
		if inQ {
			if ch == qChar {
				inQ = false
				continue
			}
			buf.WriteByte(ch)
			continue
		}
		switch ch {
		case '"', '\'':
			inQ = true
			qChar = ch
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			buf.WriteByte(ch)
		}
	}
	flush()
	return out
}

// parseSeed parses two decimal term arguments. Text that is not an integer
// is a syntax error here; an integer pair that breaks the seed rule is the
// sequence package's verdict and keeps its own error.
func parseSeed(t1, t2 string) (*sequence.Pair, error) {
	a, err := parseTerm("term1", t1)
	if err != nil {
		return nil, err
	}
	b, err := parseTerm("term2", t2)
	if err != nil {
		return nil, err
	}
	pair, err := sequence.NewPair(a, b)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func parseTerm(name, raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an integer, got %q", ErrSyntax, name, raw)
	}
	return v, nil
}

// secondsToDuration converts a seconds value without overflowing the
// duration range: absurdly large inputs saturate, and anything
// non-positive comes out zero, which the runtime clamps up to its floor.
func secondsToDuration(sec float64) time.Duration {
	if sec <= 0 {
		return 0
	}
	if sec >= float64(math.MaxInt64)/float64(time.Second) {
		return math.MaxInt64
	}
	return time.Duration(sec * float64(time.Second))
}
