// Package sequence statelessly computes generalized Fibonacci sequences.
//
// By default the first two terms are 0 and 1; each following term is the sum
// of the two before it. The sequence may be generalized to start with any
// non-negative pair (a, b) with b >= a.
//
// Blocks chain: the last two terms of a returned block seed the next
// NextBlock call, so a caller can advance the sequence indefinitely without
// rewalking it from the beginning. Terms are arbitrary-precision; the values
// outgrow fixed-width integers within a few dozen terms.
package sequence

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrInvalidSeed   = errors.New("invalid seed")
	ErrInvalidLength = errors.New("invalid length")
)

// Pair holds two consecutive terms of a sequence. Constructors and block
// functions copy terms on every boundary, so a Pair never aliases caller or
// callee memory.
type Pair struct {
	A *big.Int
	B *big.Int
}

// NewPair validates and copies (a, b). Both terms must be non-negative and
// b must not precede a.
func NewPair(a, b *big.Int) (Pair, error) {
	p := Pair{A: a, B: b}
	if err := p.validate(); err != nil {
		return Pair{}, err
	}
	return p.Clone(), nil
}

// DefaultPair returns the canonical seed (0, 1).
func DefaultPair() Pair {
	return Pair{A: big.NewInt(0), B: big.NewInt(1)}
}

// Clone deep-copies the pair.
func (p Pair) Clone() Pair {
	var q Pair
	if p.A != nil {
		q.A = new(big.Int).Set(p.A)
	}
	if p.B != nil {
		q.B = new(big.Int).Set(p.B)
	}
	return q
}

func (p Pair) String() string {
	if p.A == nil || p.B == nil {
		return "(?, ?)"
	}
	return fmt.Sprintf("(%s, %s)", p.A, p.B)
}

func (p Pair) validate() error {
	if p.A == nil || p.B == nil {
		return fmt.Errorf("%w: missing term", ErrInvalidSeed)
	}
	if p.A.Sign() < 0 || p.B.Cmp(p.A) < 0 {
		return fmt.Errorf("%w: terms must be non-negative and in order: term1=%s term2=%s", ErrInvalidSeed, p.A, p.B)
	}
	return nil
}

// At computes term n of the sequence seeded by p, counting from 0.
// Term 0 is p.A and term 1 is p.B.
func At(n int, p Pair) (*big.Int, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: term index must be non-negative: %d", ErrInvalidSeed, n)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	switch {
	case n == 0:
		return new(big.Int).Set(p.A), nil
	case n == 1:
		return new(big.Int).Set(p.B), nil
	case p.B.Sign() == 0:
		// b >= a >= 0, so a is also zero and the entire series is zero.
		return new(big.Int), nil
	}

	a := new(big.Int).Set(p.A)
	b := new(big.Int).Set(p.B)
	for i := 2; i <= n; i++ {
		a.Add(a, b)
		a, b = b, a
	}
	return b, nil
}

// Sequence generates the first length terms seeded by p: term 0 is p.A,
// term 1 is p.B (when length >= 2), and each later term is the sum of the
// two preceding terms.
func Sequence(length int, p Pair) ([]*big.Int, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: length must be positive: %d", ErrInvalidLength, length)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	block := make([]*big.Int, 0, length)
	block = append(block, new(big.Int).Set(p.A))
	if length >= 2 {
		block = append(block, new(big.Int).Set(p.B))
	}

	a := new(big.Int).Set(p.A)
	b := new(big.Int).Set(p.B)
	for i := 2; i < length; i++ {
		next := new(big.Int).Add(a, b)
		a, b = b, next
		block = append(block, next)
	}
	return block, nil
}

// NextBlock generates the length terms that continue the sequence after p:
// the first produced term is p.A+p.B, each later term is the sum of the two
// preceding produced terms.
//
// The pair is not checked for membership in any particular sequence, so it
// is possible to produce a block that could not legally follow an earlier
// one. Chain blocks with TailPair to stay on a single sequence.
func NextBlock(length int, p Pair) ([]*big.Int, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: length must be positive: %d", ErrInvalidLength, length)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	block := make([]*big.Int, 0, length)
	a := new(big.Int).Set(p.A)
	b := new(big.Int).Set(p.B)
	for i := 0; i < length; i++ {
		next := new(big.Int).Add(a, b)
		a, b = b, next
		block = append(block, next)
	}
	return block, nil
}

// TailPair harvests the last two terms of a block as the seed pair for the
// following NextBlock call.
func TailPair(block []*big.Int) (Pair, error) {
	if len(block) < 2 {
		return Pair{}, fmt.Errorf("%w: block needs at least two terms: %d", ErrInvalidLength, len(block))
	}
	return Pair{
		A: new(big.Int).Set(block[len(block)-2]),
		B: new(big.Int).Set(block[len(block)-1]),
	}, nil
}
