package sequence

import (
	"errors"
	"math/big"
	"testing"
)

func wantTerms(t *testing.T, got []*big.Int, want []int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("block length = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Cmp(big.NewInt(w)) != 0 {
			t.Fatalf("term %d = %s, want %d", i, got[i], w)
		}
	}
}

func TestSequenceDefaultSeed(t *testing.T) {
	t.Parallel()

	block, err := Sequence(10, DefaultPair())
	if err != nil {
		t.Fatalf("Sequence error: %v", err)
	}
	wantTerms(t, block, []int64{0, 1, 1, 2, 3, 5, 8, 13, 21, 34})
}

func TestSequenceShortLengths(t *testing.T) {
	t.Parallel()

	p, err := NewPair(big.NewInt(2), big.NewInt(7))
	if err != nil {
		t.Fatalf("NewPair error: %v", err)
	}

	one, err := Sequence(1, p)
	if err != nil {
		t.Fatalf("Sequence(1) error: %v", err)
	}
	wantTerms(t, one, []int64{2})

	two, err := Sequence(2, p)
	if err != nil {
		t.Fatalf("Sequence(2) error: %v", err)
	}
	wantTerms(t, two, []int64{2, 7})
}

func TestNextBlockContinuation(t *testing.T) {
	t.Parallel()

	block, err := NextBlock(5, DefaultPair())
	if err != nil {
		t.Fatalf("NextBlock error: %v", err)
	}
	// Continuation after (0, 1) starts at 0+1.
	wantTerms(t, block, []int64{1, 2, 3, 5, 8})
}

func TestBlockChainingReproducesSequence(t *testing.T) {
	t.Parallel()

	seed, err := Sequence(4, DefaultPair())
	if err != nil {
		t.Fatalf("Sequence error: %v", err)
	}

	stream := append([]*big.Int(nil), seed...)
	pair, err := TailPair(seed)
	if err != nil {
		t.Fatalf("TailPair error: %v", err)
	}
	for i := 0; i < 3; i++ {
		block, err := NextBlock(3, pair)
		if err != nil {
			t.Fatalf("NextBlock %d error: %v", i, err)
		}
		stream = append(stream, block...)
		if pair, err = TailPair(block); err != nil {
			t.Fatalf("TailPair %d error: %v", i, err)
		}
	}

	wantTerms(t, stream, []int64{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144})
}

func TestAt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		n    int
		pair Pair
		want string
	}{
		{name: "term 0 is a", n: 0, pair: Pair{A: big.NewInt(4), B: big.NewInt(9)}, want: "4"},
		{name: "term 1 is b", n: 1, pair: Pair{A: big.NewInt(4), B: big.NewInt(9)}, want: "9"},
		{name: "default seed term 10", n: 10, pair: DefaultPair(), want: "55"},
		{name: "all-zero seed stays zero", n: 40, pair: Pair{A: big.NewInt(0), B: big.NewInt(0)}, want: "0"},
		{name: "term 100 exceeds 64 bits", n: 100, pair: DefaultPair(), want: "354224848179261915075"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := At(tt.n, tt.pair)
			if err != nil {
				t.Fatalf("At(%d) error: %v", tt.n, err)
			}
			if got.String() != tt.want {
				t.Fatalf("At(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}

func TestSeedValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b int64
	}{
		{name: "negative first term", a: -1, b: 0},
		{name: "negative pair", a: -3, b: -2},
		{name: "second term precedes first", a: 5, b: 3},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPair(big.NewInt(tt.a), big.NewInt(tt.b)); !errors.Is(err, ErrInvalidSeed) {
				t.Fatalf("NewPair(%d, %d) error = %v, want ErrInvalidSeed", tt.a, tt.b, err)
			}
			bad := Pair{A: big.NewInt(tt.a), B: big.NewInt(tt.b)}
			if _, err := Sequence(3, bad); !errors.Is(err, ErrInvalidSeed) {
				t.Fatalf("Sequence error = %v, want ErrInvalidSeed", err)
			}
			if _, err := NextBlock(3, bad); !errors.Is(err, ErrInvalidSeed) {
				t.Fatalf("NextBlock error = %v, want ErrInvalidSeed", err)
			}
		})
	}

	if _, err := At(-1, DefaultPair()); !errors.Is(err, ErrInvalidSeed) {
		t.Fatalf("At(-1) error = %v, want ErrInvalidSeed", err)
	}
}

func TestLengthValidation(t *testing.T) {
	t.Parallel()

	for _, length := range []int{0, -1, -10} {
		if _, err := Sequence(length, DefaultPair()); !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("Sequence(%d) error = %v, want ErrInvalidLength", length, err)
		}
		if _, err := NextBlock(length, DefaultPair()); !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("NextBlock(%d) error = %v, want ErrInvalidLength", length, err)
		}
	}

	if _, err := TailPair([]*big.Int{big.NewInt(1)}); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("TailPair(short) error = %v, want ErrInvalidLength", err)
	}
}

func TestPairCopiesDoNotAlias(t *testing.T) {
	t.Parallel()

	a, b := big.NewInt(1), big.NewInt(2)
	p, err := NewPair(a, b)
	if err != nil {
		t.Fatalf("NewPair error: %v", err)
	}

	// Mutating the constructor inputs must not reach the pair.
	a.SetInt64(99)
	b.SetInt64(99)
	if p.A.Int64() != 1 || p.B.Int64() != 2 {
		t.Fatalf("pair aliased its inputs: %s", p)
	}

	// Mutating a returned block must not corrupt later blocks.
	first, err := NextBlock(4, p)
	if err != nil {
		t.Fatalf("NextBlock error: %v", err)
	}
	for _, term := range first {
		term.SetInt64(-1)
	}
	second, err := NextBlock(4, p)
	if err != nil {
		t.Fatalf("NextBlock error: %v", err)
	}
	wantTerms(t, second, []int64{3, 5, 8, 13})
}
