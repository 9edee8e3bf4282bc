package core

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/consensys/gnark-crypto/field/babybear/poseidon2"
)

// Permuter is the black-box permutation every event is built against.
// Implementations must not mutate the argument and must be safe for
// concurrent use.
type Permuter interface {
	// Width returns the number of elements the permutation operates on
	Width() int

	// Permute returns the permutation of state
	Permute(state State) State
}

const (
	// DefaultFullRounds is the full round number of the width-16 BabyBear
	// instance in SP1/Plonky3. Round constants are gnark-crypto's.
	DefaultFullRounds = 8

	// DefaultPartialRounds is the partial round number of the same instance
	DefaultPartialRounds = 13
)

// Poseidon2 wraps the gnark-crypto width-16 BabyBear Poseidon2 permutation
type Poseidon2 struct {
	perm          *poseidon2.Permutation
	fullRounds    int
	partialRounds int
}

// NewPoseidon2 creates a width-16 permutation with the given round numbers
func NewPoseidon2(fullRounds, partialRounds int) (*Poseidon2, error) {
	if fullRounds <= 0 || fullRounds%2 != 0 {
		return nil, Errorf(ErrInvalidConfig, "full rounds must be a positive even number, got %d", fullRounds)
	}
	if partialRounds <= 0 {
		return nil, Errorf(ErrInvalidConfig, "partial rounds must be positive, got %d", partialRounds)
	}
	return &Poseidon2{
		perm:          poseidon2.NewPermutation(Width, fullRounds, partialRounds),
		fullRounds:    fullRounds,
		partialRounds: partialRounds,
	}, nil
}

// DefaultPoseidon2 returns the shared default permutation instance
var DefaultPoseidon2 = sync.OnceValue(func() *Poseidon2 {
	p, err := NewPoseidon2(DefaultFullRounds, DefaultPartialRounds)
	if err != nil {
		panic(err)
	}
	return p
})

// Width returns the permutation width
func (p *Poseidon2) Width() int {
	return Width
}

// Rounds returns the number of full and partial rounds
func (p *Poseidon2) Rounds() (full, partial int) {
	return p.fullRounds, p.partialRounds
}

// Permute applies the permutation to a copy of state
func (p *Poseidon2) Permute(state State) State {
	out := state
	if err := p.perm.Permutation(out[:]); err != nil {
		// only reachable with a width other than the one the permutation was built for
		panic(fmt.Sprintf("poseidon2 permutation failed: %v", err))
	}
	return out
}

// CountingPermuter counts calls to the wrapped permutation
type CountingPermuter struct {
	inner Permuter
	calls atomic.Uint64
}

// NewCountingPermuter wraps inner
func NewCountingPermuter(inner Permuter) *CountingPermuter {
	return &CountingPermuter{inner: inner}
}

// Width returns the width of the wrapped permutation
func (c *CountingPermuter) Width() int {
	return c.inner.Width()
}

// Permute forwards to the wrapped permutation
func (c *CountingPermuter) Permute(state State) State {
	c.calls.Add(1)
	return c.inner.Permute(state)
}

// Calls returns the number of permutations performed so far
func (c *CountingPermuter) Calls() uint64 {
	return c.calls.Load()
}

// Reset zeroes the call counter
func (c *CountingPermuter) Reset() {
	c.calls.Store(0)
}

// Inner returns the wrapped permutation
func (c *CountingPermuter) Inner() Permuter {
	return c.inner
}
