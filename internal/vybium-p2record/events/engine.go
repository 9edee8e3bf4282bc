package events

import (
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
)

// Engine builds events against one permutation. It carries no per-session
// state and is safe for concurrent use when the permutation is.
type Engine struct {
	perm       core.Permuter
	digestSize int
}

// NewEngine checks the permutation shape and digest size once, at setup
func NewEngine(perm core.Permuter, digestSize int) (*Engine, error) {
	if perm == nil {
		return nil, core.Errorf(core.ErrInvalidConfig, "permutation cannot be nil")
	}
	if perm.Width() != core.Width {
		return nil, core.Errorf(core.ErrInvalidConfig, "permutation width %d does not match state width %d", perm.Width(), core.Width)
	}
	if digestSize <= 0 || digestSize > perm.Width() {
		return nil, core.Errorf(core.ErrInvalidConfig, "digest size %d must be in [1, %d]", digestSize, perm.Width())
	}
	return &Engine{perm: perm, digestSize: digestSize}, nil
}

// DigestSize returns the number of elements squeezed by Finalize
func (e *Engine) DigestSize() int {
	return e.digestSize
}

// Permuter returns the underlying permutation
func (e *Engine) Permuter() core.Permuter {
	return e.perm
}

// SpongeState is the buffer and cursor carried between the absorb calls of
// one hash session and its finalize. It is owned by the caller.
type SpongeState struct {
	Buffer core.State
	Cursor int
}

// NewSpongeState returns a zeroed state with the cursor at zero
func NewSpongeState() *SpongeState {
	return &SpongeState{}
}

// Reset zeroes the buffer and cursor
func (s *SpongeState) Reset() {
	*s = SpongeState{}
}

func (s *SpongeState) check() error {
	if s == nil {
		return core.Errorf(core.ErrInvalidState, "sponge state cannot be nil")
	}
	if s.Cursor < 0 || s.Cursor >= core.Width {
		return core.Errorf(core.ErrInvalidState, "cursor %d out of range [0, %d)", s.Cursor, core.Width)
	}
	return nil
}
