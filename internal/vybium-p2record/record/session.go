package record

import (
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
)

// Session drives one hash through any number of absorbs and a single
// finalize. Every call advances a session-local clock by one: a call reads
// its inputs at (clock, clock+1). Absorbed inputs are laid out contiguously
// from the session address, and the digest is written back to it.
type Session struct {
	engine  *events.Engine
	sponge  events.SpongeState
	hashID  uint32
	address core.Element
	clock   core.Element

	absorbs   uint32
	absorbed  int
	finalized bool

	events []events.HashEvent
}

// MaxSessionCalls bounds the clock advances of one session: every absorb id
// plus the finalize
const MaxSessionCalls = core.MaxAbsorbID + 1

// NewSession opens a hash session whose first call reads at
// (baseTimestamp, baseTimestamp+1). The clock must not wrap within the
// session, so baseTimestamp + MaxSessionCalls has to stay below the modulus.
func NewSession(engine *events.Engine, hashID uint32, baseTimestamp, address core.Element) (*Session, error) {
	if engine == nil {
		return nil, core.Errorf(core.ErrInvalidConfig, "engine cannot be nil")
	}
	if hashID >= core.MaxHashID {
		return nil, core.Errorf(core.ErrIdentifierOverflow, "hash id %d exceeds %d", hashID, core.MaxHashID-1)
	}
	if base := uint64(core.Canonical(baseTimestamp)); base+MaxSessionCalls >= core.Modulus {
		return nil, core.Errorf(core.ErrInvalidState, "base timestamp %d leaves no room for %d clock advances", base, MaxSessionCalls)
	}

	return &Session{
		engine:  engine,
		hashID:  hashID,
		address: address,
		clock:   baseTimestamp,
	}, nil
}

// Absorb feeds input into the sponge
func (s *Session) Absorb(input []core.Element) (events.AbsorbEvent, error) {
	if s.finalized {
		return events.AbsorbEvent{}, core.Errorf(core.ErrSessionFinalized, "hash %d already finalized", s.hashID)
	}

	ts := core.Offset(s.clock, 1)
	ev, err := s.engine.Absorb(&s.sponge, events.AbsorbRequest{
		HashID:            s.hashID,
		AbsorbID:          s.absorbs,
		InputAddress:      core.Offset(s.address, s.absorbed),
		Input:             input,
		PreviousTimestamp: s.clock,
		Timestamp:         ts,
	})
	if err != nil {
		return events.AbsorbEvent{}, err
	}

	s.clock = ts
	s.absorbs++
	s.absorbed += len(input)
	s.events = append(s.events, events.NewAbsorbHashEvent(ev))
	return ev, nil
}

// Finalize squeezes the digest and closes the session
func (s *Session) Finalize() (events.FinalizeEvent, error) {
	if s.finalized {
		return events.FinalizeEvent{}, core.Errorf(core.ErrSessionFinalized, "hash %d already finalized", s.hashID)
	}

	ts := core.Offset(s.clock, 1)
	ev, err := s.engine.Finalize(&s.sponge, events.FinalizeRequest{
		HashID:            s.hashID,
		OutputAddress:     s.address,
		PreviousTimestamp: s.clock,
		Timestamp:         ts,
	})
	if err != nil {
		return events.FinalizeEvent{}, err
	}

	s.clock = ts
	s.finalized = true
	s.events = append(s.events, events.NewFinalizeHashEvent(ev))
	return ev, nil
}

// Events returns the hash events produced so far, in call order
func (s *Session) Events() []events.HashEvent {
	return append([]events.HashEvent(nil), s.events...)
}

// HashID returns the session identifier
func (s *Session) HashID() uint32 {
	return s.hashID
}

// Clock returns the timestamp of the last call, or the base timestamp
func (s *Session) Clock() core.Element {
	return s.clock
}

// Cursor returns the sponge cursor
func (s *Session) Cursor() int {
	return s.sponge.Cursor
}

// Finalized reports whether Finalize succeeded
func (s *Session) Finalized() bool {
	return s.finalized
}
