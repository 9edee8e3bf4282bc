package events

import (
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
)

// IterationStep is one chunk of an absorb call: the elements written into the
// buffer between two permutation boundaries.
type IterationStep struct {
	StateCursor  int
	NextCursor   int
	StartAddress core.Element
	InputRecords []MemoryRecord

	PreviousState     core.State
	PermutationInput  core.State
	PermutationOutput core.State // equals PermutationInput when DidPermute is false
	State             core.State

	DidPermute bool
}

// AbsorbEvent records one absorb call of a hash session
type AbsorbEvent struct {
	Timestamp       core.Element
	HashAndAbsorbID core.Element
	InputAddress    core.Element
	InputLength     core.Element
	HashID          core.Element
	AbsorbID        core.Element
	Iterations      []IterationStep
}

// Permutations returns the number of permutation boundaries crossed
func (a *AbsorbEvent) Permutations() int {
	n := 0
	for i := range a.Iterations {
		if a.Iterations[i].DidPermute {
			n++
		}
	}
	return n
}

// AbsorbRequest describes one absorb call
type AbsorbRequest struct {
	HashID            uint32
	AbsorbID          uint32
	InputAddress      core.Element
	Input             []core.Element
	PreviousTimestamp core.Element
	Timestamp         core.Element
}

// Absorb writes req.Input into st chunk by chunk. A chunk that fills the
// buffer permutes it and resets the cursor, so after the call the cursor is
// (cursor + len(Input)) mod Width and floor((cursor + len(Input)) / Width)
// permutations have run. Empty input yields an event with no iterations.
func (e *Engine) Absorb(st *SpongeState, req AbsorbRequest) (AbsorbEvent, error) {
	if err := st.check(); err != nil {
		return AbsorbEvent{}, err
	}
	packed, err := core.PackHashAndAbsorbID(req.HashID, req.AbsorbID)
	if err != nil {
		return AbsorbEvent{}, err
	}

	event := AbsorbEvent{
		Timestamp:       req.Timestamp,
		HashAndAbsorbID: packed,
		InputAddress:    req.InputAddress,
		InputLength:     core.FromInt(len(req.Input)),
		HashID:          core.NewElement(uint64(req.HashID)),
		AbsorbID:        core.NewElement(uint64(req.AbsorbID)),
		Iterations:      make([]IterationStep, 0, (st.Cursor+len(req.Input))/core.Width+1),
	}

	records := Synthesize(req.Input, req.PreviousTimestamp, req.Timestamp)
	consumed := 0
	for len(records) > 0 {
		n := min(core.Width-st.Cursor, len(records))
		chunk := records[:n:n]

		step := IterationStep{
			StateCursor:   st.Cursor,
			StartAddress:  core.Offset(req.InputAddress, consumed),
			InputRecords:  chunk,
			PreviousState: st.Buffer,
		}
		for i := range chunk {
			st.Buffer[st.Cursor+i] = chunk[i].Value
		}
		step.PermutationInput = st.Buffer
		step.DidPermute = st.Cursor+n == core.Width
		if step.DidPermute {
			step.PermutationOutput = e.perm.Permute(st.Buffer)
			st.Buffer = step.PermutationOutput
		} else {
			step.PermutationOutput = step.PermutationInput
		}
		step.State = st.Buffer

		st.Cursor = (st.Cursor + n) % core.Width
		step.NextCursor = st.Cursor

		event.Iterations = append(event.Iterations, step)
		records = records[n:]
		consumed += n
	}

	return event, nil
}
