package record

import (
	"fmt"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
)

// sessionTrace tracks the sponge cursor and absorb numbering of one hash id
// while walking the record
type sessionTrace struct {
	cursor    int
	absorbs   uint32
	finalized bool
}

// Validate checks the structural invariants a trace generator relies on:
//
//   - every memory record reads strictly after its previous access
//   - absorbs of a hash id are numbered 0, 1, 2, ... and precede its single finalize
//   - iteration cursors chain within and across the absorbs of a session
//   - a finalize permutes exactly when its cursor is non-zero
//   - compress operands sit at Dst+Width/2 and Dst+Width
//
// It does not re-run the permutation; see Verify.
func (r *ExecutionRecord) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make(map[uint32]*sessionTrace)
	for i := range r.HashEvents {
		ev := &r.HashEvents[i]
		var err error
		switch ev.Kind {
		case events.KindAbsorb:
			if ev.Absorb == nil {
				return core.Errorf(core.ErrInconsistentRecord, "hash event %d: absorb payload missing", i)
			}
			err = validateAbsorb(ev.Absorb, sessions)
		case events.KindFinalize:
			if ev.Finalize == nil {
				return core.Errorf(core.ErrInconsistentRecord, "hash event %d: finalize payload missing", i)
			}
			err = validateFinalize(ev.Finalize, sessions)
		default:
			err = core.Errorf(core.ErrInconsistentRecord, "unknown event kind %d", ev.Kind)
		}
		if err != nil {
			return &core.RecordError{Code: core.ErrInconsistentRecord, Message: fmt.Sprintf("hash event %d", i), Cause: err}
		}
	}

	for i := range r.CompressEvents {
		if err := validateCompress(&r.CompressEvents[i]); err != nil {
			return &core.RecordError{Code: core.ErrInconsistentRecord, Message: fmt.Sprintf("compress event %d", i), Cause: err}
		}
	}
	return nil
}

func validateAbsorb(ev *events.AbsorbEvent, sessions map[uint32]*sessionTrace) error {
	hashID, absorbID := core.UnpackHashAndAbsorbID(ev.HashAndAbsorbID)
	if hashID != core.Canonical(ev.HashID) || absorbID != core.Canonical(ev.AbsorbID) {
		return core.Errorf(core.ErrInconsistentRecord, "packed id does not match hash id %d and absorb id %d",
			core.Canonical(ev.HashID), core.Canonical(ev.AbsorbID))
	}

	st, ok := sessions[hashID]
	if !ok {
		st = &sessionTrace{}
		sessions[hashID] = st
	}
	if st.finalized {
		return core.Errorf(core.ErrInconsistentRecord, "absorb after finalize of hash %d", hashID)
	}
	if absorbID != st.absorbs {
		return core.Errorf(core.ErrInconsistentRecord, "hash %d: absorb id %d out of order, expected %d", hashID, absorbID, st.absorbs)
	}

	length := 0
	for j := range ev.Iterations {
		step := &ev.Iterations[j]
		n := len(step.InputRecords)
		if step.StateCursor != st.cursor {
			return core.Errorf(core.ErrInconsistentRecord, "iteration %d starts at cursor %d, expected %d", j, step.StateCursor, st.cursor)
		}
		if n == 0 || step.StateCursor+n > core.Width {
			return core.Errorf(core.ErrInconsistentRecord, "iteration %d writes %d elements at cursor %d", j, n, step.StateCursor)
		}
		if step.DidPermute != (step.StateCursor+n == core.Width) {
			return core.Errorf(core.ErrInconsistentRecord, "iteration %d permute flag disagrees with its boundary", j)
		}
		if step.NextCursor != (step.StateCursor+n)%core.Width {
			return core.Errorf(core.ErrInconsistentRecord, "iteration %d next cursor %d", j, step.NextCursor)
		}
		if step.StartAddress != core.Offset(ev.InputAddress, length) {
			return core.Errorf(core.ErrInconsistentRecord, "iteration %d start address does not follow the input layout", j)
		}
		for k := range step.InputRecords {
			rec := &step.InputRecords[k]
			if rec.Value != step.PermutationInput[step.StateCursor+k] {
				return core.Errorf(core.ErrInconsistentRecord, "iteration %d: record %d not written to the buffer", j, k)
			}
			if err := checkTimestamps(rec); err != nil {
				return err
			}
		}
		if step.DidPermute {
			if step.State != step.PermutationOutput {
				return core.Errorf(core.ErrInconsistentRecord, "iteration %d state is not the permutation output", j)
			}
		} else if step.State != step.PermutationInput {
			return core.Errorf(core.ErrInconsistentRecord, "iteration %d state changed without a permutation", j)
		}

		st.cursor = step.NextCursor
		length += n
	}

	if ev.InputLength != core.FromInt(length) {
		return core.Errorf(core.ErrInconsistentRecord, "input length %d but iterations consumed %d", core.Canonical(ev.InputLength), length)
	}
	st.absorbs++
	return nil
}

func validateFinalize(ev *events.FinalizeEvent, sessions map[uint32]*sessionTrace) error {
	hashID := core.Canonical(ev.HashID)
	st, ok := sessions[hashID]
	if !ok {
		// a session with no absorbs finalizes the empty sponge
		st = &sessionTrace{}
		sessions[hashID] = st
	}
	if st.finalized {
		return core.Errorf(core.ErrInconsistentRecord, "hash %d finalized twice", hashID)
	}
	st.finalized = true

	if ev.StateCursor != st.cursor {
		return core.Errorf(core.ErrInconsistentRecord, "hash %d finalize cursor %d, expected %d", hashID, ev.StateCursor, st.cursor)
	}
	if ev.DidPermute != (ev.StateCursor != 0) {
		return core.Errorf(core.ErrInconsistentRecord, "hash %d permute flag disagrees with cursor %d", hashID, ev.StateCursor)
	}
	if ev.PermutationInput != ev.PreviousState {
		return core.Errorf(core.ErrInconsistentRecord, "hash %d permutation input is not the previous state", hashID)
	}
	if ev.DidPermute {
		if ev.State != ev.PermutationOutput {
			return core.Errorf(core.ErrInconsistentRecord, "hash %d state is not the permutation output", hashID)
		}
	} else if ev.State != ev.PreviousState {
		return core.Errorf(core.ErrInconsistentRecord, "hash %d state changed without a permutation", hashID)
	}

	if len(ev.OutputRecords) == 0 || len(ev.OutputRecords) > core.Width {
		return core.Errorf(core.ErrInconsistentRecord, "hash %d has %d output records", hashID, len(ev.OutputRecords))
	}
	for k := range ev.OutputRecords {
		rec := &ev.OutputRecords[k]
		if rec.Value != ev.State[k] {
			return core.Errorf(core.ErrInconsistentRecord, "hash %d output record %d is not the squeezed state", hashID, k)
		}
		if err := checkTimestamps(rec); err != nil {
			return err
		}
	}
	return nil
}

func validateCompress(ev *events.CompressEvent) error {
	if ev.LeftAddress != core.Offset(ev.DestinationAddress, core.HalfWidth) ||
		ev.RightAddress != core.Offset(ev.LeftAddress, core.HalfWidth) {
		return core.Errorf(core.ErrInconsistentRecord, "operand addresses do not follow destination %d", core.Canonical(ev.DestinationAddress))
	}
	for k := 0; k < core.Width; k++ {
		in, out := &ev.InputRecords[k], &ev.ResultRecords[k]
		if in.Value != ev.Input[k] || out.Value != ev.Result[k] {
			return core.Errorf(core.ErrInconsistentRecord, "record %d does not carry the state value", k)
		}
		if in.Timestamp != out.PreviousTimestamp {
			return core.Errorf(core.ErrInconsistentRecord, "result record %d does not follow its input read", k)
		}
		if err := checkTimestamps(in); err != nil {
			return err
		}
		if err := checkTimestamps(out); err != nil {
			return err
		}
	}
	return nil
}

func checkTimestamps(rec *events.MemoryRecord) error {
	if core.Canonical(rec.PreviousTimestamp) >= core.Canonical(rec.Timestamp) {
		return core.Errorf(core.ErrInconsistentRecord, "memory record at %d does not advance time (%d -> %d)",
			core.Canonical(rec.Address), core.Canonical(rec.PreviousTimestamp), core.Canonical(rec.Timestamp))
	}
	return nil
}

// Verify re-runs every recorded permutation with perm and compares outputs.
// Records built with WithCorruption fail here while passing Validate.
func (r *ExecutionRecord) Verify(perm core.Permuter) error {
	if perm == nil || perm.Width() != core.Width {
		return core.Errorf(core.ErrInvalidConfig, "verification needs a width %d permutation", core.Width)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	check := func(did bool, input, output core.State) bool {
		if !did {
			return input == output
		}
		return perm.Permute(input) == output
	}

	for i := range r.HashEvents {
		ev := &r.HashEvents[i]
		switch ev.Kind {
		case events.KindAbsorb:
			for j := range ev.Absorb.Iterations {
				step := &ev.Absorb.Iterations[j]
				if !check(step.DidPermute, step.PermutationInput, step.PermutationOutput) {
					return core.Errorf(core.ErrInconsistentRecord, "hash event %d iteration %d: permutation output mismatch", i, j)
				}
			}
		case events.KindFinalize:
			if !check(ev.Finalize.DidPermute, ev.Finalize.PermutationInput, ev.Finalize.PermutationOutput) {
				return core.Errorf(core.ErrInconsistentRecord, "hash event %d: finalize permutation output mismatch", i)
			}
		}
	}

	for i := range r.CompressEvents {
		ev := &r.CompressEvents[i]
		if perm.Permute(ev.Input) != ev.Result {
			return core.Errorf(core.ErrInconsistentRecord, "compress event %d: permutation output mismatch", i)
		}
	}
	return nil
}
