package events

import (
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
)

// FinalizeEvent closes a hash session and carries the squeezed digest
type FinalizeEvent struct {
	Timestamp     core.Element
	HashID        core.Element
	OutputAddress core.Element
	OutputRecords []MemoryRecord
	StateCursor   int

	PermutationInput  core.State
	PermutationOutput core.State
	PreviousState     core.State
	State             core.State

	DidPermute bool
}

// Digest returns the squeezed elements
func (f *FinalizeEvent) Digest() []core.Element {
	return Values(f.OutputRecords)
}

// FinalizeRequest describes the finalize call of a hash session
type FinalizeRequest struct {
	HashID            uint32
	OutputAddress     core.Element
	PreviousTimestamp core.Element
	Timestamp         core.Element
}

// Finalize squeezes the digest of the session held in st. A non-zero cursor
// means unpermuted input is still buffered, so one more permutation runs;
// a zero cursor squeezes the buffer as is. st is reset afterwards.
func (e *Engine) Finalize(st *SpongeState, req FinalizeRequest) (FinalizeEvent, error) {
	if err := st.check(); err != nil {
		return FinalizeEvent{}, err
	}
	if req.HashID >= core.MaxHashID {
		return FinalizeEvent{}, core.Errorf(core.ErrIdentifierOverflow, "hash id %d exceeds %d", req.HashID, core.MaxHashID-1)
	}

	event := FinalizeEvent{
		Timestamp:        req.Timestamp,
		HashID:           core.NewElement(uint64(req.HashID)),
		OutputAddress:    req.OutputAddress,
		StateCursor:      st.Cursor,
		PermutationInput: st.Buffer,
		PreviousState:    st.Buffer,
		DidPermute:       st.Cursor != 0,
	}

	if event.DidPermute {
		event.PermutationOutput = e.perm.Permute(st.Buffer)
		event.State = event.PermutationOutput
	} else {
		event.PermutationOutput = event.PermutationInput
		event.State = event.PreviousState
	}

	event.OutputRecords = Synthesize(event.State[:e.digestSize], req.PreviousTimestamp, req.Timestamp)

	st.Reset()
	return event, nil
}
