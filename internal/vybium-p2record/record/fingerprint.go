package record

import (
	"encoding/binary"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
)

// Fingerprint commits to every element of the record with Tip5 over the
// Goldilocks field. BabyBear values embed canonically, so two records share a
// fingerprint exactly when they hold the same events in the same order.
func (r *ExecutionRecord) Fingerprint() hash.Digest {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := &fingerprintWriter{}
	w.count(len(r.HashEvents))
	for i := range r.HashEvents {
		ev := &r.HashEvents[i]
		w.count(int(ev.Kind))
		switch ev.Kind {
		case events.KindAbsorb:
			w.absorb(ev.Absorb)
		case events.KindFinalize:
			w.finalize(ev.Finalize)
		}
	}

	w.count(len(r.CompressEvents))
	for i := range r.CompressEvents {
		w.compress(&r.CompressEvents[i])
	}

	return hash.HashVarlen(w.elements)
}

// FingerprintBytes returns the little-endian encoding of each digest element
func FingerprintBytes(d hash.Digest) []byte {
	out := make([]byte, 0, hash.DigestLen*8)
	for _, elem := range d {
		out = binary.LittleEndian.AppendUint64(out, elem.Value())
	}
	return out
}

type fingerprintWriter struct {
	elements []field.Element
}

func (w *fingerprintWriter) count(n int) {
	w.elements = append(w.elements, field.New(uint64(n)))
}

func (w *fingerprintWriter) elems(es ...core.Element) {
	for i := range es {
		w.elements = append(w.elements, field.New(uint64(core.Canonical(es[i]))))
	}
}

func (w *fingerprintWriter) state(s *core.State) {
	w.elems(s[:]...)
}

func (w *fingerprintWriter) records(rs []events.MemoryRecord) {
	w.count(len(rs))
	for i := range rs {
		w.elems(rs[i].Address, rs[i].Value, rs[i].Timestamp, rs[i].PreviousTimestamp)
	}
}

func (w *fingerprintWriter) flag(b bool) {
	if b {
		w.count(1)
	} else {
		w.count(0)
	}
}

func (w *fingerprintWriter) absorb(ev *events.AbsorbEvent) {
	w.elems(ev.Timestamp, ev.HashAndAbsorbID, ev.InputAddress, ev.InputLength, ev.HashID, ev.AbsorbID)
	w.count(len(ev.Iterations))
	for i := range ev.Iterations {
		step := &ev.Iterations[i]
		w.count(step.StateCursor)
		w.count(step.NextCursor)
		w.elems(step.StartAddress)
		w.records(step.InputRecords)
		w.state(&step.PreviousState)
		w.state(&step.PermutationInput)
		w.state(&step.PermutationOutput)
		w.state(&step.State)
		w.flag(step.DidPermute)
	}
}

func (w *fingerprintWriter) finalize(ev *events.FinalizeEvent) {
	w.elems(ev.Timestamp, ev.HashID, ev.OutputAddress)
	w.records(ev.OutputRecords)
	w.count(ev.StateCursor)
	w.state(&ev.PermutationInput)
	w.state(&ev.PermutationOutput)
	w.state(&ev.PreviousState)
	w.state(&ev.State)
	w.flag(ev.DidPermute)
}

func (w *fingerprintWriter) compress(ev *events.CompressEvent) {
	w.elems(ev.Timestamp, ev.DestinationAddress, ev.LeftAddress, ev.RightAddress)
	w.state(&ev.Input)
	w.state(&ev.Result)
	w.records(ev.InputRecords[:])
	w.records(ev.ResultRecords[:])
}
