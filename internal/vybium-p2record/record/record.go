// Package record assembles Poseidon2 events into an ordered execution record
// and provides the builders, consistency checks and trace layout used by a
// downstream trace generator.
package record

import (
	"sync"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
)

// ExecutionRecord is the ordered log of hash and compress events. Appends are
// serialized so one record may be fed from several goroutines. Once frozen
// the record is read-only.
type ExecutionRecord struct {
	mu sync.Mutex

	HashEvents     []events.HashEvent
	CompressEvents []events.CompressEvent

	frozen bool
}

// New creates an empty execution record
func New() *ExecutionRecord {
	return &ExecutionRecord{
		HashEvents:     make([]events.HashEvent, 0),
		CompressEvents: make([]events.CompressEvent, 0),
	}
}

// AppendHash appends hash events in order
func (r *ExecutionRecord) AppendHash(evs ...events.HashEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return core.Errorf(core.ErrRecordFrozen, "cannot append %d hash events to a frozen record", len(evs))
	}
	r.HashEvents = append(r.HashEvents, evs...)
	return nil
}

// AppendCompress appends compress events in order
func (r *ExecutionRecord) AppendCompress(evs ...events.CompressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return core.Errorf(core.ErrRecordFrozen, "cannot append %d compress events to a frozen record", len(evs))
	}
	r.CompressEvents = append(r.CompressEvents, evs...)
	return nil
}

// Merge appends every event of other after the events already held
func (r *ExecutionRecord) Merge(other *ExecutionRecord) error {
	if other == nil {
		return nil
	}

	hashEvents, compressEvents := other.Events()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return core.Errorf(core.ErrRecordFrozen, "cannot merge into a frozen record")
	}
	r.HashEvents = append(r.HashEvents, hashEvents...)
	r.CompressEvents = append(r.CompressEvents, compressEvents...)
	return nil
}

// Freeze makes the record read-only
func (r *ExecutionRecord) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called
func (r *ExecutionRecord) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// Events returns copies of the event slices. Event payloads are shared.
func (r *ExecutionRecord) Events() ([]events.HashEvent, []events.CompressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.HashEvent(nil), r.HashEvents...), append([]events.CompressEvent(nil), r.CompressEvents...)
}

// Stats summarizes a record
type Stats struct {
	HashEvents     int `json:"hash_events"`
	AbsorbEvents   int `json:"absorb_events"`
	FinalizeEvents int `json:"finalize_events"`
	CompressEvents int `json:"compress_events"`
	Permutations   int `json:"permutations"`
}

// Stats counts events and the permutations they record
func (r *ExecutionRecord) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		HashEvents:     len(r.HashEvents),
		CompressEvents: len(r.CompressEvents),
		Permutations:   len(r.CompressEvents),
	}
	for i := range r.HashEvents {
		ev := &r.HashEvents[i]
		switch ev.Kind {
		case events.KindAbsorb:
			s.AbsorbEvents++
			s.Permutations += ev.Absorb.Permutations()
		case events.KindFinalize:
			s.FinalizeEvents++
			if ev.Finalize.DidPermute {
				s.Permutations++
			}
		}
	}
	return s
}

// Digests returns the digest of every finalize event keyed by hash id
func (r *ExecutionRecord) Digests() map[uint32][]core.Element {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[uint32][]core.Element)
	for i := range r.HashEvents {
		ev := &r.HashEvents[i]
		if ev.Kind == events.KindFinalize {
			out[core.Canonical(ev.Finalize.HashID)] = ev.Finalize.Digest()
		}
	}
	return out
}
