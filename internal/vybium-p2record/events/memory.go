// Package events builds the absorb, finalize and compress events of a
// Poseidon2 execution record together with their synthetic memory accesses.
package events

import (
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
)

// MemoryRecord is one synthetic read of Value. Only the timestamp ordering
// matters to the memory-consistency argument; the address is always zero.
type MemoryRecord struct {
	Address           core.Element
	Value             core.Element
	Timestamp         core.Element
	PreviousTimestamp core.Element
}

// NewReadRecord returns a read of value at address with the given timestamps
func NewReadRecord(address, value, timestamp, previousTimestamp core.Element) MemoryRecord {
	return MemoryRecord{
		Address:           address,
		Value:             value,
		Timestamp:         timestamp,
		PreviousTimestamp: previousTimestamp,
	}
}

// Synthesize returns one read record per value, all at address zero and
// sharing the (previousTimestamp, timestamp) pair.
func Synthesize(values []core.Element, previousTimestamp, timestamp core.Element) []MemoryRecord {
	records := make([]MemoryRecord, len(values))
	for i, v := range values {
		records[i] = NewReadRecord(core.Element{}, v, timestamp, previousTimestamp)
	}
	return records
}

// SynthesizeState is Synthesize for a full permutation state
func SynthesizeState(state core.State, previousTimestamp, timestamp core.Element) [core.Width]MemoryRecord {
	var records [core.Width]MemoryRecord
	for i, v := range state {
		records[i] = NewReadRecord(core.Element{}, v, timestamp, previousTimestamp)
	}
	return records
}

// Values extracts the values of records
func Values(records []MemoryRecord) []core.Element {
	out := make([]core.Element, len(records))
	for i := range records {
		out[i] = records[i].Value
	}
	return out
}

// RecordsToState converts exactly Width records into a fixed array
func RecordsToState(records []MemoryRecord) ([core.Width]MemoryRecord, error) {
	var out [core.Width]MemoryRecord
	if len(records) != core.Width {
		return out, core.Errorf(core.ErrShapeMismatch, "state records require %d entries, got %d", core.Width, len(records))
	}
	copy(out[:], records)
	return out, nil
}

// DigestFromRecords reads a digest of exactly size elements from records
func DigestFromRecords(records []MemoryRecord, size int) ([]core.Element, error) {
	if len(records) != size {
		return nil, core.Errorf(core.ErrShapeMismatch, "digest requires %d records, got %d", size, len(records))
	}
	return Values(records), nil
}
