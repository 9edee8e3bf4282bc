package fixture

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/record"
)

// Field elements travel in canonical form; Montgomery limbs never leave the
// process.

// wireMemory is (address, value, timestamp, previous timestamp)
type wireMemory [4]uint32

type wireIteration struct {
	StateCursor       int          `cbor:"1,keyasint"`
	NextCursor        int          `cbor:"2,keyasint"`
	StartAddress      uint32       `cbor:"3,keyasint"`
	InputRecords      []wireMemory `cbor:"4,keyasint"`
	PreviousState     []uint32     `cbor:"5,keyasint"`
	PermutationInput  []uint32     `cbor:"6,keyasint"`
	PermutationOutput []uint32     `cbor:"7,keyasint"`
	State             []uint32     `cbor:"8,keyasint"`
	DidPermute        bool         `cbor:"9,keyasint"`
}

type wireAbsorb struct {
	Timestamp       uint32          `cbor:"1,keyasint"`
	HashAndAbsorbID uint32          `cbor:"2,keyasint"`
	InputAddress    uint32          `cbor:"3,keyasint"`
	InputLength     uint32          `cbor:"4,keyasint"`
	HashID          uint32          `cbor:"5,keyasint"`
	AbsorbID        uint32          `cbor:"6,keyasint"`
	Iterations      []wireIteration `cbor:"7,keyasint"`
}

type wireFinalize struct {
	Timestamp         uint32       `cbor:"1,keyasint"`
	HashID            uint32       `cbor:"2,keyasint"`
	OutputAddress     uint32       `cbor:"3,keyasint"`
	OutputRecords     []wireMemory `cbor:"4,keyasint"`
	StateCursor       int          `cbor:"5,keyasint"`
	PermutationInput  []uint32     `cbor:"6,keyasint"`
	PermutationOutput []uint32     `cbor:"7,keyasint"`
	PreviousState     []uint32     `cbor:"8,keyasint"`
	State             []uint32     `cbor:"9,keyasint"`
	DidPermute        bool         `cbor:"10,keyasint"`
}

type wireHashEvent struct {
	Kind     uint8         `cbor:"1,keyasint"`
	Absorb   *wireAbsorb   `cbor:"2,keyasint,omitempty"`
	Finalize *wireFinalize `cbor:"3,keyasint,omitempty"`
}

type wireCompress struct {
	Timestamp          uint32       `cbor:"1,keyasint"`
	DestinationAddress uint32       `cbor:"2,keyasint"`
	LeftAddress        uint32       `cbor:"3,keyasint"`
	RightAddress       uint32       `cbor:"4,keyasint"`
	Input              []uint32     `cbor:"5,keyasint"`
	Result             []uint32     `cbor:"6,keyasint"`
	InputRecords       []wireMemory `cbor:"7,keyasint"`
	ResultRecords      []wireMemory `cbor:"8,keyasint"`
}

type wireRecord struct {
	HashEvents     []wireHashEvent `cbor:"1,keyasint"`
	CompressEvents []wireCompress  `cbor:"2,keyasint"`
}

var encMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("fixture: invalid CBOR options: %v", err))
	}
	return mode
}()

// EncodeRecord serializes rec with deterministic CBOR, so equal records
// produce equal bytes
func EncodeRecord(rec *record.ExecutionRecord) ([]byte, error) {
	w := toWire(rec)
	data, err := encMode.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

// DecodeRecord parses a record produced by EncodeRecord. Values outside the
// field and states of the wrong width are rejected.
func DecodeRecord(data []byte) (*record.ExecutionRecord, error) {
	var w wireRecord
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, &core.RecordError{Code: core.ErrInvalidInput, Message: "malformed record payload", Cause: err}
	}
	return fromWire(&w)
}

func toWire(rec *record.ExecutionRecord) wireRecord {
	hashEvents, compressEvents := rec.Events()

	w := wireRecord{
		HashEvents:     make([]wireHashEvent, len(hashEvents)),
		CompressEvents: make([]wireCompress, len(compressEvents)),
	}
	for i := range hashEvents {
		ev := &hashEvents[i]
		out := wireHashEvent{Kind: uint8(ev.Kind)}
		switch ev.Kind {
		case events.KindAbsorb:
			out.Absorb = absorbToWire(ev.Absorb)
		case events.KindFinalize:
			out.Finalize = finalizeToWire(ev.Finalize)
		}
		w.HashEvents[i] = out
	}
	for i := range compressEvents {
		w.CompressEvents[i] = compressToWire(&compressEvents[i])
	}
	return w
}

func memoryToWire(rs []events.MemoryRecord) []wireMemory {
	out := make([]wireMemory, len(rs))
	for i := range rs {
		out[i] = wireMemory{
			core.Canonical(rs[i].Address),
			core.Canonical(rs[i].Value),
			core.Canonical(rs[i].Timestamp),
			core.Canonical(rs[i].PreviousTimestamp),
		}
	}
	return out
}

func absorbToWire(ev *events.AbsorbEvent) *wireAbsorb {
	out := &wireAbsorb{
		Timestamp:       core.Canonical(ev.Timestamp),
		HashAndAbsorbID: core.Canonical(ev.HashAndAbsorbID),
		InputAddress:    core.Canonical(ev.InputAddress),
		InputLength:     core.Canonical(ev.InputLength),
		HashID:          core.Canonical(ev.HashID),
		AbsorbID:        core.Canonical(ev.AbsorbID),
		Iterations:      make([]wireIteration, len(ev.Iterations)),
	}
	for i := range ev.Iterations {
		step := &ev.Iterations[i]
		out.Iterations[i] = wireIteration{
			StateCursor:       step.StateCursor,
			NextCursor:        step.NextCursor,
			StartAddress:      core.Canonical(step.StartAddress),
			InputRecords:      memoryToWire(step.InputRecords),
			PreviousState:     step.PreviousState.Uint32s(),
			PermutationInput:  step.PermutationInput.Uint32s(),
			PermutationOutput: step.PermutationOutput.Uint32s(),
			State:             step.State.Uint32s(),
			DidPermute:        step.DidPermute,
		}
	}
	return out
}

func finalizeToWire(ev *events.FinalizeEvent) *wireFinalize {
	return &wireFinalize{
		Timestamp:         core.Canonical(ev.Timestamp),
		HashID:            core.Canonical(ev.HashID),
		OutputAddress:     core.Canonical(ev.OutputAddress),
		OutputRecords:     memoryToWire(ev.OutputRecords),
		StateCursor:       ev.StateCursor,
		PermutationInput:  ev.PermutationInput.Uint32s(),
		PermutationOutput: ev.PermutationOutput.Uint32s(),
		PreviousState:     ev.PreviousState.Uint32s(),
		State:             ev.State.Uint32s(),
		DidPermute:        ev.DidPermute,
	}
}

func compressToWire(ev *events.CompressEvent) wireCompress {
	return wireCompress{
		Timestamp:          core.Canonical(ev.Timestamp),
		DestinationAddress: core.Canonical(ev.DestinationAddress),
		LeftAddress:        core.Canonical(ev.LeftAddress),
		RightAddress:       core.Canonical(ev.RightAddress),
		Input:              ev.Input.Uint32s(),
		Result:             ev.Result.Uint32s(),
		InputRecords:       memoryToWire(ev.InputRecords[:]),
		ResultRecords:      memoryToWire(ev.ResultRecords[:]),
	}
}

// decoder accumulates the first conversion error so the field-by-field
// copies stay flat
type decoder struct {
	err error
}

func (d *decoder) elem(v uint32) core.Element {
	if d.err != nil {
		return core.Element{}
	}
	if uint64(v) >= core.Modulus {
		d.err = core.Errorf(core.ErrInvalidInput, "value %d is not a canonical field element", v)
		return core.Element{}
	}
	return core.NewElement(uint64(v))
}

func (d *decoder) state(vs []uint32) core.State {
	var s core.State
	if d.err != nil {
		return s
	}
	if len(vs) != core.Width {
		d.err = core.Errorf(core.ErrShapeMismatch, "state requires %d elements, got %d", core.Width, len(vs))
		return s
	}
	for i, v := range vs {
		s[i] = d.elem(v)
	}
	return s
}

func (d *decoder) memory(ws []wireMemory) []events.MemoryRecord {
	out := make([]events.MemoryRecord, len(ws))
	for i, w := range ws {
		out[i] = events.NewReadRecord(d.elem(w[0]), d.elem(w[1]), d.elem(w[2]), d.elem(w[3]))
	}
	return out
}

func fromWire(w *wireRecord) (*record.ExecutionRecord, error) {
	d := &decoder{}
	rec := record.New()

	for i := range w.HashEvents {
		we := &w.HashEvents[i]
		switch events.HashEventKind(we.Kind) {
		case events.KindAbsorb:
			if we.Absorb == nil {
				return nil, core.Errorf(core.ErrInvalidInput, "hash event %d: absorb payload missing", i)
			}
			rec.HashEvents = append(rec.HashEvents, events.NewAbsorbHashEvent(d.absorb(we.Absorb)))
		case events.KindFinalize:
			if we.Finalize == nil {
				return nil, core.Errorf(core.ErrInvalidInput, "hash event %d: finalize payload missing", i)
			}
			rec.HashEvents = append(rec.HashEvents, events.NewFinalizeHashEvent(d.finalize(we.Finalize)))
		default:
			return nil, core.Errorf(core.ErrInvalidInput, "hash event %d: unknown kind %d", i, we.Kind)
		}
		if d.err != nil {
			return nil, fmt.Errorf("hash event %d: %w", i, d.err)
		}
	}

	for i := range w.CompressEvents {
		ev, err := d.compress(&w.CompressEvents[i])
		if err != nil {
			return nil, fmt.Errorf("compress event %d: %w", i, err)
		}
		rec.CompressEvents = append(rec.CompressEvents, ev)
	}
	return rec, nil
}

func (d *decoder) absorb(w *wireAbsorb) events.AbsorbEvent {
	ev := events.AbsorbEvent{
		Timestamp:       d.elem(w.Timestamp),
		HashAndAbsorbID: d.elem(w.HashAndAbsorbID),
		InputAddress:    d.elem(w.InputAddress),
		InputLength:     d.elem(w.InputLength),
		HashID:          d.elem(w.HashID),
		AbsorbID:        d.elem(w.AbsorbID),
		Iterations:      make([]events.IterationStep, len(w.Iterations)),
	}
	for i := range w.Iterations {
		wi := &w.Iterations[i]
		ev.Iterations[i] = events.IterationStep{
			StateCursor:       wi.StateCursor,
			NextCursor:        wi.NextCursor,
			StartAddress:      d.elem(wi.StartAddress),
			InputRecords:      d.memory(wi.InputRecords),
			PreviousState:     d.state(wi.PreviousState),
			PermutationInput:  d.state(wi.PermutationInput),
			PermutationOutput: d.state(wi.PermutationOutput),
			State:             d.state(wi.State),
			DidPermute:        wi.DidPermute,
		}
	}
	return ev
}

func (d *decoder) finalize(w *wireFinalize) events.FinalizeEvent {
	return events.FinalizeEvent{
		Timestamp:         d.elem(w.Timestamp),
		HashID:            d.elem(w.HashID),
		OutputAddress:     d.elem(w.OutputAddress),
		OutputRecords:     d.memory(w.OutputRecords),
		StateCursor:       w.StateCursor,
		PermutationInput:  d.state(w.PermutationInput),
		PermutationOutput: d.state(w.PermutationOutput),
		PreviousState:     d.state(w.PreviousState),
		State:             d.state(w.State),
		DidPermute:        w.DidPermute,
	}
}

func (d *decoder) compress(w *wireCompress) (events.CompressEvent, error) {
	ev := events.CompressEvent{
		Timestamp:          d.elem(w.Timestamp),
		DestinationAddress: d.elem(w.DestinationAddress),
		LeftAddress:        d.elem(w.LeftAddress),
		RightAddress:       d.elem(w.RightAddress),
		Input:              d.state(w.Input),
		Result:             d.state(w.Result),
	}
	if d.err != nil {
		return events.CompressEvent{}, d.err
	}

	var err error
	if ev.InputRecords, err = events.RecordsToState(d.memory(w.InputRecords)); err != nil {
		return events.CompressEvent{}, err
	}
	if ev.ResultRecords, err = events.RecordsToState(d.memory(w.ResultRecords)); err != nil {
		return events.CompressEvent{}, err
	}
	return ev, d.err
}
