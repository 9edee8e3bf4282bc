package events

import (
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
)

// CompressEvent records a one-shot two-to-one compression. The left operand
// sits at DestinationAddress + Width/2 and the right one directly after it.
type CompressEvent struct {
	Timestamp          core.Element
	DestinationAddress core.Element
	LeftAddress        core.Element
	RightAddress       core.Element

	Input  core.State
	Result core.State

	InputRecords  [core.Width]MemoryRecord
	ResultRecords [core.Width]MemoryRecord
}

// CompressRequest describes one compression
type CompressRequest struct {
	Input              core.State
	DestinationAddress core.Element
	PreviousTimestamp  core.Element
	Timestamp          core.Element
	OutputTimestamp    core.Element
}

// Compress permutes req.Input exactly once. Input records are read at
// (PreviousTimestamp, Timestamp) and result records at (Timestamp, OutputTimestamp).
func (e *Engine) Compress(req CompressRequest) CompressEvent {
	left := core.Offset(req.DestinationAddress, core.HalfWidth)
	result := e.perm.Permute(req.Input)

	return CompressEvent{
		Timestamp:          req.Timestamp,
		DestinationAddress: req.DestinationAddress,
		LeftAddress:        left,
		RightAddress:       core.Offset(left, core.HalfWidth),
		Input:              req.Input,
		Result:             result,
		InputRecords:       SynthesizeState(req.Input, req.PreviousTimestamp, req.Timestamp),
		ResultRecords:      SynthesizeState(result, req.Timestamp, req.OutputTimestamp),
	}
}
