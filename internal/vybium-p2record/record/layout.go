package record

import (
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/utils"
)

// RowsPerCompress is the number of trace rows a compression occupies: one
// for the input state and one for the result
const RowsPerCompress = 2

// Layout is the trace shape a record produces. Every absorb iteration and
// every finalize takes one row.
type Layout struct {
	AbsorbRows   int `json:"absorb_rows"`
	FinalizeRows int `json:"finalize_rows"`
	CompressRows int `json:"compress_rows"`

	// Height is the number of populated rows
	Height int `json:"height"`

	// PaddedHeight rounds Height up to a power of two, with a minimum of 1
	PaddedHeight int `json:"padded_height"`

	// LogPaddedHeight is log2(PaddedHeight), the trace domain size exponent
	LogPaddedHeight int `json:"log_padded_height"`
}

// Layout computes the trace shape of the record
func (r *ExecutionRecord) Layout() Layout {
	r.mu.Lock()
	defer r.mu.Unlock()

	var l Layout
	for i := range r.HashEvents {
		ev := &r.HashEvents[i]
		switch ev.Kind {
		case events.KindAbsorb:
			l.AbsorbRows += len(ev.Absorb.Iterations)
		case events.KindFinalize:
			l.FinalizeRows++
		}
	}
	l.CompressRows = RowsPerCompress * len(r.CompressEvents)

	l.Height = l.AbsorbRows + l.FinalizeRows + l.CompressRows
	l.PaddedHeight = utils.NextPowerOfTwo(l.Height)
	l.LogPaddedHeight = utils.Log2(l.PaddedHeight)
	return l
}

// PaddingRows returns the number of padding rows appended to reach PaddedHeight
func (l Layout) PaddingRows() int {
	return l.PaddedHeight - l.Height
}
