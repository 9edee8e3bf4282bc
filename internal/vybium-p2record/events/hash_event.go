package events

import (
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
)

// HashEventKind tags the variant held by a HashEvent
type HashEventKind uint8

const (
	// KindAbsorb marks an absorb event
	KindAbsorb HashEventKind = iota

	// KindFinalize marks a finalize event
	KindFinalize
)

// String returns the name of the kind
func (k HashEventKind) String() string {
	switch k {
	case KindAbsorb:
		return "Absorb"
	case KindFinalize:
		return "Finalize"
	default:
		return "Unknown"
	}
}

// HashEvent is either an absorb or a finalize. Exactly the field matching
// Kind is set; consumers switch on Kind.
type HashEvent struct {
	Kind     HashEventKind
	Absorb   *AbsorbEvent   `cbor:",omitempty" json:",omitempty"`
	Finalize *FinalizeEvent `cbor:",omitempty" json:",omitempty"`
}

// NewAbsorbHashEvent wraps an absorb event
func NewAbsorbHashEvent(ev AbsorbEvent) HashEvent {
	return HashEvent{Kind: KindAbsorb, Absorb: &ev}
}

// NewFinalizeHashEvent wraps a finalize event
func NewFinalizeHashEvent(ev FinalizeEvent) HashEvent {
	return HashEvent{Kind: KindFinalize, Finalize: &ev}
}

// HashID returns the session the event belongs to
func (h HashEvent) HashID() core.Element {
	switch h.Kind {
	case KindAbsorb:
		return h.Absorb.HashID
	default:
		return h.Finalize.HashID
	}
}

// Timestamp returns the event clock
func (h HashEvent) Timestamp() core.Element {
	switch h.Kind {
	case KindAbsorb:
		return h.Absorb.Timestamp
	default:
		return h.Finalize.Timestamp
	}
}
