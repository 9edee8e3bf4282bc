package core

const (
	// HashIDShift is the bit offset of the hash id inside a packed identifier
	HashIDShift = 12

	// MaxAbsorbID bounds the number of absorb calls in one hash session
	MaxAbsorbID = 1 << HashIDShift

	// MaxHashID bounds the number of hash sessions: the packed value must stay
	// below the field modulus, which is tighter than 2^20.
	MaxHashID = uint32(Modulus / MaxAbsorbID)
)

// PackHashAndAbsorbID returns hashID * 2^12 + absorbID as a field element
func PackHashAndAbsorbID(hashID, absorbID uint32) (Element, error) {
	if absorbID >= MaxAbsorbID {
		return Element{}, Errorf(ErrIdentifierOverflow, "absorb id %d exceeds %d", absorbID, MaxAbsorbID-1)
	}
	if hashID >= MaxHashID {
		return Element{}, Errorf(ErrIdentifierOverflow, "hash id %d exceeds %d", hashID, MaxHashID-1)
	}
	return NewElement(uint64(hashID)<<HashIDShift | uint64(absorbID)), nil
}

// UnpackHashAndAbsorbID splits a packed identifier back into its hash and absorb ids
func UnpackHashAndAbsorbID(packed Element) (hashID, absorbID uint32) {
	v := Canonical(packed)
	return v >> HashIDShift, v & (MaxAbsorbID - 1)
}
