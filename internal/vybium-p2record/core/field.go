// Package core holds the field, state and permutation types shared by every
// event of a Poseidon2 execution record.
package core

import (
	"github.com/consensys/gnark-crypto/field/babybear"
)

// Element is a BabyBear field element
type Element = babybear.Element

const (
	// Width is the number of field elements in the permutation state
	Width = 16

	// HalfWidth is the size of each operand of a two-to-one compression
	HalfWidth = Width / 2

	// DigestSize is the default number of elements squeezed from a finalized state
	DigestSize = 8

	// Modulus is the BabyBear prime 2^31 - 2^27 + 1
	Modulus uint64 = 2013265921
)

// State is a full permutation state
type State [Width]Element

// Half is one operand of a compression
type Half [HalfWidth]Element

// NewElement returns the field element for v reduced modulo p
func NewElement(v uint64) Element {
	return babybear.NewElement(v)
}

// FromInt converts a non-negative counter (index, timestamp, address) to a field element
func FromInt(v int) Element {
	return babybear.NewElement(uint64(v))
}

// Offset returns e + n, used for address arithmetic
func Offset(e Element, n int) Element {
	d := FromInt(n)
	var out Element
	out.Add(&e, &d)
	return out
}

// Canonical returns the canonical integer representative of e
func Canonical(e Element) uint32 {
	return uint32(e.Uint64())
}

// ElementsFromUint32 maps canonical values into the field, rejecting non-canonical ones
func ElementsFromUint32(values []uint32) ([]Element, error) {
	out := make([]Element, len(values))
	for i, v := range values {
		if uint64(v) >= Modulus {
			return nil, Errorf(ErrInvalidInput, "value %d at index %d is not a canonical BabyBear element", v, i)
		}
		out[i] = babybear.NewElement(uint64(v))
	}
	return out, nil
}

// StateFromSlice converts exactly Width elements into a State
func StateFromSlice(values []Element) (State, error) {
	var s State
	if len(values) != Width {
		return s, Errorf(ErrShapeMismatch, "state requires %d elements, got %d", Width, len(values))
	}
	copy(s[:], values)
	return s, nil
}

// HalfFromSlice converts exactly HalfWidth elements into a Half
func HalfFromSlice(values []Element) (Half, error) {
	var h Half
	if len(values) != HalfWidth {
		return h, Errorf(ErrShapeMismatch, "compression operand requires %d elements, got %d", HalfWidth, len(values))
	}
	copy(h[:], values)
	return h, nil
}

// Concat places left in the first half of the state and right in the second
func Concat(left, right Half) State {
	var s State
	copy(s[:HalfWidth], left[:])
	copy(s[HalfWidth:], right[:])
	return s
}

// Uint32s returns the canonical values of the state
func (s State) Uint32s() []uint32 {
	out := make([]uint32, Width)
	for i := range s {
		out[i] = Canonical(s[i])
	}
	return out
}
