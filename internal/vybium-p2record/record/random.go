package record

import (
	"math/rand/v2"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
)

// MaxRandomInputLength bounds the length of generated hash inputs
const MaxRandomInputLength = 128

// Inputs are the raw operands of a record: one slice per hash session and
// one full state per compression
type Inputs struct {
	Hash     [][]core.Element
	Compress []core.State
}

// RandomInputs generates numHashes hash inputs of length 1..MaxRandomInputLength
// and numCompressions random states. The same seed yields the same inputs.
func RandomInputs(seed uint64, numHashes, numCompressions int) Inputs {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	in := Inputs{
		Hash:     make([][]core.Element, numHashes),
		Compress: make([]core.State, numCompressions),
	}
	for i := range in.Hash {
		input := make([]core.Element, rng.IntN(MaxRandomInputLength)+1)
		for j := range input {
			input[j] = randomElement(rng)
		}
		in.Hash[i] = input
	}
	for i := range in.Compress {
		in.Compress[i] = randomState(rng)
	}
	return in
}

func randomElement(rng *rand.Rand) core.Element {
	return core.NewElement(rng.Uint64N(core.Modulus))
}

func randomState(rng *rand.Rand) core.State {
	var s core.State
	for i := range s {
		s[i] = randomElement(rng)
	}
	return s
}
