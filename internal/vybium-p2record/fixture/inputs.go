// Package fixture persists execution records and their inputs so trace
// builders can be exercised against fixed data.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/record"
)

// InputsFile is the JSON form of record.Inputs. Values are canonical field
// elements; each compress input holds exactly one full state.
type InputsFile struct {
	HashInputs     [][]uint32 `json:"hash_inputs"`
	CompressInputs [][]uint32 `json:"compress_inputs"`
}

// ToInputs converts the file into field elements
func (f *InputsFile) ToInputs() (record.Inputs, error) {
	in := record.Inputs{
		Hash:     make([][]core.Element, len(f.HashInputs)),
		Compress: make([]core.State, len(f.CompressInputs)),
	}

	for i, values := range f.HashInputs {
		elems, err := core.ElementsFromUint32(values)
		if err != nil {
			return record.Inputs{}, fmt.Errorf("hash input %d: %w", i, err)
		}
		in.Hash[i] = elems
	}

	for i, values := range f.CompressInputs {
		elems, err := core.ElementsFromUint32(values)
		if err != nil {
			return record.Inputs{}, fmt.Errorf("compress input %d: %w", i, err)
		}
		state, err := core.StateFromSlice(elems)
		if err != nil {
			return record.Inputs{}, fmt.Errorf("compress input %d: %w", i, err)
		}
		in.Compress[i] = state
	}

	return in, nil
}

// FromInputs converts inputs into their file form
func FromInputs(in record.Inputs) *InputsFile {
	f := &InputsFile{
		HashInputs:     make([][]uint32, len(in.Hash)),
		CompressInputs: make([][]uint32, len(in.Compress)),
	}
	for i, input := range in.Hash {
		values := make([]uint32, len(input))
		for j := range input {
			values[j] = core.Canonical(input[j])
		}
		f.HashInputs[i] = values
	}
	for i, state := range in.Compress {
		f.CompressInputs[i] = state.Uint32s()
	}
	return f
}

// ReadInputs loads and converts an inputs file
func ReadInputs(path string) (record.Inputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record.Inputs{}, fmt.Errorf("failed to read inputs: %w", err)
	}

	var f InputsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return record.Inputs{}, &core.RecordError{Code: core.ErrInvalidInput, Message: "malformed inputs file", Cause: err}
	}
	return f.ToInputs()
}

// WriteInputs stores inputs as indented JSON
func WriteInputs(path string, in record.Inputs) error {
	data, err := json.MarshalIndent(FromInputs(in), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write inputs: %w", err)
	}
	return nil
}
