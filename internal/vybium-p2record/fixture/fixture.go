package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/record"
)

// RecordFixture is a stored execution record. The record travels as a
// deterministic CBOR payload protected by a Keccak-256 checksum, next to its
// Tip5 fingerprint and summary counts.
type RecordFixture struct {
	ID          uuid.UUID     `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	Corrupt     bool          `json:"corrupt"`
	Stats       record.Stats  `json:"stats"`
	Layout      record.Layout `json:"layout"`
	Fingerprint hexutil.Bytes `json:"fingerprint"`
	Checksum    hexutil.Bytes `json:"checksum"`
	Record      hexutil.Bytes `json:"record"`
}

// Checksum returns the Keccak-256 digest of data
func Checksum(data []byte) []byte {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	return d.Sum(nil)
}

// NewRecordFixture captures rec. corrupt marks records built with
// deliberately wrong permutation outputs.
func NewRecordFixture(rec *record.ExecutionRecord, corrupt bool) (*RecordFixture, error) {
	payload, err := EncodeRecord(rec)
	if err != nil {
		return nil, err
	}

	return &RecordFixture{
		ID:          uuid.New(),
		CreatedAt:   time.Now().UTC(),
		Corrupt:     corrupt,
		Stats:       rec.Stats(),
		Layout:      rec.Layout(),
		Fingerprint: record.FingerprintBytes(rec.Fingerprint()),
		Checksum:    Checksum(payload),
		Record:      payload,
	}, nil
}

// ExecutionRecord verifies the payload checksum and fingerprint and decodes
// the record
func (f *RecordFixture) ExecutionRecord() (*record.ExecutionRecord, error) {
	if !bytes.Equal(Checksum(f.Record), f.Checksum) {
		return nil, core.Errorf(core.ErrInvalidInput, "fixture %s: checksum mismatch", f.ID)
	}

	rec, err := DecodeRecord(f.Record)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.ID, err)
	}

	if !bytes.Equal(record.FingerprintBytes(rec.Fingerprint()), f.Fingerprint) {
		return nil, core.Errorf(core.ErrInvalidInput, "fixture %s: fingerprint mismatch", f.ID)
	}
	return rec, nil
}

// Save writes the fixture as indented JSON
func (f *RecordFixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write fixture: %w", err)
	}
	return nil
}

// Load reads a fixture written by Save and checks its payload
func Load(path string) (*RecordFixture, *record.ExecutionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var f RecordFixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, &core.RecordError{Code: core.ErrInvalidInput, Message: "malformed fixture", Cause: err}
	}

	rec, err := f.ExecutionRecord()
	if err != nil {
		return nil, nil, err
	}
	return &f, rec, nil
}
