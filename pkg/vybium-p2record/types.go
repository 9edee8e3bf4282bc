package vybiump2record

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/fixture"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/record"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/utils"
)

// Element is a BabyBear field element
type Element = core.Element

// State is a full permutation state
type State = core.State

// Half is one compression operand
type Half = core.Half

// Permuter is the black-box permutation used to build events
type Permuter = core.Permuter

// MemoryRecord is a synthetic memory read
type MemoryRecord = events.MemoryRecord

// IterationStep is one chunk of an absorb
type IterationStep = events.IterationStep

// AbsorbEvent records one absorb call
type AbsorbEvent = events.AbsorbEvent

// FinalizeEvent records the finalize of a hash session
type FinalizeEvent = events.FinalizeEvent

// CompressEvent records a two-to-one compression
type CompressEvent = events.CompressEvent

// HashEvent is an absorb or a finalize
type HashEvent = events.HashEvent

// HashEventKind tags a HashEvent
type HashEventKind = events.HashEventKind

// Hash event kinds
const (
	KindAbsorb   = events.KindAbsorb
	KindFinalize = events.KindFinalize
)

// ExecutionRecord is the ordered event log
type ExecutionRecord = record.ExecutionRecord

// Session is a multi-absorb hash session
type Session = record.Session

// Inputs are the raw operands of a record
type Inputs = record.Inputs

// Stats summarizes a record
type Stats = record.Stats

// Layout is the trace shape of a record
type Layout = record.Layout

// BuildOption configures a build
type BuildOption = record.Option

// RecordFixture is a stored record
type RecordFixture = fixture.RecordFixture

// Config represents the recorder configuration
type Config = utils.Config

// Shape constants
const (
	Modulus     = core.Modulus
	Width       = core.Width
	HalfWidth   = core.HalfWidth
	DigestSize  = core.DigestSize
	MaxHashID   = core.MaxHashID
	MaxAbsorbID = core.MaxAbsorbID
)

// NewExecutionRecord returns an empty record
func NewExecutionRecord() *ExecutionRecord {
	return record.New()
}

// NewElement reduces v into the field
func NewElement(v uint64) Element {
	return core.NewElement(v)
}

// PackHashAndAbsorbID returns hashID * 2^12 + absorbID as a field element
func PackHashAndAbsorbID(hashID, absorbID uint32) (Element, error) {
	return core.PackHashAndAbsorbID(hashID, absorbID)
}

// UnpackHashAndAbsorbID splits a packed identifier
func UnpackHashAndAbsorbID(packed Element) (hashID, absorbID uint32) {
	return core.UnpackHashAndAbsorbID(packed)
}

// Synthesize returns one read record per value sharing the given timestamps
func Synthesize(values []Element, previousTimestamp, timestamp Element) []MemoryRecord {
	return events.Synthesize(values, previousTimestamp, timestamp)
}

// RandomInputs generates reproducible inputs
func RandomInputs(seed uint64, numHashes, numCompressions int) Inputs {
	return record.RandomInputs(seed, numHashes, numCompressions)
}

// WithCorruption makes a build record random permutation outputs
func WithCorruption(seed uint64) BuildOption {
	return record.WithCorruption(seed)
}

// FingerprintBytes encodes a record fingerprint as little-endian words
func FingerprintBytes(d hash.Digest) []byte {
	return record.FingerprintBytes(d)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return utils.DefaultConfig()
}

// LoadConfig reads a configuration file over the defaults
func LoadConfig(path string) (*Config, error) {
	return utils.LoadConfig(path)
}

// ReadInputs loads a JSON inputs file
func ReadInputs(path string) (Inputs, error) {
	return fixture.ReadInputs(path)
}

// NewRecordFixture captures a record for storage
func NewRecordFixture(rec *ExecutionRecord, corrupt bool) (*RecordFixture, error) {
	return fixture.NewRecordFixture(rec, corrupt)
}

// LoadFixture reads and checks a stored record
func LoadFixture(path string) (*RecordFixture, *ExecutionRecord, error) {
	return fixture.Load(path)
}
