package vybiump2record

import "github.com/vybium/vybium-p2record/internal/vybium-p2record/core"

// ErrorCode represents a record construction error code
type ErrorCode = core.ErrorCode

// RecordError carries an ErrorCode; errors.Is matches on the code
type RecordError = core.RecordError

// Error codes
const (
	ErrUnknown            = core.ErrUnknown
	ErrInvalidConfig      = core.ErrInvalidConfig
	ErrShapeMismatch      = core.ErrShapeMismatch
	ErrIdentifierOverflow = core.ErrIdentifierOverflow
	ErrInvalidState       = core.ErrInvalidState
	ErrSessionFinalized   = core.ErrSessionFinalized
	ErrRecordFrozen       = core.ErrRecordFrozen
	ErrInconsistentRecord = core.ErrInconsistentRecord
	ErrInvalidInput       = core.ErrInvalidInput
)

// Sentinels for errors.Is
var (
	ErrConfig       = core.ErrConfig
	ErrShape        = core.ErrShape
	ErrIDOverflow   = core.ErrIDOverflow
	ErrState        = core.ErrState
	ErrFinalized    = core.ErrFinalized
	ErrFrozen       = core.ErrFrozen
	ErrInconsistent = core.ErrInconsistent
	ErrInput        = core.ErrInput
)
