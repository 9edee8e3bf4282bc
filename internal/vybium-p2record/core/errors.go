package core

import "fmt"

// ErrorCode classifies a record construction error
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota

	// ErrInvalidConfig is a setup error, e.g. a digest larger than the permutation width
	ErrInvalidConfig

	// ErrShapeMismatch is raised by fixed-width conversions given the wrong number of elements
	ErrShapeMismatch

	// ErrIdentifierOverflow is raised when a hash or absorb id does not fit the packed identifier
	ErrIdentifierOverflow

	// ErrInvalidState is raised for a sponge state whose cursor is out of range
	ErrInvalidState

	// ErrSessionFinalized is raised when a finalized hash session is used again
	ErrSessionFinalized

	// ErrRecordFrozen is raised when appending to a frozen execution record
	ErrRecordFrozen

	// ErrInconsistentRecord is raised by record validation
	ErrInconsistentRecord

	// ErrInvalidInput represents an invalid input error
	ErrInvalidInput
)

// String returns a short name for the code
func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidConfig:
		return "invalid-config"
	case ErrShapeMismatch:
		return "shape-mismatch"
	case ErrIdentifierOverflow:
		return "identifier-overflow"
	case ErrInvalidState:
		return "invalid-state"
	case ErrSessionFinalized:
		return "session-finalized"
	case ErrRecordFrozen:
		return "record-frozen"
	case ErrInconsistentRecord:
		return "inconsistent-record"
	case ErrInvalidInput:
		return "invalid-input"
	default:
		return "unknown"
	}
}

// RecordError is the error type returned by every package of the record builder
type RecordError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message
func (e *RecordError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("p2record error [%s]: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("p2record error [%s]: %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *RecordError) Unwrap() error {
	return e.Cause
}

// Is matches any RecordError carrying the same code
func (e *RecordError) Is(target error) bool {
	t, ok := target.(*RecordError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Errorf builds a RecordError with a formatted message
func Errorf(code ErrorCode, format string, args ...any) *RecordError {
	return &RecordError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is comparisons.
var (
	ErrConfig       = &RecordError{Code: ErrInvalidConfig}
	ErrShape        = &RecordError{Code: ErrShapeMismatch}
	ErrIDOverflow   = &RecordError{Code: ErrIdentifierOverflow}
	ErrState        = &RecordError{Code: ErrInvalidState}
	ErrFinalized    = &RecordError{Code: ErrSessionFinalized}
	ErrFrozen       = &RecordError{Code: ErrRecordFrozen}
	ErrInconsistent = &RecordError{Code: ErrInconsistentRecord}
	ErrInput        = &RecordError{Code: ErrInvalidInput}
)
