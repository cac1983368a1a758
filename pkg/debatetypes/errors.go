// Package debatetypes defines the error taxonomy of the debate engine.
// Fatal format errors, busy conflicts, and generation failures are distinct
// kinds so callers can choose between blocking and advisory treatment.
// Repairable inconsistencies are not errors; they surface as Diagnostics.
package debatetypes

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a new generation or load is requested while
// another operation is in flight on the same session. The operation is
// rejected immediately and no state is mutated.
var ErrBusy = errors.New("session busy: another operation is in flight")

// FormatError is a fatal format error: the storage document is not parseable
// as the expected shape at all. No partial state is produced.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid state document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid state document: %s", e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFormatError reports whether err is (or wraps) a fatal format error.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// GenerationError is a recoverable generation failure: the external service
// errored mid-turn. Nothing was committed for the failing turn; already
// committed turns are retained. Retry is a caller-initiated re-invocation.
type GenerationError struct {
	TurnIndex int // conversation index of the turn that failed
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at turn %d: %v", e.TurnIndex, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
