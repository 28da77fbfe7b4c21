package domain

import (
	"errors"
	"fmt"
)

// ErrStaleEvent marks an event whose timestamp does not advance the stored
// state. Informational, not a failure: redelivery and reordering are
// expected from an at-least-once transport.
var ErrStaleEvent = errors.New("stale event ignored")

// ValidationError is a permanently invalid input record. The record is
// skipped; there is nothing to retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s: %s", e.Field, e.Reason)
}

// ConfigurationError is fatal at startup only.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ProcessingError wraps an unexpected per-event failure. The batch
// continues; only the one event is lost.
type ProcessingError struct {
	Key   Key
	Cause error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("processing %s: %v", e.Key, e.Cause)
}

func (e ProcessingError) Unwrap() error {
	return e.Cause
}
