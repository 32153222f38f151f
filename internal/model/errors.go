package model

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable is wrapped by every event log read or write failure.
// A missing log is not a failure.
var ErrStorageUnavailable = errors.New("event log storage unavailable")

// ValidationError reports malformed biometric input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnknownFoodError means a label reached calorie lookup without being in the catalog.
// The detection filter only emits catalog labels, so this is a bug, not user error.
type UnknownFoodError struct {
	Label string
}

func (e *UnknownFoodError) Error() string {
	return fmt.Sprintf("unknown food label %q", e.Label)
}
