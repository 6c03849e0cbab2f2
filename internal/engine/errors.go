package engine

import (
	"errors"
	"fmt"
)

// ErrSessionBusy rejects a second in-flight query for the same session.
var ErrSessionBusy = errors.New("session has a query in flight")

// ErrNoResult marks an export request for a session without a
// successful query yet.
var ErrNoResult = errors.New("session has no result to export")

// ContextError marks invalid conversational input or state.
type ContextError struct {
	Reason string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("context error: %s", e.Reason)
}

// GenerationError marks a failure to produce SQL from the model,
// including extraction failures and retry exhaustion.
type GenerationError struct {
	Reason   string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("generation error after %d attempts: %s", e.Attempts, e.Reason)
	}
	return fmt.Sprintf("generation error: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ValidationError marks SQL rejected before execution. Reason is a
// stable code; Detail carries the offending token or identifier.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("validation error: %s (%s)", e.Reason, e.Detail)
	}
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// ExecutionError marks a failed execution of validated SQL. The message
// is sanitized; raw database errors stay in the logs.
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error: %s", e.Reason)
}
