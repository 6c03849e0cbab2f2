// Package llm defines the completion client contract the engine
// generates SQL through, plus the transient-error classification the
// retry policy relies on.
package llm

import (
	"context"
	"errors"
)

type Request struct {
	System string
	User   string
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	// ErrRateLimited marks provider throttling (HTTP 429).
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrTimeout marks a completion that exceeded its deadline.
	ErrTimeout = errors.New("llm: request timed out")
	// ErrUnavailable marks provider-side failures (HTTP 5xx).
	ErrUnavailable = errors.New("llm: provider unavailable")
	// ErrRequestRejected marks auth or malformed-request failures that
	// will not succeed on retry.
	ErrRequestRejected = errors.New("llm: request rejected")
)

// IsTransient reports whether a completion error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}
