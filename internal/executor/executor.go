// Package executor defines the contract for running validated SQL and
// the shared result model.
package executor

import "context"

type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	// Truncated is set when the row cap cut off the result.
	Truncated bool `json:"truncated,omitempty"`
}

// Runner executes a single read-only statement. Callers must only pass
// SQL that already passed validation.
type Runner interface {
	Run(ctx context.Context, sqlText string) (Result, error)
}
