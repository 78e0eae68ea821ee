package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports one malformed or out-of-range input field.
type ValidationError struct {
	Field  string // e.g. "orders[3].price"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidationErrors groups every violation found in one input set.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual errors to errors.As.
func (es ValidationErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// UpstreamError wraps a failure of an external collaborator (market data or
// advisory). It is a hard stop: no partial result is produced.
type UpstreamError struct {
	Source string // "history", "orders", "advisor"
	Key    MarketKey
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s for %s: %v", e.Source, e.Key, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
