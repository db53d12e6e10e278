package service

import (
	"errors"
	"fmt"

	"github.com/ecoroute/crm-api/internal/policy"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAccessDenied is returned when a record exists but the principal may not see it.
	// It is never downgraded to ErrNotFound.
	ErrAccessDenied = policy.ErrAccessDenied

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

// AggregationError reports which part of a dashboard report failed.
// Callers see a generic message; Part and Err are for logs.
type AggregationError struct {
	Part string
	Err  error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("dashboard aggregation failed in %s: %v", e.Part, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}
