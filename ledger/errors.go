/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these to HTTP status codes in a single switch.

ERROR CATEGORIES:
  1. Validation errors - malformed input, rejected before any computation
  2. Not-found errors - referenced party does not resolve
  3. Conflict errors - duplicate parties, double payment

USAGE:
  if errors.Is(err, ledger.ErrNotFound) { ... }

SEE ALSO:
  - engine.go: Produces these errors
  - api/handlers.go: Maps them to HTTP responses
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the base for malformed-input rejections. No partial
	// state is ever written for a validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced customer/agent/vendor id
	// does not resolve to an entity. Computation aborts, no mutation.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateParty is returned by duplicate-checked party creation.
	ErrDuplicateParty = errors.New("duplicate party")

	// ErrAlreadyPaid is returned when confirming payment on a document
	// that is already paid.
	ErrAlreadyPaid = errors.New("already paid")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies which entity failed to resolve.
type NotFoundError struct {
	Kind string // "customer", "agent", "vendor", "invoice", "ticket"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicatePartyError reports which field collided at creation time.
type DuplicatePartyError struct {
	Kind  string
	Field string
	Value string
}

func (e *DuplicatePartyError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Kind, e.Field, e.Value)
}

func (e *DuplicatePartyError) Unwrap() error { return ErrDuplicateParty }

// NegativeAmountError reports a monetary input below zero.
type NegativeAmountError struct {
	Field string
	Value decimal.Decimal
}

func (e *NegativeAmountError) Error() string {
	return fmt.Sprintf("%s must be non-negative, got %s", e.Field, e.Value)
}

func (e *NegativeAmountError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAlreadyPaid)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true for duplicate/conflict conditions.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateParty)
}
