/*
errors.go - Centralized error types for the achievement engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Adapters (sqlite, memory) and the API layer wrap these with context.

ERROR CATEGORIES:
  1. Store read errors  - abort the evaluation pass, no writes, no event
  2. Store write errors - abort remaining writes; applied writes stand
  3. Validation errors  - rejected at catalog authoring time

  Malformed rules are NOT an error at evaluation time: the evaluator is
  total and treats them as never-met.

USAGE:
  if errors.Is(err, engine.ErrStoreWrite) {
      // log and wait for the next status mutation to re-trigger a pass
  }

SEE ALSO:
  - reconcile.go: Uses these errors during the evaluation pass
  - store.go: Interface contracts referencing these errors
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStoreRead wraps a failed status log or ledger read. The evaluation
	// pass aborts with no award changes and no notification.
	ErrStoreRead = errors.New("store read failed")

	// ErrStoreWrite wraps a failed award insert or delete. Remaining writes
	// in the pass abort; writes already applied stand (each add/remove is
	// independently idempotent and re-derived on the next pass).
	ErrStoreWrite = errors.New("store write failed")

	// ErrDuplicateAward is returned when an insert collides with the
	// (affiliate, rule, period tag) uniqueness constraint. Expected under
	// redundant concurrent passes.
	ErrDuplicateAward = errors.New("duplicate award for idempotency key")

	// ErrAffiliateNotFound is returned when a referenced affiliate doesn't exist.
	ErrAffiliateNotFound = errors.New("affiliate not found")

	// ErrRuleNotFound is returned when a referenced rule doesn't exist.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrInvalidRule is the base error for catalog validation failures.
	ErrInvalidRule = errors.New("invalid achievement rule")

	// ErrInvalidDate is returned for unparseable calendar dates.
	ErrInvalidDate = errors.New("invalid date: use YYYY-MM-DD")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleValidationError reports why a catalog rule definition was rejected.
type RuleValidationError struct {
	RuleID RuleID
	Reason string
}

func (e *RuleValidationError) Error() string {
	return fmt.Sprintf("invalid rule %q: %s", e.RuleID, e.Reason)
}

func (e *RuleValidationError) Unwrap() error { return ErrInvalidRule }

// StoreError reports a failed store operation with its context.
type StoreError struct {
	Op          string // e.g. "statuses", "awards", "insert", "delete"
	AffiliateID AffiliateID
	Err         error
	write       bool
}

// NewReadError wraps a failed store read.
func NewReadError(op string, id AffiliateID, err error) *StoreError {
	return &StoreError{Op: op, AffiliateID: id, Err: err}
}

// NewWriteError wraps a failed store write.
func NewWriteError(op string, id AffiliateID, err error) *StoreError {
	return &StoreError{Op: op, AffiliateID: id, Err: err, write: true}
}

func (e *StoreError) Error() string {
	kind := ErrStoreRead
	if e.write {
		kind = ErrStoreWrite
	}
	return fmt.Sprintf("%v: %s for %s: %v", kind, e.Op, e.AffiliateID, e.Err)
}

func (e *StoreError) Unwrap() error {
	if e.write {
		return ErrStoreWrite
	}
	return ErrStoreRead
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrDuplicateAward)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAffiliateNotFound) ||
		errors.Is(err, ErrRuleNotFound)
}
