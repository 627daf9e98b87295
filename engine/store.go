/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the narrow interfaces between the engine and its external
  collaborators: the status log, the award ledger, and the change notifier.
  The engine never touches a database directly; it is injected with
  whichever adapter fits the call site (SQLite in production, memory for
  the in-process call site and tests). This is what eliminates the
  historically duplicated streak math across call sites.

KEY INTERFACES:
  StatusLog:   (affiliate, date) -> status key, one entry per day at most
  AwardLedger: current granted awards; bulk insert / bulk delete by id
  Notifier:    "awards changed" sink fired after a successful non-empty apply

LEDGER CONTRACT:
  Awards are never mutated in place - only inserted or deleted. The ledger
  issues its own record ids on insert; deletes are keyed by those ids, not
  by the idempotency tuple. Implementations MUST treat (affiliate, rule,
  period tag) as a uniqueness constraint and ignore duplicate inserts, so a
  racing redundant evaluation degenerates to a no-op rather than a
  duplicate award.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite adapter
  - engine/store: in-memory adapter for the second call site and tests

SEE ALSO:
  - reconcile.go: The evaluation pass driving these interfaces
*/
package engine

import "context"

// =============================================================================
// STATUS LOG - External store of daily statuses
// =============================================================================

// StatusLog stores one optional status per (affiliate, calendar day).
type StatusLog interface {
	// Entries returns all recorded statuses for an affiliate, sorted
	// ascending by date.
	Entries(ctx context.Context, id AffiliateID) ([]StatusEntry, error)

	// SetEntry records or overwrites the status for one day.
	SetEntry(ctx context.Context, id AffiliateID, date CalendarDate, status StatusKey) error

	// ClearEntry removes the entry for one day. Clearing removes the row
	// rather than nulling it; a missing entry means "no status recorded".
	ClearEntry(ctx context.Context, id AffiliateID, date CalendarDate) error
}

// =============================================================================
// AWARD LEDGER - Authoritative persisted set of granted awards
// =============================================================================

// AwardLedger stores the currently granted awards per affiliate.
type AwardLedger interface {
	// Awards returns all current award records for an affiliate.
	Awards(ctx context.Context, id AffiliateID) ([]AwardRecord, error)

	// InsertAwards persists new award records, issuing ledger ids.
	// Records colliding with the (affiliate, rule, period tag) uniqueness
	// constraint are skipped; the returned slice holds only the records
	// actually inserted, with their issued ids.
	InsertAwards(ctx context.Context, records []AwardRecord) ([]AwardRecord, error)

	// DeleteAwards removes award records by ledger id. Unknown ids are
	// ignored (the record may have been revoked by a concurrent pass).
	DeleteAwards(ctx context.Context, ids []AwardID) error
}

// =============================================================================
// CHANGE NOTIFIER - External sink for awards-changed events
// =============================================================================

// Notifier consumes the single abstract event the engine produces. It fires
// after a successful reconciliation with a non-empty diff, and never after
// a failed persistence call.
type Notifier interface {
	AwardsChanged(id AffiliateID)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(id AffiliateID)

func (f NotifierFunc) AwardsChanged(id AffiliateID) { f(id) }

// RuleSource yields the active achievement catalog. The returned slice is
// treated as immutable for the duration of one evaluation pass.
type RuleSource interface {
	ActiveRules() []Rule
}

// StaticRules is a fixed in-memory catalog.
type StaticRules []Rule

func (s StaticRules) ActiveRules() []Rule { return s }
