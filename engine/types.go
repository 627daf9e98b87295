/*
Package engine provides the core achievement evaluation engine.

PURPOSE:
  This package contains the domain types and algorithms for deciding which
  achievements an affiliate currently holds. Given a sparse, append-only log
  of daily performance statuses and a catalog of declarative rules, it
  computes which awards are earned, diffs that against the persisted award
  ledger, and applies additions and removals idempotently.

KEY CONCEPTS IN THIS FILE (types.go):
  - StatusEntry: One recorded status for one affiliate on one calendar day
  - AwardRecord: A granted achievement instance held in the award ledger
  - Evaluation:  The evaluator's verdict for one rule at a reference date
  - Delta:       The reconciler's add/remove diff against the ledger

DESIGN PRINCIPLES:
  1. Purity: evaluation is a pure function over the status log
  2. Idempotency: (affiliate, rule, period tag) uniquely identifies an award
  3. Derived totals: point totals are always recomputed from the ledger
  4. Type Safety: Strong typing for IDs prevents mixing affiliate/rule IDs

SEE ALSO:
  - rule.go: Rule definitions (streak and threshold variants)
  - evaluate.go: The pure rule evaluator
  - reconcile.go: Ledger diffing and the evaluation pass
  - store.go: Persistence interfaces
*/
package engine

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AffiliateID string
type RuleID string
type AwardID string

// StatusKey classifies a day's recorded outcome, e.g. "completed", "skipped".
type StatusKey string

// =============================================================================
// STATUS ENTRY - One recorded day in the status log
// =============================================================================

// StatusEntry is one recorded status for one affiliate on one calendar day.
// At most one entry exists per (affiliate, date); a missing entry means
// "no status recorded", which is distinct from any explicit status value.
type StatusEntry struct {
	AffiliateID AffiliateID
	Date        CalendarDate
	Status      StatusKey
}

// =============================================================================
// AWARD RECORD - A granted achievement instance
// =============================================================================

// AwardRecord is one granted achievement held in the award ledger.
//
// PeriodTag distinguishes repeatable award instances of the same rule:
//   - ""           for total-window rules (at most one award ever)
//   - "YYYY-MM"    for month-window rules (one per calendar month)
//   - "YYYY-MM-DD" (a Monday) for week-window rules (one per week)
//
// INVARIANT: at most one AwardRecord exists per (AffiliateID, RuleID,
// PeriodTag). That tuple is the idempotency key for the whole engine; the
// persistence layer enforces it with a uniqueness constraint.
type AwardRecord struct {
	ID          AwardID // issued by the ledger on insert
	AffiliateID AffiliateID
	RuleID      RuleID
	PeriodTag   string
	Points      int
	AwardedAt   time.Time
}

// Key returns the idempotency key for this record within one affiliate.
func (a AwardRecord) Key() string { return AwardKey(a.RuleID, a.PeriodTag) }

// AwardKey builds the lookup key shared by evaluations and ledger records.
func AwardKey(ruleID RuleID, periodTag string) string {
	return string(ruleID) + "|" + periodTag
}

// =============================================================================
// EVALUATION - The evaluator's verdict for one rule
// =============================================================================

// Evaluation is the result of evaluating one rule for one affiliate.
type Evaluation struct {
	Rule      Rule
	Meets     bool
	PeriodTag string
}

// Key returns the award lookup key this evaluation corresponds to.
func (e Evaluation) Key() string { return AwardKey(e.Rule.ID, e.PeriodTag) }

// =============================================================================
// DELTA - Reconciliation output
// =============================================================================

// Delta is the reconciler's diff between fresh evaluations and the ledger.
// Awards are never mutated in place: only inserted or deleted.
type Delta struct {
	ToAdd    []AwardRecord
	ToRemove []AwardRecord
}

// Empty returns true when the diff requires no ledger changes.
func (d Delta) Empty() bool { return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 }

// =============================================================================
// POINTS - Derived, never stored independently
// =============================================================================

// TotalPoints sums the points of the given award records. Point totals are
// always derived from the ledger's authoritative contents at read time so
// they cannot drift after a revocation.
func TotalPoints(awards []AwardRecord) int {
	total := 0
	for _, a := range awards {
		total += a.Points
	}
	return total
}
