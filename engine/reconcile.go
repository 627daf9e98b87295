/*
reconcile.go - Award reconciliation and the evaluation pass

PURPOSE:
  Diffs the evaluator's output against the award ledger's current contents
  and applies the result. Diff is pure; Service.Recheck is the full pass
  triggered by a status mutation:

    read statuses -> evaluate catalog -> diff against ledger
      -> bulk insert additions -> bulk delete removals -> notify

CRITICAL INVARIANTS:
  1. IDEMPOTENT: re-running with unchanged inputs yields an empty diff
  2. INSERT/DELETE ONLY: awards are never edited in place
  3. SINGLE EVENT: one AwardsChanged per successful non-empty apply
  4. NO PARTIAL STATE: a failed write aborts the pass; nothing in-memory
     survives it - the next trigger recomputes from scratch

REMOVAL SCOPE:
  An existing award is removed only when this pass evaluated its exact
  (rule, period tag) key and found it unmet. Awards earned in earlier
  periods, and awards for rules since deleted from the catalog, carry no
  matching evaluation and are left standing.

SEE ALSO:
  - evaluate.go: Produces the evaluations consumed here
  - store.go: The ledger and notifier contracts
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// DIFF - Pure reconciliation
// =============================================================================

// Diff computes the award changes implied by fresh evaluations.
//
// For every evaluation that is met with no ledger record under its key, an
// addition is produced. For every ledger record whose key was evaluated and
// found unmet, a removal is produced.
func Diff(id AffiliateID, evals []Evaluation, current []AwardRecord, now time.Time) Delta {
	existing := make(map[string]AwardRecord, len(current))
	for _, a := range current {
		existing[a.Key()] = a
	}
	verdicts := make(map[string]bool, len(evals))

	var delta Delta
	for _, ev := range evals {
		verdicts[ev.Key()] = ev.Meets
		if !ev.Meets {
			continue
		}
		if _, ok := existing[ev.Key()]; ok {
			continue
		}
		delta.ToAdd = append(delta.ToAdd, AwardRecord{
			AffiliateID: id,
			RuleID:      ev.Rule.ID,
			PeriodTag:   ev.PeriodTag,
			Points:      ev.Rule.XPPoints,
			AwardedAt:   now,
		})
	}

	for _, a := range current {
		if met, evaluated := verdicts[a.Key()]; evaluated && !met {
			delta.ToRemove = append(delta.ToRemove, a)
		}
	}
	return delta
}

// =============================================================================
// SERVICE - One evaluation pass per status mutation
// =============================================================================

// Service wires the evaluator and reconciler to a status log, an award
// ledger, and a rule source. One Service instance serves one call site;
// both the database-backed and the in-memory call sites share this code.
type Service struct {
	Statuses StatusLog
	Ledger   AwardLedger
	Rules    RuleSource
	Notifier Notifier // optional
	Cache    *Cache   // optional, invalidated before notification
	Now      func() time.Time
}

// NewService creates a service over the given stores and catalog.
func NewService(statuses StatusLog, ledger AwardLedger, rules RuleSource) *Service {
	return &Service{Statuses: statuses, Ledger: ledger, Rules: rules, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// MarkDay records a status for one day and runs an evaluation pass.
func (s *Service) MarkDay(ctx context.Context, id AffiliateID, date CalendarDate, status StatusKey) (Delta, error) {
	if err := s.Statuses.SetEntry(ctx, id, date, status); err != nil {
		return Delta{}, NewWriteError("set status", id, err)
	}
	return s.Recheck(ctx, id, DateOf(s.now()))
}

// ClearDay removes the status for one day and runs an evaluation pass.
func (s *Service) ClearDay(ctx context.Context, id AffiliateID, date CalendarDate) (Delta, error) {
	if err := s.Statuses.ClearEntry(ctx, id, date); err != nil {
		return Delta{}, NewWriteError("clear status", id, err)
	}
	return s.Recheck(ctx, id, DateOf(s.now()))
}

// Recheck runs one full evaluation pass for an affiliate at the given
// reference date and applies the resulting diff.
//
// A failed read aborts the pass with no award changes and no notification.
// A failed write aborts the remaining writes; writes already applied stand,
// since each is independently idempotent and re-derived on the next pass.
func (s *Service) Recheck(ctx context.Context, id AffiliateID, ref CalendarDate) (Delta, error) {
	entries, err := s.Statuses.Entries(ctx, id)
	if err != nil {
		return Delta{}, NewReadError("statuses", id, err)
	}
	current, err := s.Ledger.Awards(ctx, id)
	if err != nil {
		return Delta{}, NewReadError("awards", id, err)
	}

	evals := EvaluateAll(s.Rules.ActiveRules(), entries, ref)
	delta := Diff(id, evals, current, s.now())
	if delta.Empty() {
		return delta, nil
	}

	if len(delta.ToAdd) > 0 {
		inserted, err := s.Ledger.InsertAwards(ctx, delta.ToAdd)
		if err != nil {
			return Delta{}, NewWriteError("insert awards", id, err)
		}
		delta.ToAdd = inserted
	}
	if len(delta.ToRemove) > 0 {
		ids := make([]AwardID, len(delta.ToRemove))
		for i, a := range delta.ToRemove {
			ids[i] = a.ID
		}
		if err := s.Ledger.DeleteAwards(ctx, ids); err != nil {
			return Delta{}, NewWriteError("delete awards", id, err)
		}
	}

	if s.Cache != nil {
		s.Cache.Invalidate(id)
	}
	if s.Notifier != nil && !delta.Empty() {
		s.Notifier.AwardsChanged(id)
	}
	return delta, nil
}

// TotalPoints returns the affiliate's current point total, computed from
// the ledger's authoritative contents.
func (s *Service) TotalPoints(ctx context.Context, id AffiliateID) (int, error) {
	if s.Cache != nil {
		return s.Cache.TotalPoints(ctx, id)
	}
	awards, err := s.Ledger.Awards(ctx, id)
	if err != nil {
		return 0, NewReadError("awards", id, err)
	}
	return TotalPoints(awards), nil
}
