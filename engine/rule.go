package engine

import "time"

// =============================================================================
// RULE - Tagged variant over the two achievement rule kinds
// =============================================================================

// RuleKind discriminates the two rule variants. The kind is fixed at
// catalog parse time so the evaluator can switch exhaustively instead of
// branching on field presence.
type RuleKind string

const (
	// KindStreak awards for N consecutive qualifying days.
	KindStreak RuleKind = "streak"
	// KindThreshold awards for N qualifying days within a window.
	KindThreshold RuleKind = "threshold"
)

// TimeWindow determines whether a rule's award is one-time or repeatable
// per period.
type TimeWindow string

const (
	// WindowTotal: one award ever (empty period tag).
	WindowTotal TimeWindow = "total"
	// WindowMonth: one award per calendar month ("YYYY-MM" tag).
	WindowMonth TimeWindow = "month"
	// WindowWeek: one award per Monday-anchored week ("YYYY-MM-DD" tag).
	// Only threshold rules use weekly windows.
	WindowWeek TimeWindow = "week"
)

// Rule is one declarative achievement rule from the catalog.
//
// Exactly one variant's fields are populated, as declared by Kind:
//   - KindStreak:    ConsecutiveDays (> 0), optional IgnoreWeekdays
//   - KindThreshold: RequiredCount (> 0)
//
// A malformed rule (zero requirement for its kind) is treated as never-met
// by the evaluator rather than as an error; catalog validation rejects such
// rules at authoring time.
type Rule struct {
	ID       RuleID
	Kind     RuleKind
	Title    string
	XPPoints int

	// ValidStatuses is the set of status keys that qualify for this rule.
	// An empty set qualifies every recorded status.
	ValidStatuses map[StatusKey]bool

	// Streak variant.
	ConsecutiveDays int
	// IgnoreWeekdays lists weekdays a streak may skip over without breaking,
	// e.g. weekends for a workday-only streak.
	IgnoreWeekdays map[time.Weekday]bool

	// Threshold variant.
	RequiredCount int

	// Window scopes the rule to a repeating period, or "total" for one-time.
	Window TimeWindow
}

// MatchesStatus reports whether a status key qualifies for this rule.
func (r Rule) MatchesStatus(k StatusKey) bool {
	if len(r.ValidStatuses) == 0 {
		return true
	}
	return r.ValidStatuses[k]
}

// Repeatable returns true when the rule grants one award per period rather
// than a single lifetime award.
func (r Rule) Repeatable() bool { return r.Window == WindowMonth || r.Window == WindowWeek }

// Validate checks that the rule is well-formed. The evaluator does not
// require this (it degrades malformed rules to never-met); the catalog calls
// it so authoring mistakes are rejected instead of silently absorbed.
func (r Rule) Validate() error {
	if r.ID == "" {
		return &RuleValidationError{RuleID: r.ID, Reason: "missing rule id"}
	}
	switch r.Kind {
	case KindStreak:
		if r.ConsecutiveDays <= 0 {
			return &RuleValidationError{RuleID: r.ID, Reason: "streak rule requires consecutive days > 0"}
		}
		if r.Window == WindowWeek {
			return &RuleValidationError{RuleID: r.ID, Reason: "streak rules support total or month windows only"}
		}
		for wd := range r.IgnoreWeekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return &RuleValidationError{RuleID: r.ID, Reason: "ignore weekday out of range 0-6"}
			}
		}
	case KindThreshold:
		if r.RequiredCount <= 0 {
			return &RuleValidationError{RuleID: r.ID, Reason: "threshold rule requires count > 0"}
		}
	default:
		return &RuleValidationError{RuleID: r.ID, Reason: "unknown rule kind"}
	}
	switch r.Window {
	case WindowTotal, WindowMonth, WindowWeek:
	default:
		return &RuleValidationError{RuleID: r.ID, Reason: "unknown time window"}
	}
	return nil
}
