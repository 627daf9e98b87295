/*
evaluate.go - The pure rule evaluator

PURPOSE:
  Decides, for one rule and one affiliate's status log, whether the rule is
  currently met and which period tag the resulting award would carry. This
  is the single source of streak and threshold math for every call site;
  adapters inject whichever status log backs their context.

CONTRACT:
  Evaluate(rule, entries, referenceDate) -> Evaluation{Meets, PeriodTag}

  entries must belong to a single affiliate, be filtered to the rule's
  valid status keys (FilterByStatus), and be sorted ascending by date.
  Duplicates are impossible by construction: one entry per day.

  The evaluator is total and side-effect-free. Malformed rules (zero
  requirement) evaluate to never-met instead of raising an error.

STREAK SEMANTICS:
  Consecutive runs are counted in one chronological walk. When a rule
  ignores weekdays, every calendar day strictly between two entries whose
  weekday is ignored shrinks the gap by one, letting a streak skip over
  e.g. weekends without breaking. A month-window streak is evaluated only
  against entries inside the reference month: it asks "was there a
  qualifying streak within this month", never across month boundaries.

THRESHOLD SEMANTICS:
  Count qualifying entries inside the window: lifetime for "total", the
  reference calendar month for "month", and the Monday-Sunday week of the
  reference date for "week".

SEE ALSO:
  - rule.go: Rule variants and validation
  - reconcile.go: Consumes evaluations to diff against the ledger
*/
package engine

import "time"

// FilterByStatus returns the entries whose status key qualifies for the
// rule, preserving order.
func FilterByStatus(entries []StatusEntry, rule Rule) []StatusEntry {
	if len(rule.ValidStatuses) == 0 {
		return entries
	}
	var out []StatusEntry
	for _, e := range entries {
		if rule.MatchesStatus(e.Status) {
			out = append(out, e)
		}
	}
	return out
}

// Evaluate applies one rule to an affiliate's filtered, date-sorted status
// entries at the given reference date.
func Evaluate(rule Rule, entries []StatusEntry, ref CalendarDate) Evaluation {
	ev := Evaluation{Rule: rule, PeriodTag: PeriodTagFor(rule.Window, ref)}

	switch rule.Kind {
	case KindStreak:
		ev.Meets = streakMet(rule, entries, ref)
	case KindThreshold:
		ev.Meets = thresholdMet(rule, entries, ref)
	}
	// Unknown kinds fall through as never-met: the evaluator stays total.
	return ev
}

// EvaluateAll evaluates every rule against the full (unfiltered) status log
// of one affiliate. Entries must be sorted ascending by date.
func EvaluateAll(rules []Rule, entries []StatusEntry, ref CalendarDate) []Evaluation {
	evals := make([]Evaluation, 0, len(rules))
	for _, r := range rules {
		evals = append(evals, Evaluate(r, FilterByStatus(entries, r), ref))
	}
	return evals
}

// PeriodTagFor returns the award period tag for a window at a reference date:
// "" for total, "YYYY-MM" for month, and the week's Monday "YYYY-MM-DD" for week.
func PeriodTagFor(window TimeWindow, ref CalendarDate) string {
	switch window {
	case WindowMonth:
		return ref.MonthTag()
	case WindowWeek:
		return MondayOf(ref).String()
	default:
		return ""
	}
}

// =============================================================================
// STREAK EVALUATION
// =============================================================================

func streakMet(rule Rule, entries []StatusEntry, ref CalendarDate) bool {
	if rule.ConsecutiveDays <= 0 {
		return false
	}
	if rule.Window == WindowMonth {
		entries = filterPeriod(entries, MonthPeriod(ref))
	}

	run := 0
	var prev CalendarDate
	for _, e := range entries {
		if run == 0 {
			// First entry (no predecessor) always starts a run of 1.
			run = 1
		} else {
			gap := DaysBetween(prev, e.Date)
			gap -= ignoredDaysBetween(prev, e.Date, rule.IgnoreWeekdays)
			if gap == 1 {
				run++
			} else {
				run = 1
			}
		}
		prev = e.Date

		// Met from this date onward.
		if run >= rule.ConsecutiveDays {
			return true
		}
	}
	return false
}

// ignoredDaysBetween counts the calendar days strictly between from and to
// whose weekday is in the ignore set. Since at most gap-1 days lie strictly
// between two entries, the adjusted gap never drops below 1.
func ignoredDaysBetween(from, to CalendarDate, ignore map[time.Weekday]bool) int {
	if len(ignore) == 0 {
		return 0
	}
	n := 0
	for d := from.AddDays(1); d.Before(to); d = d.AddDays(1) {
		if ignore[d.Weekday()] {
			n++
		}
	}
	return n
}

// =============================================================================
// THRESHOLD EVALUATION
// =============================================================================

func thresholdMet(rule Rule, entries []StatusEntry, ref CalendarDate) bool {
	if rule.RequiredCount <= 0 {
		return false
	}
	switch rule.Window {
	case WindowMonth:
		entries = filterPeriod(entries, MonthPeriod(ref))
	case WindowWeek:
		entries = filterPeriod(entries, WeekPeriod(ref))
	}
	return len(entries) >= rule.RequiredCount
}

func filterPeriod(entries []StatusEntry, p Period) []StatusEntry {
	var out []StatusEntry
	for _, e := range entries {
		if p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}
