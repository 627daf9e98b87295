/*
Package catalog provides JSON to Go achievement rule conversion.

PURPOSE:
  Converts JSON rule definitions into engine.Rule values. This enables
  catalog configuration without code changes - administrators define rules
  in JSON through the admin panel, and the catalog builds the proper tagged
  variants for the evaluator.

WHY JSON?
  - Non-developers can author rules
  - Easy integration with the admin UI
  - Database storage of rule configs (one JSON row per rule)

JSON SCHEMA:
  {
    "id": "streak-5-workdays",
    "title": "Five-Day Streak",
    "xp_points": 50,
    "valid_statuses": ["completed"],
    "streak_days": 5,
    "ignore_weekdays": [0, 6],
    "time_window": "month"
  }

  Exactly one of "streak_days" and "count_threshold" must be present and
  positive; its presence selects the rule kind. Historically a rule with
  neither was silently never-met at evaluation time - the catalog now
  rejects such definitions at authoring time instead, while the evaluator
  stays total for anything already stored.

DEFAULTS:
  - time_window defaults to "total"
  - empty valid_statuses qualifies every recorded status

SEE ALSO:
  - engine/rule.go: The tagged Rule variant and validation
  - store/sqlite: Persists rule config rows
*/
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/warp/achievement-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of an achievement rule.
type RuleJSON struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	XPPoints      int      `json:"xp_points"`
	ValidStatuses []string `json:"valid_statuses,omitempty"`

	// Streak variant.
	StreakDays     int   `json:"streak_days,omitempty"`
	IgnoreWeekdays []int `json:"ignore_weekdays,omitempty"` // 0=Sunday .. 6=Saturday

	// Threshold variant.
	CountThreshold int `json:"count_threshold,omitempty"`

	TimeWindow string `json:"time_window,omitempty"` // total (default), month, week
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses a single JSON rule definition.
func Parse(jsonStr string) (engine.Rule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return engine.Rule{}, fmt.Errorf("parse rule JSON: %w", err)
	}
	return FromJSON(rj)
}

// ParseAll parses a JSON array of rule definitions, preserving order.
func ParseAll(data []byte) ([]engine.Rule, error) {
	var rjs []RuleJSON
	if err := json.Unmarshal(data, &rjs); err != nil {
		return nil, fmt.Errorf("parse catalog JSON: %w", err)
	}
	rules := make([]engine.Rule, 0, len(rjs))
	for _, rj := range rjs {
		rule, err := FromJSON(rj)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// FromJSON converts a RuleJSON into a validated engine.Rule. The rule kind
// is derived from which requirement field is present, then fixed as an
// explicit tagged variant.
func FromJSON(rj RuleJSON) (engine.Rule, error) {
	id := engine.RuleID(rj.ID)

	hasStreak := rj.StreakDays > 0
	hasCount := rj.CountThreshold > 0
	switch {
	case hasStreak && hasCount:
		return engine.Rule{}, &engine.RuleValidationError{RuleID: id, Reason: "declares both streak_days and count_threshold"}
	case !hasStreak && !hasCount:
		return engine.Rule{}, &engine.RuleValidationError{RuleID: id, Reason: "declares neither streak_days nor count_threshold"}
	}

	rule := engine.Rule{
		ID:       id,
		Title:    rj.Title,
		XPPoints: rj.XPPoints,
		Window:   engine.WindowTotal,
	}

	if len(rj.ValidStatuses) > 0 {
		rule.ValidStatuses = make(map[engine.StatusKey]bool, len(rj.ValidStatuses))
		for _, s := range rj.ValidStatuses {
			rule.ValidStatuses[engine.StatusKey(s)] = true
		}
	}

	if rj.TimeWindow != "" {
		switch engine.TimeWindow(rj.TimeWindow) {
		case engine.WindowTotal, engine.WindowMonth, engine.WindowWeek:
			rule.Window = engine.TimeWindow(rj.TimeWindow)
		default:
			return engine.Rule{}, &engine.RuleValidationError{RuleID: id, Reason: fmt.Sprintf("unknown time_window %q", rj.TimeWindow)}
		}
	}

	if hasStreak {
		rule.Kind = engine.KindStreak
		rule.ConsecutiveDays = rj.StreakDays
		if len(rj.IgnoreWeekdays) > 0 {
			rule.IgnoreWeekdays = make(map[time.Weekday]bool, len(rj.IgnoreWeekdays))
			for _, wd := range rj.IgnoreWeekdays {
				if wd < 0 || wd > 6 {
					return engine.Rule{}, &engine.RuleValidationError{RuleID: id, Reason: fmt.Sprintf("ignore_weekdays value %d out of range 0-6", wd)}
				}
				rule.IgnoreWeekdays[time.Weekday(wd)] = true
			}
		}
	} else {
		rule.Kind = engine.KindThreshold
		rule.RequiredCount = rj.CountThreshold
	}

	if err := rule.Validate(); err != nil {
		return engine.Rule{}, err
	}
	return rule, nil
}

// ToJSON converts an engine.Rule back to its JSON representation, e.g. for
// admin listing.
func ToJSON(rule engine.Rule) RuleJSON {
	rj := RuleJSON{
		ID:         string(rule.ID),
		Title:      rule.Title,
		XPPoints:   rule.XPPoints,
		TimeWindow: string(rule.Window),
	}
	for s := range rule.ValidStatuses {
		rj.ValidStatuses = append(rj.ValidStatuses, string(s))
	}
	sort.Strings(rj.ValidStatuses)
	switch rule.Kind {
	case engine.KindStreak:
		rj.StreakDays = rule.ConsecutiveDays
		for wd := range rule.IgnoreWeekdays {
			rj.IgnoreWeekdays = append(rj.IgnoreWeekdays, int(wd))
		}
		sort.Ints(rj.IgnoreWeekdays)
	case engine.KindThreshold:
		rj.CountThreshold = rule.RequiredCount
	}
	return rj
}
