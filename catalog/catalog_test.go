package catalog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/achievement-engine/catalog"
	"github.com/warp/achievement-engine/engine"
)

func TestParse_StreakVariant(t *testing.T) {
	rule, err := catalog.Parse(`{
		"id": "streak-5-workdays",
		"title": "Five-Day Streak",
		"xp_points": 50,
		"valid_statuses": ["completed"],
		"streak_days": 5,
		"ignore_weekdays": [0, 6],
		"time_window": "month"
	}`)
	require.NoError(t, err)

	assert.Equal(t, engine.RuleID("streak-5-workdays"), rule.ID)
	assert.Equal(t, engine.KindStreak, rule.Kind)
	assert.Equal(t, 5, rule.ConsecutiveDays)
	assert.Equal(t, engine.WindowMonth, rule.Window)
	assert.True(t, rule.IgnoreWeekdays[time.Sunday])
	assert.True(t, rule.IgnoreWeekdays[time.Saturday])
	assert.False(t, rule.IgnoreWeekdays[time.Monday])
	assert.True(t, rule.MatchesStatus("completed"))
	assert.False(t, rule.MatchesStatus("skipped"))
}

func TestParse_ThresholdVariant_Defaults(t *testing.T) {
	// time_window defaults to total; empty valid_statuses qualifies everything.
	rule, err := catalog.Parse(`{"id": "ten-days", "title": "Ten Days", "xp_points": 100, "count_threshold": 10}`)
	require.NoError(t, err)

	assert.Equal(t, engine.KindThreshold, rule.Kind)
	assert.Equal(t, 10, rule.RequiredCount)
	assert.Equal(t, engine.WindowTotal, rule.Window)
	assert.True(t, rule.MatchesStatus("anything"))
}

func TestFromJSON_RejectsBothRequirements(t *testing.T) {
	_, err := catalog.FromJSON(catalog.RuleJSON{ID: "both", StreakDays: 3, CountThreshold: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrInvalidRule))
}

func TestFromJSON_RejectsNeitherRequirement(t *testing.T) {
	// Historically these were stored and silently never-met; now they are
	// rejected at authoring time.
	_, err := catalog.FromJSON(catalog.RuleJSON{ID: "neither", Title: "Empty"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrInvalidRule))
}

func TestFromJSON_RejectsBadWindow(t *testing.T) {
	_, err := catalog.FromJSON(catalog.RuleJSON{ID: "r", CountThreshold: 1, TimeWindow: "fortnight"})
	assert.Error(t, err)
}

func TestFromJSON_RejectsWeeklyStreak(t *testing.T) {
	_, err := catalog.FromJSON(catalog.RuleJSON{ID: "r", StreakDays: 3, TimeWindow: "week"})
	assert.Error(t, err)
}

func TestFromJSON_RejectsWeekdayOutOfRange(t *testing.T) {
	_, err := catalog.FromJSON(catalog.RuleJSON{ID: "r", StreakDays: 3, IgnoreWeekdays: []int{7}})
	assert.Error(t, err)
}

func TestParseAll_PreservesOrder(t *testing.T) {
	rules, err := catalog.ParseAll([]byte(`[
		{"id": "a", "count_threshold": 1},
		{"id": "b", "streak_days": 2}
	]`))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, engine.RuleID("a"), rules[0].ID)
	assert.Equal(t, engine.RuleID("b"), rules[1].ID)
}

func TestToJSON_RoundTrip(t *testing.T) {
	original := catalog.RuleJSON{
		ID:             "streak-rule",
		Title:          "Streak",
		XPPoints:       50,
		ValidStatuses:  []string{"completed", "partial"},
		StreakDays:     4,
		IgnoreWeekdays: []int{0, 6},
		TimeWindow:     "month",
	}
	rule, err := catalog.FromJSON(original)
	require.NoError(t, err)

	back := catalog.ToJSON(rule)
	assert.Equal(t, original, back, "sets are emitted sorted, so the round trip is exact")
}
