package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/achievement-engine/engine"
)

func TestParseDate(t *testing.T) {
	d, err := engine.ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, engine.NewDate(2024, time.February, 29), d)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = engine.ParseDate("02/29/2024")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	jan10 := engine.NewDate(2024, time.January, 10)
	assert.Equal(t, 0, engine.DaysBetween(jan10, jan10))
	assert.Equal(t, 1, engine.DaysBetween(jan10, jan10.AddDays(1)))
	assert.Equal(t, -3, engine.DaysBetween(jan10, jan10.AddDays(-3)))

	// Across the Feb 29 leap day.
	assert.Equal(t, 2, engine.DaysBetween(engine.NewDate(2024, time.February, 28), engine.NewDate(2024, time.March, 1)))
}

func TestMondayOf(t *testing.T) {
	monday := engine.NewDate(2024, time.January, 8)

	assert.Equal(t, monday, engine.MondayOf(monday))
	assert.Equal(t, monday, engine.MondayOf(engine.NewDate(2024, time.January, 10))) // Wed
	// Sunday belongs to the preceding Monday's week.
	assert.Equal(t, monday, engine.MondayOf(engine.NewDate(2024, time.January, 14)))
}

func TestMonthPeriod(t *testing.T) {
	p := engine.MonthPeriod(engine.NewDate(2024, time.February, 15))
	assert.Equal(t, engine.NewDate(2024, time.February, 1), p.Start)
	assert.Equal(t, engine.NewDate(2024, time.February, 29), p.End, "2024 is a leap year")

	assert.True(t, p.Contains(engine.NewDate(2024, time.February, 29)))
	assert.False(t, p.Contains(engine.NewDate(2024, time.March, 1)))
}

func TestWeekPeriod(t *testing.T) {
	p := engine.WeekPeriod(engine.NewDate(2024, time.January, 10))
	assert.Equal(t, engine.NewDate(2024, time.January, 8), p.Start)
	assert.Equal(t, engine.NewDate(2024, time.January, 14), p.End)
}
