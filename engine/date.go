package engine

import (
	"time"
)

// =============================================================================
// CALENDAR DATE - Day-granularity time (statuses are per calendar day)
// =============================================================================

// CalendarDate is a single calendar day, normalized to midnight UTC.
// The status log records at most one entry per CalendarDate.
type CalendarDate struct {
	Time time.Time
}

// NewDate creates a CalendarDate for the given year/month/day.
func NewDate(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary time to its calendar day.
func DateOf(t time.Time) CalendarDate {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (CalendarDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CalendarDate{}, err
	}
	return DateOf(t), nil
}

// Today returns the current calendar day.
func Today() CalendarDate {
	return DateOf(time.Now())
}

// Comparison
func (d CalendarDate) Before(other CalendarDate) bool        { return d.Time.Before(other.Time) }
func (d CalendarDate) Equal(other CalendarDate) bool         { return d.Time.Equal(other.Time) }
func (d CalendarDate) After(other CalendarDate) bool         { return d.Time.After(other.Time) }
func (d CalendarDate) BeforeOrEqual(other CalendarDate) bool { return d.Before(other) || d.Equal(other) }
func (d CalendarDate) AfterOrEqual(other CalendarDate) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d CalendarDate) AddDays(n int) CalendarDate { return CalendarDate{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d CalendarDate) Year() int             { return d.Time.Year() }
func (d CalendarDate) Month() time.Month     { return d.Time.Month() }
func (d CalendarDate) Day() int              { return d.Time.Day() }
func (d CalendarDate) Weekday() time.Weekday { return d.Time.Weekday() }
func (d CalendarDate) IsZero() bool          { return d.Time.IsZero() }

func (d CalendarDate) String() string { return d.Time.Format("2006-01-02") }

// MonthTag returns the "YYYY-MM" period tag for this date's month.
func (d CalendarDate) MonthTag() string { return d.Time.Format("2006-01") }

// DaysBetween returns the number of calendar days from `from` to `to`.
// Positive when `to` is after `from`.
func DaysBetween(from, to CalendarDate) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

// MondayOf returns the Monday of the ISO-style week containing d.
// Weeks run Monday through Sunday; Sunday belongs to the preceding Monday.
func MondayOf(d CalendarDate) CalendarDate {
	return d.AddDays(-((int(d.Weekday()) + 6) % 7))
}

// =============================================================================
// PERIOD - Inclusive date range used for evaluation windows
// =============================================================================

// Period is an inclusive [Start, End] range of calendar days.
type Period struct {
	Start CalendarDate
	End   CalendarDate
}

// Contains returns true if the date falls within [Start, End].
func (p Period) Contains(d CalendarDate) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// MonthPeriod returns the calendar month containing d.
func MonthPeriod(d CalendarDate) Period {
	start := NewDate(d.Year(), d.Month(), 1)
	end := CalendarDate{Time: start.Time.AddDate(0, 1, -1)}
	return Period{Start: start, End: end}
}

// WeekPeriod returns the Monday-Sunday week containing d.
func WeekPeriod(d CalendarDate) Period {
	monday := MondayOf(d)
	return Period{Start: monday, End: monday.AddDays(6)}
}
