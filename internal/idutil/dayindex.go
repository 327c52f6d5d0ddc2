package idutil

import "time"

// DayIndex is a 32-bit count of days since the Unix epoch, always computed
// in UTC (spec §3). Day zero (DayIndexPastInfinity) is the infinite-past
// sentinel; the maximum value (DayIndexFutureInfinity) is the
// infinite-future sentinel.
type DayIndex uint32

const (
	// DayIndexPastInfinity is the sentinel meaning "no lower bound".
	DayIndexPastInfinity DayIndex = 0
	// DayIndexFutureInfinity is the sentinel meaning "no upper bound".
	DayIndexFutureInfinity DayIndex = ^DayIndex(0)
)

const secondsPerDay = 24 * 60 * 60

// DayIndexFromTime converts a time to a day index, always normalizing to
// UTC first so that all components agree on the same calendar day
// regardless of the caller's local timezone.
func DayIndexFromTime(t time.Time) DayIndex {
	return DayIndex(t.UTC().Unix() / secondsPerDay)
}

// Today returns today's day index in UTC.
func Today(now func() time.Time) DayIndex {
	return DayIndexFromTime(now())
}

// Time returns the start-of-day UTC instant for a day index.
func (d DayIndex) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// WeekIndex derives the ISO-week-aligned index containing this day,
// expressed as the day index of the Monday that begins the week.
func (d DayIndex) WeekIndex() DayIndex {
	t := d.Time()
	offset := (int(t.Weekday()) + 6) % 7 // Monday == 0
	return d - DayIndex(offset)
}

// MonthIndex derives the index of the first day of the month containing
// this day, expressed as a day index.
func (d DayIndex) MonthIndex() DayIndex {
	t := d.Time()
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DayIndexFromTime(firstOfMonth)
}
