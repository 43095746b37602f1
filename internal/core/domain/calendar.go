package domain

import "time"

// daysIn returns the number of days in the given month of year.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// AddMonthsClamped moves t forward by months calendar months, keeping the
// day-of-month but clamping it to the target month's last day. Unlike
// time.AddDate it never spills into the following month (Jan 31 + 1 → Feb 28/29).
func AddMonthsClamped(t time.Time, months int) time.Time {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := firstOfMonth.AddDate(0, months, 0)
	day := t.Day()
	if last := daysIn(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// NextExecutionDate returns the occurrence of day in the month following from,
// clamped to that month's last day. The time of day of from is preserved.
func NextExecutionDate(day int, from time.Time) time.Time {
	if day < 1 {
		day = 1
	}
	next := time.Date(from.Year(), from.Month(), 1, from.Hour(), from.Minute(), from.Second(), 0, from.Location()).AddDate(0, 1, 0)
	if last := daysIn(next.Year(), next.Month(), from.Location()); day > last {
		day = last
	}
	return time.Date(next.Year(), next.Month(), day, from.Hour(), from.Minute(), from.Second(), 0, from.Location())
}

// FirstExecutionDate returns the first time day occurs at or after from,
// clamped to the month's last day. Used when an auto-debit is first enabled.
func FirstExecutionDate(day int, from time.Time) time.Time {
	if day < 1 {
		day = 1
	}
	candidateDay := day
	if last := daysIn(from.Year(), from.Month(), from.Location()); candidateDay > last {
		candidateDay = last
	}
	candidate := time.Date(from.Year(), from.Month(), candidateDay, from.Hour(), from.Minute(), from.Second(), 0, from.Location())
	if candidate.Before(from) {
		return NextExecutionDate(day, from)
	}
	return candidate
}
