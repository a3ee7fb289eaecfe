package docindex

import "time"

// TimestampFormat is the ISO-8601 UTC layout used for cutoffs.
const TimestampFormat = "2006-01-02T15:04:05Z"

// MonthsAgo returns now minus the given number of calendar months, in UTC
// and truncated to whole seconds. Years are borrowed while the month falls
// below January, and the day of month is clamped to the last day of the
// target month (March 31 minus one month is the last day of February).
// Negative months are treated as zero.
func MonthsAgo(now time.Time, months int) time.Time {
	now = now.UTC().Truncate(time.Second)
	if months <= 0 {
		return now
	}

	year, month := now.Year(), int(now.Month())-months
	for month <= 0 {
		month += 12
		year--
	}

	day := min(now.Day(), daysIn(year, time.Month(month)))
	return time.Date(year, time.Month(month), day,
		now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
}

// CutoffTimestamp formats MonthsAgo as an ISO-8601 UTC timestamp.
func CutoffTimestamp(now time.Time, months int) string {
	return MonthsAgo(now, months).Format(TimestampFormat)
}

// daysIn returns the number of days in the month. Day 0 of the following
// month normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
