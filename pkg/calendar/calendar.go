// Package calendar provides the date arithmetic used for installment due
// dates and payment timing. All functions work on calendar dates: the time of
// day is discarded and the result is expressed in UTC.
package calendar

import "time"

// Date truncates t to midnight UTC of its calendar day in t's location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FirstDayOfMonth returns the first day of the month containing t.
func FirstDayOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// FirstDayOfNextMonth returns the first day of the month after the one
// containing t.
func FirstDayOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from from to to. The
// result is negative when to is before from.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}

// MonthsBetween returns the number of complete months from from to to,
// truncated toward zero. A month is complete once the day-of-month of to
// reaches that of from: Jan 31 to Feb 28 is 0 months, Jan 15 to Feb 15 is 1.
func MonthsBetween(from, to time.Time) int {
	packed := func(t time.Time) int {
		y, m, d := t.Date()
		return (y*12+int(m))*32 + d
	}
	return (packed(to) - packed(from)) / 32
}
