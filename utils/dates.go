// utils/dates.go
package utils

import "time"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

// InstallmentMonth returns the calendar (month, year) of the installment
// offset months after start, pinned to the 1st of the month so late
// start days cannot skip a month during normalization.
func InstallmentMonth(start time.Time, offset int) (int, int) {
	d := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	d = d.AddDate(0, offset, 0)
	return int(d.Month()), d.Year()
}
