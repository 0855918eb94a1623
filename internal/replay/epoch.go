// Package replay selects historical BUY activity to replicate.
package replay

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// Cutoff returns the start of the epoch window ending at now, in UTC.
//
// Hour subtracts an absolute hour. Day, month and year step the calendar
// field back and keep the wall-clock time; the day of month is clamped to the
// last day of the target month, so 31 Mar steps back to the end of February
// and 29 Feb steps back a year to 28 Feb.
func Cutoff(now time.Time, epoch domain.Epoch) (time.Time, error) {
	now = now.UTC()
	switch epoch {
	case domain.EpochHour:
		return now.Add(-time.Hour), nil
	case domain.EpochDay:
		return now.AddDate(0, 0, -1), nil
	case domain.EpochMonth:
		return shiftMonths(now, -1), nil
	case domain.EpochYear:
		return shiftMonths(now, -12), nil
	default:
		return time.Time{}, fmt.Errorf("replay: unknown epoch %q", epoch)
	}
}

func shiftMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	target := first.AddDate(0, months, 0)
	if last := daysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return target.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
