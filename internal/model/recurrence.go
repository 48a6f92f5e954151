package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRecurrence = errors.New("model: invalid recurrence")

type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

func (r Recurrence) Repeats() bool {
	return r.IsValid() && r != RecurrenceNone
}

// NextAfter advances from the original scheduled time by whole periods until
// the result is strictly after now. A task that sat completed for several
// periods skips the missed occurrences rather than piling them up.
//
// Monthly steps clamp the day-of-month to the target month's last valid day
// while staying anchored on the original day, so Jan 31 yields Feb 28 and
// then Mar 31, not a slow drift toward the 28th.
func (r Recurrence) NextAfter(scheduled, now time.Time) (time.Time, error) {
	if !r.Repeats() {
		return time.Time{}, fmt.Errorf("%w: %q does not repeat", ErrInvalidRecurrence, r)
	}
	if scheduled.IsZero() {
		return time.Time{}, ErrInvalidScheduledTime
	}

	for step := 1; ; step++ {
		var next time.Time
		switch r {
		case RecurrenceDaily:
			next = scheduled.AddDate(0, 0, step)
		case RecurrenceWeekly:
			next = scheduled.AddDate(0, 0, 7*step)
		case RecurrenceMonthly:
			next = addMonthsClamped(scheduled, step)
		}
		if next.After(now) {
			return next, nil
		}
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, months, 0)
	if last := lastDayOfMonth(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func lastDayOfMonth(y int, m time.Month) int {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
