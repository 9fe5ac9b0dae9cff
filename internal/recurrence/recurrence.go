package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"pgbackup/custom_errors"
	"pgbackup/internal/models"
)

// lookahead bounds the monthly scan. Two years covers any non-empty month
// set from any starting point.
const monthLookahead = 25

// Next computes the next run instant for a job. It is pure: the clock is
// injected through now and nothing else is consulted. The returned bool is
// false when the job is terminal and has no further run.
//
// The invariant for every non-terminal result: next >= now, and next is
// strictly after lastRun when lastRun is present.
func Next(rec models.Recurrence, startTime time.Time, lastRun *time.Time, now time.Time) (time.Time, bool) {
	switch rec.Kind {
	case models.OneTime:
		if lastRun != nil {
			return time.Time{}, false
		}
		if !startTime.Before(now) {
			return startTime, true
		}
		return time.Time{}, false

	case models.Daily:
		var candidate time.Time
		if lastRun == nil {
			candidate = timeOfDayOn(now, startTime)
		} else {
			candidate = timeOfDayOn(lastRun.AddDate(0, 0, 1), startTime)
		}
		for candidate.Before(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, true

	case models.Weekly:
		if len(rec.Weekdays) == 0 {
			return time.Time{}, false
		}
		candidate := timeOfDayOn(now, startTime)
		if candidate.Before(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		// At most one full week plus the skipped today.
		for i := 0; i < 8; i++ {
			if rec.HasWeekday(candidate.Weekday()) && after(candidate, lastRun) {
				return candidate, true
			}
			candidate = candidate.AddDate(0, 0, 1)
		}
		return time.Time{}, false

	case models.Monthly:
		if len(rec.Months) == 0 {
			return time.Time{}, false
		}
		year, month, _ := now.Date()
		day := startTime.Day()
		for i := 0; i < monthLookahead; i++ {
			m := time.Month((int(month)-1+i)%12 + 1)
			y := year + (int(month)-1+i)/12
			if !rec.HasMonth(m) {
				continue
			}
			d := day
			if last := lastDayOfMonth(y, m); d > last {
				d = last
			}
			candidate := time.Date(y, m, d,
				startTime.Hour(), startTime.Minute(), startTime.Second(), 0, now.Location())
			if !candidate.Before(now) && after(candidate, lastRun) {
				return candidate, true
			}
		}
		return time.Time{}, false

	case models.Cron:
		schedule, err := cron.ParseStandard(rec.Expression)
		if err != nil {
			return time.Time{}, false
		}
		return schedule.Next(now), true

	default:
		return time.Time{}, false
	}
}

// Validate checks the recurrence-specific fields of a job configuration.
func Validate(rec models.Recurrence, startTime time.Time, now time.Time) error {
	verr := &custom_errors.ValidationError{}

	switch rec.Kind {
	case models.OneTime:
		if startTime.Before(now) {
			verr.Add(errors.New("one-time start time is in the past"))
		}
	case models.Daily:
		// Nothing beyond the time-of-day, which any instant carries.
	case models.Weekly:
		if len(rec.Weekdays) == 0 {
			verr.Add(errors.New("weekly schedule requires at least one weekday"))
		}
		for _, d := range rec.Weekdays {
			if d < time.Sunday || d > time.Saturday {
				verr.Add(fmt.Errorf("invalid weekday: %d", d))
			}
		}
	case models.Monthly:
		if len(rec.Months) == 0 {
			verr.Add(errors.New("monthly schedule requires at least one month"))
		}
		for _, m := range rec.Months {
			if m < time.January || m > time.December {
				verr.Add(fmt.Errorf("invalid month: %d", m))
			}
		}
	case models.Cron:
		if _, err := cron.ParseStandard(rec.Expression); err != nil {
			verr.Add(fmt.Errorf("invalid cron expression %q: %v", rec.Expression, err))
		}
	default:
		verr.Add(fmt.Errorf("unknown recurrence kind: %q", rec.Kind))
	}

	if verr.HasError() {
		return verr
	}
	return nil
}

// timeOfDayOn keeps the calendar day of date and the clock of tod.
func timeOfDayOn(date, tod time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), tod.Second(), 0, date.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}

func after(t time.Time, lastRun *time.Time) bool {
	return lastRun == nil || t.After(*lastRun)
}
