package models

import "time"

type RecurrenceKind string

const (
	OneTime RecurrenceKind = "one_time"
	Daily   RecurrenceKind = "daily"
	Weekly  RecurrenceKind = "weekly"
	Monthly RecurrenceKind = "monthly"
	// Cron schedules with a raw five-field cron expression for patterns the
	// calendar kinds cannot express.
	Cron RecurrenceKind = "cron"
)

// Recurrence is the rule governing how often and on what calendar pattern a
// backup job repeats.
type Recurrence struct {
	Kind RecurrenceKind `json:"kind"`

	// Weekdays holds the configured days for Weekly jobs. Must be non-empty
	// for Weekly.
	Weekdays []time.Weekday `json:"weekdays,omitempty"`

	// Months holds the configured months for Monthly jobs. Must be non-empty
	// for Monthly.
	Months []time.Month `json:"months,omitempty"`

	// Expression is the cron expression for Cron jobs.
	Expression string `json:"expression,omitempty"`
}

func (r Recurrence) HasWeekday(d time.Weekday) bool {
	for _, wd := range r.Weekdays {
		if wd == d {
			return true
		}
	}
	return false
}

func (r Recurrence) HasMonth(m time.Month) bool {
	for _, rm := range r.Months {
		if rm == m {
			return true
		}
	}
	return false
}
