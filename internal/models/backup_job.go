package models

import (
	"time"

	"pgbackup/internal/state"
)

// BackupJob is a configured, schedulable backup of one target server. The
// scheduler owns Status, LastRun and NextRun; Config passes through to the
// executor untouched.
type BackupJob struct {
	ID       int64      `json:"id"`
	ServerID int64      `json:"server_id"`
	Name     string     `json:"name"`

	Recurrence Recurrence `json:"recurrence"`

	// StartTime supplies the time-of-day for every future run and, for
	// OneTime jobs, the full target instant.
	StartTime time.Time `json:"start_time"`

	// LastRun is nil until the first execution completes. NextRun is nil once
	// a OneTime job has run.
	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`

	Status    state.JobStatus `json:"status"`
	LastError string          `json:"last_error,omitempty"`

	Config    BackupConfig `json:"config"`
	CreatedAt time.Time    `json:"created_at"`
}

// Due reports whether the job should be dispatched at now. A job still
// Running is never due again until its completion callback fires.
func (j *BackupJob) Due(now time.Time) bool {
	if j.Status == state.StatusRunning {
		return false
	}
	if j.LastRun == nil {
		return !now.Before(j.StartTime)
	}
	return j.NextRun != nil && !now.Before(*j.NextRun)
}

// JobResult is the completion record a dispatch hands back to the store.
type JobResult struct {
	JobID   int64
	Err     error
	Status  state.JobStatus
	RanAt   time.Time
	NextRun *time.Time
}
