package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pgbackup/custom_errors"
	"pgbackup/internal/models"
	"pgbackup/internal/recurrence"
	"pgbackup/internal/state"
)

// JobStore is the authoritative in-memory registry of backup jobs. One mutex
// serializes every read snapshot and mutation so the scheduler loop never
// observes a partially updated job. Durability is delegated to the
// Persistence collaborator; a job whose save fails is not registered.
type JobStore struct {
	mu          sync.Mutex
	jobs        map[int64]*models.BackupJob
	order       []int64
	persistence Persistence
	nextLocalID int64
}

func NewJobStore(persistence Persistence) *JobStore {
	return &JobStore{
		jobs:        make(map[int64]*models.BackupJob),
		persistence: persistence,
	}
}

// Add validates the job, persists it, then registers it in memory. The
// returned job carries the id assigned by the persistence driver.
func (s *JobStore) Add(ctx context.Context, job models.BackupJob) (*models.BackupJob, error) {
	now := time.Now()

	if err := s.validate(job, now); err != nil {
		return nil, err
	}

	// Identity and run state are owned by the store. A caller-supplied id
	// would make Save overwrite another job's persisted row.
	job.ID = 0
	job.LastRun = nil
	job.NextRun = nil
	job.LastError = ""

	job.Status = state.StatusPending
	job.CreatedAt = now
	if next, ok := recurrence.Next(job.Recurrence, job.StartTime, nil, now); ok {
		job.NextRun = &next
	}

	if err := s.persistence.Save(ctx, &job); err != nil {
		return nil, &custom_errors.PersistError{Op: "save", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == 0 {
		s.nextLocalID++
		job.ID = s.nextLocalID
	}
	s.jobs[job.ID] = &job
	s.order = append(s.order, job.ID)
	return cloneJob(&job), nil
}

// Remove deletes the job from persistence and memory. Removing an unknown id
// is a no-op.
func (s *JobStore) Remove(ctx context.Context, jobID int64) error {
	if err := s.persistence.Delete(ctx, jobID); err != nil {
		return &custom_errors.PersistError{Op: "delete", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return nil
	}
	delete(s.jobs, jobID)
	for i, id := range s.order {
		if id == jobID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List snapshots the registered jobs in insertion order. serverID zero means
// no filter.
func (s *JobStore) List(serverID int64) []models.BackupJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]models.BackupJob, 0, len(s.order))
	for _, id := range s.order {
		job := s.jobs[id]
		if serverID != 0 && job.ServerID != serverID {
			continue
		}
		jobs = append(jobs, *cloneJob(job))
	}
	return jobs
}

// Get returns a copy of one job.
func (s *JobStore) Get(jobID int64) (*models.BackupJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, custom_errors.ErrNotFound
	}
	return cloneJob(job), nil
}

// Count returns the number of registered jobs.
func (s *JobStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Update applies mutation to the job under the store lock and returns a copy
// of the result. The scheduler uses this for every status and run-time write.
func (s *JobStore) Update(jobID int64, mutation func(*models.BackupJob)) (*models.BackupJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, custom_errors.ErrNotFound
	}
	mutation(job)
	return cloneJob(job), nil
}

// ClaimDue marks every due job Running under one lock acquisition and
// returns copies of the claimed jobs. Setting Running here is what prevents
// a later poll cycle from re-dispatching a job whose callback has not fired.
func (s *JobStore) ClaimDue(now time.Time) []models.BackupJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.BackupJob
	for _, id := range s.order {
		job := s.jobs[id]
		if !job.Due(now) {
			continue
		}
		job.Status = state.StatusRunning
		due = append(due, *cloneJob(job))
	}
	return due
}

// RecordResult writes a completed run back onto the job: status, lastRun,
// recomputed nextRun and the error message, all under the store lock. The
// outcome fields are then written through the persistence collaborator so
// run times survive a restart.
func (s *JobStore) RecordResult(ctx context.Context, res models.JobResult) (*models.BackupJob, error) {
	s.mu.Lock()
	job, ok := s.jobs[res.JobID]
	if !ok {
		s.mu.Unlock()
		return nil, custom_errors.ErrNotFound
	}
	if !state.IsValidTransition(job.Status, res.Status) {
		s.mu.Unlock()
		return nil, fmt.Errorf("invalid status transition %s -> %s for job %d",
			job.Status, res.Status, res.JobID)
	}
	job.Status = res.Status
	ranAt := res.RanAt
	job.LastRun = &ranAt
	job.NextRun = res.NextRun
	job.LastError = ""
	if res.Err != nil {
		job.LastError = res.Err.Error()
	}
	snapshot := cloneJob(job)
	s.mu.Unlock()

	if err := s.persistence.SaveRunResult(ctx, snapshot); err != nil {
		return snapshot, &custom_errors.PersistError{Op: "save run result", Err: err}
	}
	return snapshot, nil
}

// Release puts a claimed job back to Pending, used when a dispatch could not
// be started so a later cycle can claim it again.
func (s *JobStore) Release(jobID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok && job.Status == state.StatusRunning {
		job.Status = state.StatusPending
	}
}

// LoadAll rehydrates the in-memory registry from the persistence
// collaborator. Jobs found mid-run at startup are reset to Pending since no
// execution can be in flight anymore.
func (s *JobStore) LoadAll(ctx context.Context) error {
	jobs, err := s.persistence.LoadAll(ctx)
	if err != nil {
		return &custom_errors.PersistError{Op: "load", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range jobs {
		job := jobs[i]
		if job.Status == state.StatusRunning {
			job.Status = state.StatusPending
		}
		if _, ok := s.jobs[job.ID]; ok {
			continue
		}
		s.jobs[job.ID] = &job
		s.order = append(s.order, job.ID)
	}
	return nil
}

func (s *JobStore) validate(job models.BackupJob, now time.Time) error {
	if err := recurrence.Validate(job.Recurrence, job.StartTime, now); err != nil {
		var verr *custom_errors.ValidationError
		if errors.As(err, &verr) {
			s.validateConfig(job, verr)
			return verr
		}
		return err
	}

	verr := &custom_errors.ValidationError{}
	s.validateConfig(job, verr)
	if verr.HasError() {
		return verr
	}
	return nil
}

func (s *JobStore) validateConfig(job models.BackupJob, verr *custom_errors.ValidationError) {
	if job.ServerID == 0 {
		verr.Add(errors.New("server id is required"))
	}
	if job.Config.File == "" {
		verr.Add(errors.New("backup file path is required"))
	}
	if job.Config.Scope == models.ScopeObjects && job.Config.Database == "" {
		verr.Add(errors.New("database is required for an objects backup"))
	}
}

func cloneJob(job *models.BackupJob) *models.BackupJob {
	c := *job
	if job.LastRun != nil {
		t := *job.LastRun
		c.LastRun = &t
	}
	if job.NextRun != nil {
		t := *job.NextRun
		c.NextRun = &t
	}
	return &c
}
