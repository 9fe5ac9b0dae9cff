package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgbackup/internal/executor"
	"pgbackup/internal/models"
	"pgbackup/internal/state"
	"pgbackup/internal/store"
)

// memPersistence keeps saved jobs in memory; good enough for loop tests.
type memPersistence struct {
	mu     sync.Mutex
	nextID int64
}

func (m *memPersistence) Save(ctx context.Context, job *models.BackupJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == 0 {
		m.nextID++
		job.ID = m.nextID
	}
	return nil
}

func (m *memPersistence) SaveRunResult(ctx context.Context, job *models.BackupJob) error {
	return nil
}

func (m *memPersistence) LoadAll(ctx context.Context) ([]models.BackupJob, error) {
	return nil, nil
}

func (m *memPersistence) Delete(ctx context.Context, jobID int64) error { return nil }
func (m *memPersistence) Close() error                                  { return nil }

// mockExecutor is a function-field mock of executor.Executor.
type mockExecutor struct {
	mu          sync.Mutex
	calls       []int64
	ExecuteFunc func(ctx context.Context, job models.BackupJob, onComplete func(executor.Outcome, error))
}

func (m *mockExecutor) Execute(ctx context.Context, job models.BackupJob, onComplete func(executor.Outcome, error)) {
	m.mu.Lock()
	m.calls = append(m.calls, job.ID)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		m.ExecuteFunc(ctx, job, onComplete)
		return
	}
	onComplete(executor.Outcome{File: job.Config.File}, nil)
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestStore(t *testing.T) *store.JobStore {
	t.Helper()
	return store.NewJobStore(&memPersistence{})
}

func addDailyJob(t *testing.T, s *store.JobStore, serverID int64) *models.BackupJob {
	t.Helper()
	job, err := s.Add(context.Background(), models.BackupJob{
		ServerID:   serverID,
		Name:       "nightly",
		Recurrence: models.Recurrence{Kind: models.Daily},
		StartTime:  time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC),
		Config: models.BackupConfig{
			File:     "/backups/nightly.dump",
			Scope:    models.ScopeObjects,
			Database: "appdb",
		},
	})
	require.NoError(t, err)
	return job
}

func TestScheduler_DispatchAndComplete(t *testing.T) {
	s := newTestStore(t)
	job := addDailyJob(t, s, 1)
	exec := &mockExecutor{}

	sched := New(s, exec, WithPollInterval(10*time.Millisecond))
	sched.Start()
	defer sched.Stop()

	require.Eventually(t, func() bool {
		got, err := s.Get(job.ID)
		return err == nil && got.Status == state.StatusSucceeded
	}, time.Second, 5*time.Millisecond)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRun)
	require.NotNil(t, got.NextRun)
	assert.True(t, got.NextRun.After(*got.LastRun),
		"next run must be strictly after last run")
	assert.Empty(t, got.LastError)
}

func TestScheduler_RunningJobNotRedispatched(t *testing.T) {
	s := newTestStore(t)
	addDailyJob(t, s, 1)

	// Callback never fires: the job must stay Running and never be claimed
	// again by later cycles.
	exec := &mockExecutor{
		ExecuteFunc: func(ctx context.Context, job models.BackupJob, onComplete func(executor.Outcome, error)) {
		},
	}

	sched := New(s, exec, WithPollInterval(5*time.Millisecond))
	sched.Start()
	defer sched.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, exec.callCount())

	jobs := s.List(0)
	require.Len(t, jobs, 1)
	assert.Equal(t, state.StatusRunning, jobs[0].Status)
}

func TestScheduler_FailureIsolation(t *testing.T) {
	s := newTestStore(t)
	bad := addDailyJob(t, s, 1)
	good := addDailyJob(t, s, 2)

	exec := &mockExecutor{
		ExecuteFunc: func(ctx context.Context, job models.BackupJob, onComplete func(executor.Outcome, error)) {
			if job.ID == bad.ID {
				onComplete(executor.Outcome{}, errors.New("pg_dump exited 1"))
				return
			}
			onComplete(executor.Outcome{File: job.Config.File}, nil)
		},
	}

	sched := New(s, exec, WithPollInterval(10*time.Millisecond))
	sched.Start()
	defer sched.Stop()

	require.Eventually(t, func() bool {
		b, errB := s.Get(bad.ID)
		g, errG := s.Get(good.ID)
		return errB == nil && errG == nil &&
			b.Status == state.StatusFailed && g.Status == state.StatusSucceeded
	}, time.Second, 5*time.Millisecond)

	b, err := s.Get(bad.ID)
	require.NoError(t, err)
	assert.Contains(t, b.LastError, "pg_dump exited 1")
	require.NotNil(t, b.NextRun, "a failed recurring job keeps its schedule")
	assert.True(t, sched.Running(), "a failed job must not stop the loop")
}

func TestScheduler_PanicIsolation(t *testing.T) {
	s := newTestStore(t)
	job := addDailyJob(t, s, 1)

	exec := &mockExecutor{
		ExecuteFunc: func(ctx context.Context, job models.BackupJob, onComplete func(executor.Outcome, error)) {
			panic("boom")
		},
	}

	sched := New(s, exec, WithPollInterval(10*time.Millisecond))
	sched.Start()
	defer sched.Stop()

	require.Eventually(t, func() bool {
		got, err := s.Get(job.ID)
		return err == nil && got.Status == state.StatusFailed
	}, time.Second, 5*time.Millisecond)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Contains(t, got.LastError, "panic")
	assert.True(t, sched.Running())
}

func TestScheduler_OneTimeTerminal(t *testing.T) {
	s := newTestStore(t)

	start := time.Now().Add(time.Hour)
	job, err := s.Add(context.Background(), models.BackupJob{
		ServerID:   1,
		Name:       "once",
		Recurrence: models.Recurrence{Kind: models.OneTime},
		StartTime:  start,
		Config: models.BackupConfig{
			File:     "/backups/once.dump",
			Scope:    models.ScopeObjects,
			Database: "appdb",
		},
	})
	require.NoError(t, err)

	exec := &mockExecutor{}
	sched := New(s, exec,
		WithPollInterval(5*time.Millisecond),
		withClock(func() time.Time { return start.Add(time.Second) }),
	)
	sched.Start()
	defer sched.Stop()

	require.Eventually(t, func() bool {
		got, err := s.Get(job.ID)
		return err == nil && got.Status == state.StatusSucceeded
	}, time.Second, 5*time.Millisecond)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Nil(t, got.NextRun, "one-time job is terminal after its run")

	// Later cycles must not dispatch it again.
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, exec.callCount())
}

func TestScheduler_StartStopNoOps(t *testing.T) {
	s := newTestStore(t)
	sched := New(s, &mockExecutor{}, WithPollInterval(time.Hour))

	assert.False(t, sched.Running())
	sched.Stop() // stop while stopped is a no-op

	sched.Start()
	sched.Start() // start while running is a no-op
	assert.True(t, sched.Running())

	sched.Stop()
	assert.False(t, sched.Running())
	sched.Stop()
	assert.False(t, sched.Running())
}

func TestScheduler_Restart(t *testing.T) {
	s := newTestStore(t)
	sched := New(s, &mockExecutor{}, WithPollInterval(time.Hour))

	sched.Start()
	sched.Restart()
	assert.True(t, sched.Running())
	sched.Stop()
}

func TestScheduler_Status(t *testing.T) {
	s := newTestStore(t)
	addDailyJob(t, s, 1)
	addDailyJob(t, s, 2)

	sched := New(s, &mockExecutor{}, WithPollInterval(time.Hour))

	status := sched.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 2, status.JobCount)
	assert.Len(t, status.Jobs, 2)

	sched.Start()
	defer sched.Stop()
	assert.True(t, sched.Status().Running)
}

func TestScheduler_CompletionAfterStopIsRecorded(t *testing.T) {
	s := newTestStore(t)
	job := addDailyJob(t, s, 1)

	release := make(chan struct{})
	exec := &mockExecutor{
		ExecuteFunc: func(ctx context.Context, job models.BackupJob, onComplete func(executor.Outcome, error)) {
			go func() {
				<-release
				onComplete(executor.Outcome{File: job.Config.File}, nil)
			}()
		},
	}

	sched := New(s, exec, WithPollInterval(5*time.Millisecond))
	sched.Start()

	require.Eventually(t, func() bool {
		got, err := s.Get(job.ID)
		return err == nil && got.Status == state.StatusRunning
	}, time.Second, 5*time.Millisecond)

	// Stop does not interrupt the in-flight backup; its callback fires later.
	sched.Stop()
	close(release)

	require.Eventually(t, func() bool {
		got, err := s.Get(job.ID)
		return err == nil && got.Status == state.StatusSucceeded
	}, time.Second, 5*time.Millisecond, "a completion landing after Stop must still be recorded")

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRun)
	assert.False(t, sched.Running())
}

func TestScheduler_WorkerExhaustionReleasesJob(t *testing.T) {
	s := newTestStore(t)
	addDailyJob(t, s, 1)
	addDailyJob(t, s, 2)

	release := make(chan struct{})
	exec := &mockExecutor{
		ExecuteFunc: func(ctx context.Context, job models.BackupJob, onComplete func(executor.Outcome, error)) {
			go func() {
				<-release
				onComplete(executor.Outcome{}, nil)
			}()
		},
	}

	sched := New(s, exec,
		WithPollInterval(5*time.Millisecond),
		WithWorkerCount(1),
	)
	sched.Start()
	defer sched.Stop()

	// Only one worker: exactly one job may be in flight.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, exec.callCount())

	close(release)

	// Once the slot frees up the second job runs too.
	require.Eventually(t, func() bool {
		return exec.callCount() >= 2
	}, time.Second, 5*time.Millisecond)
}
