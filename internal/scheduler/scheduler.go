package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"pgbackup/internal/executor"
	"pgbackup/internal/models"
	"pgbackup/internal/notify"
	"pgbackup/internal/recurrence"
	"pgbackup/internal/state"
	"pgbackup/internal/store"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultWorkerCount  = 4

	resultBuffer = 256
)

// Scheduler is the single background loop driving due-ness evaluation and
// dispatch. It owns its Running/Stopped state explicitly; there is no
// process-wide singleton, the composition root constructs one instance and
// passes it around.
type Scheduler struct {
	store    *store.JobStore
	exec     executor.Executor
	notifier *notify.Notifier
	interval time.Duration
	workers  *semaphore.Weighted

	now func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// The result processor outlives Start/Stop cycles so a callback firing
	// after Stop is still recorded instead of waiting for the next Start.
	processorOnce sync.Once
	results       chan models.JobResult
}

type Option func(*Scheduler)

func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithWorkerCount(n int64) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = semaphore.NewWeighted(n)
		}
	}
}

func WithNotifier(n *notify.Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// withClock injects the poll clock in tests.
func withClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(jobStore *store.JobStore, exec executor.Executor, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    jobStore,
		exec:     exec,
		interval: DefaultPollInterval,
		workers:  semaphore.NewWeighted(DefaultWorkerCount),
		now:      time.Now,
		results:  make(chan models.JobResult, resultBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the loop. Calling Start while the loop is already running
// is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)
	s.processorOnce.Do(func() { go s.processResults() })

	log.Printf("scheduler: started (interval %s)", s.interval)
}

// Stop signals the loop to exit after its current poll cycle. It does not
// interrupt in-flight backups; their completion callbacks still run and are
// recorded by the result processor, which keeps running while the loop is
// stopped. Calling Stop while stopped is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.cancel()
	s.wg.Wait()

	log.Println("scheduler: stopped")
}

// Restart stops the loop and starts it again.
func (s *Scheduler) Restart() {
	s.Stop()
	s.Start()
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status is the snapshot served by the management API.
type Status struct {
	Running  bool               `json:"running"`
	JobCount int                `json:"job_count"`
	Jobs     []models.BackupJob `json:"jobs"`
}

func (s *Scheduler) Status() Status {
	jobs := s.store.List(0)
	return Status{
		Running:  s.Running(),
		JobCount: len(jobs),
		Jobs:     jobs,
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First evaluation happens immediately, not one interval in.
	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll claims every due job under the store lock and hands each one to the
// executor. Dispatch is fire-and-forget: a slow backup occupies a worker
// slot, never the loop.
func (s *Scheduler) poll(ctx context.Context) {
	now := s.now()

	for _, job := range s.store.ClaimDue(now) {
		if !s.workers.TryAcquire(1) {
			// All workers busy; put the job back for the next cycle.
			s.store.Release(job.ID)
			continue
		}
		s.dispatch(ctx, job)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, job models.BackupJob) {
	defer func() {
		if r := recover(); r != nil {
			s.workers.Release(1)
			log.Printf("scheduler: panic dispatching job %d: %v", job.ID, r)
			s.results <- s.result(job, fmt.Errorf("dispatch panic: %v", r), s.now())
		}
	}()

	var once sync.Once
	s.exec.Execute(ctx, job, func(outcome executor.Outcome, err error) {
		once.Do(func() {
			s.workers.Release(1)
			completedAt := s.now()
			if err != nil {
				log.Printf("scheduler: job %d failed after %s: %v", job.ID, outcome.Duration, err)
			} else {
				log.Printf("scheduler: job %d wrote %s (%d bytes)", job.ID, outcome.File, outcome.Size)
			}
			s.results <- s.result(job, err, completedAt)
		})
	})
}

// result builds the completion record, recomputing the next run from the
// completion time. OneTime jobs get no next run regardless of outcome.
func (s *Scheduler) result(job models.BackupJob, err error, completedAt time.Time) models.JobResult {
	res := models.JobResult{
		JobID:  job.ID,
		Err:    err,
		Status: state.StatusSucceeded,
		RanAt:  completedAt,
	}
	if err != nil {
		res.Status = state.StatusFailed
	}
	if job.Recurrence.Kind != models.OneTime {
		if next, ok := recurrence.Next(job.Recurrence, job.StartTime, &completedAt, completedAt); ok {
			res.NextRun = &next
		}
	}
	return res
}

// processResults serializes every completion write into the Job Store. It is
// started once and runs for the scheduler's lifetime, so completions landing
// between Stop and a later Start are recorded immediately.
func (s *Scheduler) processResults() {
	for res := range s.results {
		s.record(res)
	}
}

func (s *Scheduler) record(res models.JobResult) {
	job, err := s.store.RecordResult(context.Background(), res)
	if err != nil {
		// A failed run record must not stop the loop; the in-memory state is
		// already updated when only persistence failed.
		log.Printf("scheduler: failed to record result for job %d: %v", res.JobID, err)
	}
	if job != nil {
		s.notifier.JobCompleted(*job, res)
	}
}
