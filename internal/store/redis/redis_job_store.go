package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"pgbackup/internal/models"
)

const (
	jobsKey  = "pgbackup:jobs"
	idSeqKey = "pgbackup:jobs:next_id"
)

// RedisJobStore persists backup jobs as JSON entries in one hash, with ids
// drawn from a counter key.
type RedisJobStore struct {
	client *redis.Client
}

func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{client: client}
}

func (r *RedisJobStore) Save(ctx context.Context, job *models.BackupJob) error {
	if job.ID == 0 {
		id, err := r.client.Incr(ctx, idSeqKey).Result()
		if err != nil {
			return fmt.Errorf("failed to allocate job id: %w", err)
		}
		job.ID = id
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := r.client.HSet(ctx, jobsKey, strconv.FormatInt(job.ID, 10), payload).Err(); err != nil {
		return fmt.Errorf("failed to save job %d: %w", job.ID, err)
	}
	return nil
}

// SaveRunResult rewrites the whole entry; a hash field holds one JSON
// document, there is no narrower write.
func (r *RedisJobStore) SaveRunResult(ctx context.Context, job *models.BackupJob) error {
	return r.Save(ctx, job)
}

func (r *RedisJobStore) LoadAll(ctx context.Context) ([]models.BackupJob, error) {
	entries, err := r.client.HGetAll(ctx, jobsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	jobs := make([]models.BackupJob, 0, len(entries))
	for field, payload := range entries {
		var job models.BackupJob
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job %s: %w", field, err)
		}
		jobs = append(jobs, job)
	}

	// Hash iteration order is arbitrary; creation order is what callers expect.
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (r *RedisJobStore) Delete(ctx context.Context, jobID int64) error {
	return r.client.HDel(ctx, jobsKey, strconv.FormatInt(jobID, 10)).Err()
}

func (r *RedisJobStore) Close() error {
	return r.client.Close()
}
