package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pgbackup/internal/models"
	"pgbackup/internal/state"
)

// PostgresJobStore persists backup jobs in pgbackup_schema.backup_jobs.
type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

func (r *PostgresJobStore) Save(ctx context.Context, job *models.BackupJob) error {
	recurrenceJSON, err := json.Marshal(job.Recurrence)
	if err != nil {
		return fmt.Errorf("failed to marshal recurrence: %w", err)
	}
	configJSON, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if job.ID == 0 {
		query := `
		INSERT INTO pgbackup_schema.backup_jobs
			(server_id, name, recurrence, start_time, last_run, next_run, status, last_error, config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING id
	`
		err = r.db.QueryRowContext(ctx, query,
			job.ServerID, job.Name, recurrenceJSON, job.StartTime,
			job.LastRun, job.NextRun, job.Status, job.LastError, configJSON,
		).Scan(&job.ID)
		if err != nil {
			return fmt.Errorf("failed to insert backup job: %w", err)
		}
		return nil
	}

	query := `
	UPDATE pgbackup_schema.backup_jobs
	SET server_id = $1, name = $2, recurrence = $3, start_time = $4,
	    last_run = $5, next_run = $6, status = $7, last_error = $8, config = $9
	WHERE id = $10
	`
	_, err = r.db.ExecContext(ctx, query,
		job.ServerID, job.Name, recurrenceJSON, job.StartTime,
		job.LastRun, job.NextRun, job.Status, job.LastError, configJSON, job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update backup job: %w", err)
	}
	return nil
}

func (r *PostgresJobStore) LoadAll(ctx context.Context) ([]models.BackupJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, server_id, name, recurrence, start_time,
		       last_run, next_run, status, last_error, config, created_at
		FROM pgbackup_schema.backup_jobs
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.BackupJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *PostgresJobStore) Delete(ctx context.Context, jobID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pgbackup_schema.backup_jobs WHERE id = $1`, jobID)
	return err
}

// SaveRunResult persists a completed run with the targeted column updates
// instead of rewriting the whole row.
func (r *PostgresJobStore) SaveRunResult(ctx context.Context, job *models.BackupJob) error {
	var lastRun time.Time
	if job.LastRun != nil {
		lastRun = *job.LastRun
	}
	if err := r.UpdateRunTimes(ctx, job.ID, lastRun, job.NextRun); err != nil {
		return err
	}
	if job.Status == state.StatusFailed {
		return r.MarkFailure(ctx, job.ID, job.LastError)
	}
	return r.MarkSuccess(ctx, job.ID)
}

// UpdateRunTimes writes the post-execution timestamps in one statement.
func (r *PostgresJobStore) UpdateRunTimes(ctx context.Context, jobID int64, lastRun time.Time, nextRun *time.Time) error {
	query := `
	UPDATE pgbackup_schema.backup_jobs
	SET last_run = $1, next_run = $2
	WHERE id = $3;
	`
	_, err := r.db.ExecContext(ctx, query, lastRun, nextRun, jobID)
	return err
}

// MarkSuccess marks the job's most recent run as successful.
func (r *PostgresJobStore) MarkSuccess(ctx context.Context, jobID int64) error {
	query := `
	UPDATE pgbackup_schema.backup_jobs
	SET status = $1, last_error = ''
	WHERE id = $2;
	`
	_, err := r.db.ExecContext(ctx, query, state.StatusSucceeded, jobID)
	return err
}

// MarkFailure records a failed run with its error message.
func (r *PostgresJobStore) MarkFailure(ctx context.Context, jobID int64, errMsg string) error {
	query := `
	UPDATE pgbackup_schema.backup_jobs
	SET status = $1, last_error = $2
	WHERE id = $3;
	`
	_, err := r.db.ExecContext(ctx, query, state.StatusFailed, errMsg, jobID)
	return err
}

func (r *PostgresJobStore) Close() error {
	return r.db.Close()
}

func scanJob(rows *sql.Rows) (*models.BackupJob, error) {
	var job models.BackupJob
	var recurrenceJSON, configJSON []byte
	var lastRun, nextRun sql.NullTime

	err := rows.Scan(
		&job.ID, &job.ServerID, &job.Name, &recurrenceJSON, &job.StartTime,
		&lastRun, &nextRun, &job.Status, &job.LastError, &configJSON, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(recurrenceJSON, &job.Recurrence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recurrence for job %d: %w", job.ID, err)
	}
	if err := json.Unmarshal(configJSON, &job.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config for job %d: %w", job.ID, err)
	}
	if lastRun.Valid {
		job.LastRun = &lastRun.Time
	}
	if nextRun.Valid {
		job.NextRun = &nextRun.Time
	}
	return &job, nil
}
