package store

import (
	"context"

	"pgbackup/internal/models"
)

// Persistence is the durability collaborator behind the in-memory JobStore.
// The store depends only on this interface, never on a storage technology.
type Persistence interface {
	// Save inserts the job or updates it in place. On insert the driver
	// assigns job.ID before returning.
	Save(ctx context.Context, job *models.BackupJob) error

	// SaveRunResult persists only the outcome of a completed run: status,
	// last error and the run timestamps. Drivers with row-level statements
	// write just those columns instead of the full job.
	SaveRunResult(ctx context.Context, job *models.BackupJob) error

	// LoadAll returns every persisted job, in creation order.
	LoadAll(ctx context.Context) ([]models.BackupJob, error)

	// Delete removes the job. Deleting an unknown id is not an error.
	Delete(ctx context.Context, jobID int64) error

	// Close releases the underlying connection.
	Close() error
}
