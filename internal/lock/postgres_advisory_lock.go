package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Lock ids used process-wide.
const (
	MigrationLock = 74101
)

// AdvisoryLockManager serializes fleet-wide operations through Postgres
// advisory locks.
type AdvisoryLockManager interface {
	Acquire(lockID int) error
	Release(lockID int) error
}

type PostgresAdvisoryLockManager struct {
	db *sql.DB
}

func NewPostgresAdvisoryLockManager(db *sql.DB) *PostgresAdvisoryLockManager {
	return &PostgresAdvisoryLockManager{
		db: db,
	}
}

func (l *PostgresAdvisoryLockManager) Acquire(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockID)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	return nil
}

func (l *PostgresAdvisoryLockManager) Release(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", lockID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}
