package executor

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"pgbackup/internal/models"
)

// Server holds the connection details of one backup target.
type Server struct {
	ID            int64
	Name          string
	Host          string
	Port          int
	Username      string
	Password      string
	MaintenanceDB string
}

// ServerRegistry resolves a job's server reference to connection details.
// The scheduler core holds only the reference; ownership stays external.
type ServerRegistry interface {
	Server(id int64) (*Server, error)
}

// Outcome describes a completed backup run.
type Outcome struct {
	File     string
	Size     int64
	Output   string
	Duration time.Duration
}

// Executor runs a backup and reports the result through onComplete, which is
// invoked exactly once per call, possibly from another goroutine.
type Executor interface {
	Execute(ctx context.Context, job models.BackupJob, onComplete func(Outcome, error))
}

// PgDumpExecutor shells out to pg_dump / pg_dumpall.
type PgDumpExecutor struct {
	servers     ServerRegistry
	dumpPath    string
	dumpallPath string
}

func NewPgDumpExecutor(servers ServerRegistry, dumpPath, dumpallPath string) *PgDumpExecutor {
	if dumpPath == "" {
		dumpPath = "pg_dump"
	}
	if dumpallPath == "" {
		dumpallPath = "pg_dumpall"
	}
	return &PgDumpExecutor{
		servers:     servers,
		dumpPath:    dumpPath,
		dumpallPath: dumpallPath,
	}
}

func (e *PgDumpExecutor) Execute(ctx context.Context, job models.BackupJob, onComplete func(Outcome, error)) {
	go func() {
		started := time.Now()
		outcome, err := e.run(ctx, job)
		outcome.Duration = time.Since(started)
		onComplete(outcome, err)
	}()
}

func (e *PgDumpExecutor) run(ctx context.Context, job models.BackupJob) (Outcome, error) {
	server, err := e.servers.Server(job.ServerID)
	if err != nil {
		return Outcome{}, fmt.Errorf("server %d: %w", job.ServerID, err)
	}

	utility := e.Utility(job.Config.Scope)
	if err := UtilityExists(utility); err != nil {
		return Outcome{}, err
	}

	args := BuildArgs(job.Config, server)

	log.Printf("executor: running %s for job %d (server %s)", utility, job.ID, server.Name)

	cmd := exec.CommandContext(ctx, utility, args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+server.Password)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return Outcome{Output: output.String()},
			fmt.Errorf("%s failed: %w: %s", utility, err, output.String())
	}

	outcome := Outcome{File: job.Config.File, Output: output.String()}
	if info, statErr := os.Stat(job.Config.File); statErr == nil {
		outcome.Size = info.Size()
	}
	return outcome, nil
}

// Utility returns the dump binary for a backup scope: pg_dump for a single
// database, pg_dumpall for server and globals backups.
func (e *PgDumpExecutor) Utility(scope models.BackupScope) string {
	if scope == models.ScopeObjects {
		return e.dumpPath
	}
	return e.dumpallPath
}

// UtilityExists checks that the dump binary is reachable before a run is
// attempted, so a misconfigured path fails the job instead of the loop.
func UtilityExists(utility string) error {
	if _, err := exec.LookPath(utility); err != nil {
		return fmt.Errorf("backup utility %q not found: %w", utility, err)
	}
	return nil
}
