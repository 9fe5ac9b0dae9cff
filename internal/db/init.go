package db

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"

	_ "github.com/lib/pq"

	"pgbackup/internal/lock"
)

const schema = "pgbackup_schema"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Init creates the job schema and applies the embedded migration scripts.
// The migration advisory lock keeps concurrently starting instances from
// racing schema setup.
func Init(postgresURL string, locks lock.AdvisoryLockManager) error {
	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = locks.Acquire(lock.MigrationLock); err != nil {
		return err
	}
	defer locks.Release(lock.MigrationLock)

	if err = db.Ping(); err != nil {
		return err
	}

	_, err = db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	if err != nil {
		return err
	}

	scripts, err := readMigrationScripts()
	if err != nil {
		return err
	}
	for _, script := range scripts {
		if _, err := db.Exec(script); err != nil {
			return err
		}
	}

	return nil
}

func readMigrationScripts() ([]string, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		content, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, string(content))
	}
	return scripts, nil
}
