package executor

import (
	"strconv"

	"pgbackup/internal/models"
)

var formatFlags = map[string]string{
	"custom":    "c",
	"tar":       "t",
	"plain":     "p",
	"directory": "d",
}

// BuildArgs assembles the pg_dump / pg_dumpall argument vector for a backup
// configuration. Pure, so option mapping is testable without a server.
func BuildArgs(cfg models.BackupConfig, server *Server) []string {
	args := []string{
		"--file", cfg.File,
		"--host", server.Host,
		"--port", strconv.Itoa(server.Port),
		"--username", server.Username,
		"--no-password",
	}

	setParam := func(on bool, param string) {
		if on {
			args = append(args, param)
		}
	}
	setValue := func(val, param string) {
		if val != "" {
			args = append(args, param, val)
		}
	}
	setEach := func(vals []string, param string) {
		for _, v := range vals {
			args = append(args, param, v)
		}
	}

	if cfg.Scope != models.ScopeObjects {
		args = append(args, "--database", server.MaintenanceDB)
	}
	if cfg.Scope == models.ScopeGlobals {
		args = append(args, "--globals-only")
	}

	setValue(cfg.Role, "--role")

	if cfg.Scope == models.ScopeObjects && cfg.Format != "" {
		args = append(args, "--format="+formatFlags[cfg.Format])
		setParam(cfg.Blobs && (cfg.Format == "custom" || cfg.Format == "tar"), "--blobs")
		if cfg.Ratio > 0 {
			args = append(args, "--compress", strconv.Itoa(cfg.Ratio))
		}
	}

	setValue(cfg.Encoding, "--encoding")
	if cfg.NoOfJobs > 0 {
		args = append(args, "--jobs", strconv.Itoa(cfg.NoOfJobs))
	}

	// Data options
	setParam(cfg.OnlyData, "--data-only")
	setParam(cfg.OnlySchema && !cfg.OnlyData, "--schema-only")

	// Sections
	setParam(cfg.PreData, "--section=pre-data")
	setParam(cfg.Data, "--section=data")
	setParam(cfg.PostData, "--section=post-data")

	// Do not save
	setParam(cfg.DNSOwner, "--no-owner")
	setParam(cfg.DNSPrivilege, "--no-privileges")
	setParam(cfg.DNSTablespace, "--no-tablespaces")
	setParam(cfg.DNSUnloggedTblData, "--no-unlogged-table-data")
	setParam(cfg.DNSComments, "--no-comments")

	// Query options
	setParam(cfg.UseInsertCommands, "--inserts")
	setParam(cfg.IncludeCreateDatabase, "--create")
	setParam(cfg.IncludeDropDatabase, "--clean")
	setParam(cfg.IfExists, "--if-exists")

	// Table options
	setParam(cfg.UseColumnInserts, "--column-inserts")
	setEach(cfg.ExcludeTableData, "--exclude-table-data")
	setEach(cfg.ExcludeTable, "--exclude-table")

	// Disable options
	setParam(cfg.DisableTrigger && cfg.OnlyData && cfg.Format == "plain", "--disable-triggers")
	setParam(cfg.DisableQuoting, "--disable-dollar-quoting")

	// Misc options
	setParam(cfg.Verbose, "--verbose")
	setParam(cfg.DQoute, "--quote-all-identifiers")
	setParam(cfg.UseSetSessionAuth, "--use-set-session-authorization")
	setEach(cfg.ExcludeSchema, "--exclude-schema")
	setValue(cfg.LockWaitTimeout, "--lock-wait-timeout")

	setEach(cfg.Schemas, "--schema")
	for _, table := range cfg.Tables {
		args = append(args, "--table", table.Schema+"."+table.Name)
	}

	if cfg.Scope == models.ScopeObjects {
		args = append(args, cfg.Database)
	}

	return args
}
