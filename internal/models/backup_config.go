package models

// BackupScope selects which utility runs and what it dumps.
type BackupScope string

const (
	// ScopeObjects dumps a single database (pg_dump).
	ScopeObjects BackupScope = "objects"
	// ScopeServer dumps the whole cluster (pg_dumpall).
	ScopeServer BackupScope = "server"
	// ScopeGlobals dumps only global objects (pg_dumpall --globals-only).
	ScopeGlobals BackupScope = "globals"
)

// SchemaObject names a schema-qualified table selection.
type SchemaObject struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// BackupConfig holds the backup parameters forwarded verbatim to the
// executor. The scheduler never interprets these fields.
type BackupConfig struct {
	File     string      `json:"file"`
	Scope    BackupScope `json:"scope"`
	Database string      `json:"database,omitempty"`

	// Format is one of custom, tar, plain, directory (objects scope only).
	Format   string `json:"format,omitempty"`
	Role     string `json:"role,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	NoOfJobs int    `json:"no_of_jobs,omitempty"`
	Blobs    bool   `json:"blobs,omitempty"`
	Ratio    int    `json:"ratio,omitempty"`

	// Data options
	OnlyData   bool `json:"only_data,omitempty"`
	OnlySchema bool `json:"only_schema,omitempty"`

	// Sections
	PreData  bool `json:"pre_data,omitempty"`
	Data     bool `json:"data,omitempty"`
	PostData bool `json:"post_data,omitempty"`

	// Do-not-save options
	DNSOwner           bool `json:"dns_owner,omitempty"`
	DNSPrivilege       bool `json:"dns_privilege,omitempty"`
	DNSTablespace      bool `json:"dns_tablespace,omitempty"`
	DNSUnloggedTblData bool `json:"dns_unlogged_tbl_data,omitempty"`
	DNSComments        bool `json:"dns_comments,omitempty"`

	// Query options
	UseInsertCommands     bool `json:"use_insert_commands,omitempty"`
	IncludeCreateDatabase bool `json:"include_create_database,omitempty"`
	IncludeDropDatabase   bool `json:"include_drop_database,omitempty"`
	IfExists              bool `json:"if_exists,omitempty"`

	// Table options
	UseColumnInserts bool     `json:"use_column_inserts,omitempty"`
	ExcludeTableData []string `json:"exclude_table_data,omitempty"`
	ExcludeTable     []string `json:"exclude_table,omitempty"`

	// Disable options
	DisableTrigger bool `json:"disable_trigger,omitempty"`
	DisableQuoting bool `json:"disable_quoting,omitempty"`

	// Misc options
	Verbose           bool     `json:"verbose,omitempty"`
	DQoute            bool     `json:"dqoute,omitempty"`
	UseSetSessionAuth bool     `json:"use_set_session_auth,omitempty"`
	ExcludeSchema     []string `json:"exclude_schema,omitempty"`
	LockWaitTimeout   string   `json:"lock_wait_timeout,omitempty"`

	// Object selection
	Schemas []string       `json:"schemas,omitempty"`
	Tables  []SchemaObject `json:"tables,omitempty"`
}
