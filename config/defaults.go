package config

const (
	DefaultWorkerCount   = 4
	DefaultPollInterval  = 30
	DefaultStorageDriver = Postgres
	DefaultAPIPort       = 8080
)
