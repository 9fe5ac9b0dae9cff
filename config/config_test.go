package config

import (
	"testing"
)

func TestStorageDriver_String(t *testing.T) {
	tests := []struct {
		name     string
		driver   StorageDriver
		expected string
	}{
		{
			name:     "Postgres driver",
			driver:   Postgres,
			expected: "postgres",
		},
		{
			name:     "Redis driver",
			driver:   Redis,
			expected: "redis",
		},
		{
			name:     "Unknown driver",
			driver:   StorageDriver(999),
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.driver.String()
			if result != tt.expected {
				t.Errorf("String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	cfg, err := New("test-instance")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Instance != "test-instance" {
		t.Errorf("Instance = %v, want test-instance", cfg.Instance)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, DefaultPollInterval)
	}
	if cfg.WorkerCount != DefaultWorkerCount {
		t.Errorf("WorkerCount = %v, want %v", cfg.WorkerCount, DefaultWorkerCount)
	}
	if cfg.StorageDriver != DefaultStorageDriver {
		t.Errorf("StorageDriver = %v, want %v", cfg.StorageDriver, DefaultStorageDriver)
	}
}

func TestNew_AccumulatesOptionErrors(t *testing.T) {
	_, err := New("",
		WithPollInterval(0),
		WithWorkerCount(-1),
		WithPostgresConfig(PostgresConfig{}),
	)
	if err == nil {
		t.Fatal("expected validation errors, got none")
	}
}

func TestNew_WithOptions(t *testing.T) {
	cfg, err := New("prod",
		WithPollInterval(60),
		WithWorkerCount(8),
		WithPostgresConfig(PostgresConfig{ConnectionUrl: "postgres://localhost/backups"}),
		WithAPIAuth("admin", "$2a$10$hash", 9090),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.PollInterval != 60 {
		t.Errorf("PollInterval = %v, want 60", cfg.PollInterval)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("WorkerCount = %v, want 8", cfg.WorkerCount)
	}
	if cfg.StorageDriver != Postgres {
		t.Errorf("StorageDriver = %v, want Postgres", cfg.StorageDriver)
	}
	if !cfg.APIAuthEnabled || cfg.APIPort != 9090 {
		t.Errorf("api auth not applied: enabled=%v port=%v", cfg.APIAuthEnabled, cfg.APIPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate_MissingDriverSettings(t *testing.T) {
	cfg, err := New("prod")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for postgres driver without connection URL")
	}
}
