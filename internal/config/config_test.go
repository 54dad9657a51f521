package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"papervault/internal/constants"
)

// setTestHome overrides HOME so GetConfigDir/GetConfigPath use a temp directory.
func setTestHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	t.Cleanup(func() { os.Setenv("HOME", originalHome) })
	return tmpDir
}

func TestApplyDefaults_AllFieldsPopulated(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Port != constants.DefaultPort {
		t.Errorf("Port: got %d, want %d", cfg.Port, constants.DefaultPort)
	}
	if cfg.LogLevel != constants.DefaultLogLevel {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, constants.DefaultLogLevel)
	}
	if cfg.Auth.SessionDurationHours != int(constants.AuthSessionDuration.Hours()) {
		t.Errorf("Auth.SessionDurationHours: got %d, want %d",
			cfg.Auth.SessionDurationHours, int(constants.AuthSessionDuration.Hours()))
	}
	if cfg.Auth.MinPasswordLength != constants.AuthMinPasswordLength {
		t.Errorf("Auth.MinPasswordLength: got %d, want %d",
			cfg.Auth.MinPasswordLength, constants.AuthMinPasswordLength)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend: got %q, want \"file\"", cfg.Storage.Backend)
	}
	if cfg.Upload.MaxSizeBytes != constants.MaxUploadSizeBytes {
		t.Errorf("Upload.MaxSizeBytes: got %d, want %d", cfg.Upload.MaxSizeBytes, constants.MaxUploadSizeBytes)
	}
}

func TestApplyDefaults_PreservesCustomValues(t *testing.T) {
	cfg := &Config{
		Port:     9999,
		LogLevel: "debug",
		Auth:     AuthConfig{SessionDurationHours: 2},
		Storage:  StorageConfig{Backend: "minio", MinioEndpoint: "localhost:9000"},
	}
	cfg.ApplyDefaults()

	if cfg.Port != 9999 {
		t.Errorf("Port should be preserved: got %d", cfg.Port)
	}
	if cfg.Auth.SessionDurationHours != 2 {
		t.Errorf("Auth.SessionDurationHours should be preserved: got %d", cfg.Auth.SessionDurationHours)
	}
	if cfg.Storage.Backend != "minio" {
		t.Errorf("Storage.Backend should be preserved: got %q", cfg.Storage.Backend)
	}

	// Non-set fields should get defaults
	if cfg.Auth.MinPasswordLength != constants.AuthMinPasswordLength {
		t.Errorf("Auth.MinPasswordLength should get default: got %d", cfg.Auth.MinPasswordLength)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port"},
		{"short sessions", func(c *Config) { c.Auth.SessionDurationHours = -1 }, "session_duration_hours"},
		{"weak password floor", func(c *Config) { c.Auth.MinPasswordLength = 4 }, "min_password_length"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"minio without endpoint", func(c *Config) { c.Storage.Backend = "minio" }, "minio_endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	setTestHome(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != constants.DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Port)
	}

	// A config file must now exist
	if _, err := os.Stat(GetConfigPath()); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
}

func TestLoadConfigReadsExisting(t *testing.T) {
	setTestHome(t)

	if err := EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir failed: %v", err)
	}
	content := "port: 8123\nlog_level: debug\n"
	if err := os.WriteFile(GetConfigPath(), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != 8123 {
		t.Errorf("expected port 8123, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %q", cfg.LogLevel)
	}
}

func TestEnvOverrides(t *testing.T) {
	setTestHome(t)

	os.Setenv("PAPERVAULT_PORT", "6001")
	os.Setenv("PAPERVAULT_DEV_MODE", "true")
	t.Cleanup(func() {
		os.Unsetenv("PAPERVAULT_PORT")
		os.Unsetenv("PAPERVAULT_DEV_MODE")
	})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != 6001 {
		t.Errorf("expected env port override 6001, got %d", cfg.Port)
	}
	if !cfg.DevMode {
		t.Error("expected dev_mode override to apply")
	}
}

func TestInitializeWorkingDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	if err := InitializeWorkingDirectory(tmpDir); err != nil {
		t.Fatalf("InitializeWorkingDirectory failed: %v", err)
	}

	for _, dir := range []string{
		filepath.Join(tmpDir, constants.BlobDir),
		filepath.Join(tmpDir, constants.LogsDir, constants.LogsDirInfo),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

func TestValidateWorkingDirectory(t *testing.T) {
	if err := ValidateWorkingDirectory(t.TempDir()); err != nil {
		t.Errorf("expected temp dir to validate: %v", err)
	}
	if err := ValidateWorkingDirectory("/no/such/path"); err == nil {
		t.Error("expected error for missing directory")
	}
}
