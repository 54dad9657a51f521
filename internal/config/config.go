// Package config loads application configuration from a YAML file, with
// environment overrides loaded from a .env file when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"papervault/internal/constants"
	"papervault/internal/logger"
)

// AuthConfig holds user-configurable authentication settings.
type AuthConfig struct {
	SessionDurationHours int `yaml:"session_duration_hours"`
	MinPasswordLength    int `yaml:"min_password_length"`
}

// SessionDuration returns the session duration as time.Duration.
func (c *AuthConfig) SessionDuration() time.Duration {
	return time.Duration(c.SessionDurationHours) * time.Hour
}

// StorageConfig selects and configures the blob storage backend.
// Backend is "file" (default) or "minio".
type StorageConfig struct {
	Backend        string `yaml:"backend"`
	Directory      string `yaml:"directory"`
	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`
}

// UploadConfig holds upload limits.
type UploadConfig struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
}

// Config holds all application configuration.
type Config struct {
	WorkingDirectory string        `yaml:"working_directory"`
	Port             int           `yaml:"port"`
	LogLevel         string        `yaml:"log_level"`
	DevMode          bool          `yaml:"dev_mode"`
	Auth             AuthConfig    `yaml:"auth"`
	Storage          StorageConfig `yaml:"storage"`
	Upload           UploadConfig  `yaml:"upload"`
}

// ApplyDefaults fills zero-valued fields with constant defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Port == 0 {
		cfg.Port = constants.DefaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = constants.DefaultLogLevel
	}
	if cfg.Auth.SessionDurationHours == 0 {
		cfg.Auth.SessionDurationHours = int(constants.AuthSessionDuration.Hours())
	}
	if cfg.Auth.MinPasswordLength == 0 {
		cfg.Auth.MinPasswordLength = constants.AuthMinPasswordLength
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.MinioBucket == "" {
		cfg.Storage.MinioBucket = constants.AppName
	}
	if cfg.Upload.MaxSizeBytes == 0 {
		cfg.Upload.MaxSizeBytes = constants.MaxUploadSizeBytes
	}
}

// ApplyEnvOverrides lets deployment environments override file-based settings.
// A .env file in the working directory is loaded first when present.
func (cfg *Config) ApplyEnvOverrides() {
	// Missing .env is fine; explicit env vars still apply
	godotenv.Load()

	if v := os.Getenv("PAPERVAULT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("PAPERVAULT_WORKDIR"); v != "" {
		cfg.WorkingDirectory = v
	}
	if v := os.Getenv("PAPERVAULT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PAPERVAULT_DEV_MODE"); v != "" {
		cfg.DevMode = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PAPERVAULT_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.Storage.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Storage.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Storage.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.Storage.MinioBucket = v
	}
}

// validate checks that all configurable values are within acceptable ranges.
func (cfg *Config) validate() error {
	var errs []string

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	if cfg.Auth.SessionDurationHours < 1 {
		errs = append(errs, "auth.session_duration_hours must be >= 1")
	}
	if cfg.Auth.MinPasswordLength < 8 {
		errs = append(errs, "auth.min_password_length must be >= 8")
	}
	if cfg.Storage.Backend != "file" && cfg.Storage.Backend != "minio" {
		errs = append(errs, "storage.backend must be \"file\" or \"minio\"")
	}
	if cfg.Storage.Backend == "minio" && cfg.Storage.MinioEndpoint == "" {
		errs = append(errs, "storage.minio_endpoint is required for the minio backend")
	}
	if cfg.Upload.MaxSizeBytes < 1 {
		errs = append(errs, "upload.max_size_bytes must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogEffectiveValues logs all effective configuration values at startup.
func (cfg *Config) LogEffectiveValues(log *logger.Logger) {
	log.Info("config: port=%d", cfg.Port)
	log.Info("config: log_level=%s", cfg.LogLevel)
	log.Info("config: dev_mode=%v", cfg.DevMode)
	log.Info("config: auth.session_duration_hours=%d", cfg.Auth.SessionDurationHours)
	log.Info("config: auth.min_password_length=%d", cfg.Auth.MinPasswordLength)
	log.Info("config: storage.backend=%s", cfg.Storage.Backend)
	log.Info("config: upload.max_size_bytes=%d", cfg.Upload.MaxSizeBytes)
}

func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, constants.ConfigDir)
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), constants.ConfigFile)
}

func EnsureConfigDir() error {
	return os.MkdirAll(GetConfigDir(), constants.DirPermissions)
}

// LoadConfig reads the config file, creating it with defaults when missing,
// then applies environment overrides and validates the result.
func LoadConfig() (*Config, error) {
	if err := EnsureConfigDir(); err != nil {
		return nil, err
	}

	configPath := GetConfigPath()

	_, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		cfg := &Config{}
		cfg.ApplyDefaults()

		if err := SaveConfig(cfg); err != nil {
			return nil, err
		}

		cfg.ApplyEnvOverrides()
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	cfg.ApplyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(GetConfigPath(), data, constants.FilePermissions)
}
