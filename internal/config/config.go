// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Snapshot cache
	SnapshotTTLMinutes int // How long a computed analytics report stays fresh

	// Scheduler cron specs (standard 5-field cron syntax)
	SnapshotRefreshCron string
	CacheCleanupCron    string
	BackupCron          string
	DBMaintenanceCron   string

	// How many days of backup archives to keep (0 disables rotation)
	BackupRetentionDays int

	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup storage configuration.
// Backups are disabled when AccessKeyID is empty.
type BackupConfig struct {
	Endpoint        string // S3-compatible endpoint URL (empty = AWS default)
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// Enabled reports whether backup uploads are configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.AccessKeyID != "" && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("JOURNAL_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		Port:                getEnvAsInt("PORT", 8080),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		SnapshotTTLMinutes:  getEnvAsInt("SNAPSHOT_TTL_MINUTES", 5),
		SnapshotRefreshCron: getEnv("SNAPSHOT_REFRESH_CRON", "*/15 * * * *"),
		CacheCleanupCron:    getEnv("CACHE_CLEANUP_CRON", "30 * * * *"),
		BackupCron:          getEnv("BACKUP_CRON", "0 3 * * *"),
		DBMaintenanceCron:   getEnv("DB_MAINTENANCE_CRON", "0 4 * * *"),
		BackupRetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		Backup: &BackupConfig{
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.SnapshotTTLMinutes <= 0 {
		return fmt.Errorf("invalid snapshot TTL: %d minutes", c.SnapshotTTLMinutes)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
