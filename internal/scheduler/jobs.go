package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradebook/journal/internal/database"
	"github.com/tradebook/journal/internal/events"
	"github.com/tradebook/journal/internal/modules/analytics"
	"github.com/tradebook/journal/internal/modules/snapshots"
)

// SnapshotRefreshJob re-warms the analytics report caches for the ranges
// clients request most, so dashboards load from cache after a restart or
// a cache expiry.
type SnapshotRefreshJob struct {
	service *analytics.Service
	bus     *events.Bus
	log     zerolog.Logger
}

// NewSnapshotRefreshJob creates a new snapshot refresh job
func NewSnapshotRefreshJob(service *analytics.Service, bus *events.Bus, log zerolog.Logger) *SnapshotRefreshJob {
	return &SnapshotRefreshJob{
		service: service,
		bus:     bus,
		log:     log.With().Str("job", "snapshot_refresh").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotRefreshJob) Name() string {
	return "snapshot-refresh"
}

// Run warms the common report ranges
func (j *SnapshotRefreshJob) Run() error {
	now := time.Now().UTC()

	ranges := []*analytics.DateRange{
		nil, // all-time
		{From: now.AddDate(0, 0, -6), To: now},
		{From: now.AddDate(0, 0, -29), To: now},
		{From: now.AddDate(0, 0, -89), To: now},
	}

	j.service.Warm(ranges)

	if j.bus != nil {
		j.bus.Publish(events.EventSnapshotRefreshed, map[string]interface{}{
			"ranges": len(ranges),
		})
	}

	return nil
}

// CacheCleanupJob removes expired snapshot rows so the cache database
// doesn't grow without bound.
type CacheCleanupJob struct {
	snapshots *snapshots.Repository
	log       zerolog.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(repo *snapshots.Repository, log zerolog.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		snapshots: repo,
		log:       log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache-cleanup"
}

// Run deletes expired snapshots
func (j *CacheCleanupJob) Run() error {
	deleted, err := j.snapshots.DeleteExpired()
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Expired snapshots removed")
	}

	return nil
}

// DatabaseMaintenanceJob verifies database integrity and truncates WAL
// files so they don't grow without bound between checkpoints.
type DatabaseMaintenanceJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewDatabaseMaintenanceJob creates a new database maintenance job
func NewDatabaseMaintenanceJob(databases []*database.DB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "db_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "db-maintenance"
}

// Run checks every database and forces a WAL checkpoint
func (j *DatabaseMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			return fmt.Errorf("wal checkpoint failed: %w", err)
		}

		j.log.Debug().Str("database", db.Name()).Msg("Database healthy, WAL truncated")
	}

	return nil
}

// Backuper is what the backup job needs from the backup service.
type Backuper interface {
	CreateBackup() error
	RotateOldBackups(ctx context.Context, retentionDays int) error
}

// BackupJob runs the periodic database backup and rotates old archives.
type BackupJob struct {
	backuper      Backuper
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(backuper Backuper, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backuper:      backuper,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run performs a backup, then prunes archives past retention
func (j *BackupJob) Run() error {
	if err := j.backuper.CreateBackup(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// A failed rotation never fails the backup that just succeeded
	if err := j.backuper.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}
