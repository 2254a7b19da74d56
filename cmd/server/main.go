// Package main is the entry point for the trade journal server.
// The server stores trade records, computes analytics reports over them
// (summary statistics, time-bucketed P&L series, categorical breakdowns),
// and runs background maintenance: snapshot warming, cache cleanup, backups.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tradebook/journal/internal/config"
	"github.com/tradebook/journal/internal/database"
	"github.com/tradebook/journal/internal/events"
	"github.com/tradebook/journal/internal/modules/analytics"
	analyticshandlers "github.com/tradebook/journal/internal/modules/analytics/handlers"
	"github.com/tradebook/journal/internal/modules/journal"
	journalhandlers "github.com/tradebook/journal/internal/modules/journal/handlers"
	"github.com/tradebook/journal/internal/modules/snapshots"
	"github.com/tradebook/journal/internal/reliability"
	"github.com/tradebook/journal/internal/scheduler"
	"github.com/tradebook/journal/internal/server"
	"github.com/tradebook/journal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting journal server")

	// journal.db holds the trades and favors durability; cache.db holds
	// recomputable snapshots and favors speed.
	journalDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "journal.db"),
		Profile: database.ProfileJournal,
		Name:    "journal",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open journal database")
	}
	defer journalDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := journal.InitSchema(journalDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize journal schema")
	}
	if err := snapshots.InitSchema(cacheDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshots schema")
	}

	bus := events.NewBus(log)

	tradeRepo := journal.NewTradeRepository(journalDB.Conn(), log)
	snapshotRepo := snapshots.NewRepository(cacheDB.Conn())

	snapshotTTL := time.Duration(cfg.SnapshotTTLMinutes) * time.Minute
	analyticsService := analytics.NewService(tradeRepo, snapshotRepo, snapshotTTL, log)

	// Recompute reports after any journal mutation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invalidatorID, invalidatorChan := bus.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-invalidatorChan:
				if !ok {
					return
				}
				if event.Type == events.EventJournalChanged {
					analyticsService.Invalidate()
				}
			}
		}
	}()
	defer bus.Unsubscribe(invalidatorID)

	var backupService *reliability.BackupService
	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(ctx, cfg.Backup)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 client")
		}
		backupService = reliability.NewBackupService(
			[]*database.DB{journalDB, cacheDB}, s3Client, cfg.DataDir, bus, log,
		)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backup uploads enabled")
	} else {
		backupService = reliability.NewBackupService(
			[]*database.DB{journalDB, cacheDB}, nil, cfg.DataDir, bus, log,
		)
		log.Info().Msg("Backup uploads not configured, archives stay local")
	}

	sched := scheduler.New(log)

	refreshJob := scheduler.NewSnapshotRefreshJob(analyticsService, bus, log)
	if err := sched.AddJob(cfg.SnapshotRefreshCron, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot refresh job")
	}

	cleanupJob := scheduler.NewCacheCleanupJob(snapshotRepo, log)
	if err := sched.AddJob(cfg.CacheCleanupCron, cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}

	backupJob := scheduler.NewBackupJob(backupService, cfg.BackupRetentionDays, log)
	if err := sched.AddJob(cfg.BackupCron, backupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register backup job")
	}

	maintenanceJob := scheduler.NewDatabaseMaintenanceJob([]*database.DB{journalDB, cacheDB}, log)
	if err := sched.AddJob(cfg.DBMaintenanceCron, maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register database maintenance job")
	}

	sched.Start()

	srv := server.New(server.Config{
		Log:           log,
		Cfg:           cfg,
		JournalDB:     journalDB,
		CacheDB:       cacheDB,
		Bus:           bus,
		BackupService: backupService,
		Modules: []server.RouteRegistrar{
			journalhandlers.NewHandler(tradeRepo, bus, log),
			analyticshandlers.NewHandler(analyticsService, log),
		},
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
