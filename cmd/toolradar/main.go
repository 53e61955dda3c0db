package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/toolradar-lab/toolradar/internal/ads"
	"github.com/toolradar-lab/toolradar/internal/aggregation"
	"github.com/toolradar-lab/toolradar/internal/config"
	"github.com/toolradar-lab/toolradar/internal/core/scoring"
	"github.com/toolradar-lab/toolradar/internal/core/storage/postgres"
	"github.com/toolradar-lab/toolradar/internal/ingestion"
	"github.com/toolradar-lab/toolradar/internal/jobs"
	"github.com/toolradar-lab/toolradar/internal/migrations"
	"github.com/toolradar-lab/toolradar/internal/rankings"
	"github.com/toolradar-lab/toolradar/internal/retention"
	"github.com/toolradar-lab/toolradar/internal/server"
)

func main() {
	configPath := flag.String("config", "toolradar.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"window_days", cfg.Analytics.WindowDays,
		"retention_days", cfg.Analytics.RetentionDays,
		"scoring_profile", cfg.Analytics.ScoringProfile,
	)

	// 2. Initialize Storage (PostgreSQL)
	eventStore, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer eventStore.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(eventStore.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	statsStore := postgres.NewStatsAdapter(eventStore.DB())
	catalog := postgres.NewCatalogAdapter(eventStore.DB())

	adStore, err := postgres.NewAdsAdapter(eventStore.DB())
	if err != nil {
		slog.Error("Failed to initialize ad store", "error", err)
		os.Exit(1)
	}
	defer adStore.Close()

	// 3. Resolve the scoring profile
	weights, err := scoringProfiles(cfg)
	if err != nil {
		slog.Error("Failed to load scoring profiles", "error", err)
		os.Exit(1)
	}

	// 4. Jobs: aggregation + retention on the cron schedule
	aggJob := aggregation.NewJob(eventStore, statsStore, catalog, weights, cfg.Analytics.WorkerCount)
	sweeper := retention.NewSweeper(eventStore, retention.LogNotifier{}, cfg.Analytics.DeletionAlertThreshold)

	runner := jobs.NewRunner()
	if err := registerJobs(runner, cfg, aggJob, sweeper); err != nil {
		slog.Error("Failed to register jobs", "error", err)
		os.Exit(1)
	}

	// 5. HTTP services
	ingestionSvc := ingestion.NewService(eventStore, catalog, cfg.Analytics.WindowDays, cfg.Server.MaxBodySizeMB)
	rankingSvc := rankings.NewService(statsStore)
	adSvc := ads.NewService(adStore, cfg.Ads.DefaultStrategy)
	jobsHandler := jobs.NewHandler(runner, aggJob, sweeper, cfg.Analytics.WindowDays, cfg.Analytics.RetentionDays)

	srv := server.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), eventStore.DB(), cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	rankingSvc.RegisterRoutes(srv.Engine)
	adSvc.RegisterRoutes(srv.Engine)
	jobsHandler.RegisterRoutes(srv.Engine)

	// 6. Start
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Jobs.Enabled {
		runner.Start()
		defer runner.Stop()
	} else {
		slog.Info("Scheduled jobs disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func scoringProfiles(cfg *config.Config) (scoring.Weights, error) {
	repo, err := scoring.NewProfileRepository(cfg.Analytics.ScoringProfileDir)
	if err != nil {
		return scoring.Weights{}, err
	}
	return repo.Get(cfg.Analytics.ScoringProfile)
}

func registerJobs(runner *jobs.Runner, cfg *config.Config, aggJob *aggregation.Job, sweeper *retention.Sweeper) error {
	if err := runner.Register(jobs.JobAggregation, cfg.Jobs.AggregateSpec, func(ctx context.Context) error {
		_, err := aggJob.Run(ctx, aggregation.Params{WindowDays: cfg.Analytics.WindowDays})
		return err
	}); err != nil {
		return err
	}
	return runner.Register(jobs.JobRetention, cfg.Jobs.SweepSpec, func(ctx context.Context) error {
		_, err := sweeper.Sweep(ctx, retention.Params{RetentionDays: cfg.Analytics.RetentionDays})
		return err
	})
}
