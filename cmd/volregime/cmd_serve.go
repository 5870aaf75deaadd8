package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/volregime/internal/database"
	"github.com/aristath/volregime/internal/metrics"
	"github.com/aristath/volregime/internal/modules/analysis"
	"github.com/aristath/volregime/internal/scheduler"
	"github.com/aristath/volregime/internal/server"
)

// serveCmd runs the HTTP API with scheduled refreshes
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API",
	Long: `Start the HTTP API. Runs are persisted to the SQLite database in the data
directory. When VOLREGIME_REFRESH_SCHEDULE is set the default analysis is
re-run on that cron schedule.`,
	RunE: runServe,
}

var serveRefreshOnStart bool

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveRefreshOnStart, "refresh-on-start", false, "Run the default analysis once at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadEnvironment()
	if err != nil {
		return err
	}

	log.Info().Msg("Starting volregime")

	profile, err := resolveProfile(cfg, "")
	if err != nil {
		return err
	}

	db, err := database.New(database.Config{Path: cfg.DatabasePath(), Profile: database.ProfileStandard, Name: "analysis"})
	if err != nil {
		return err
	}
	// Closing checkpoints the WAL
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	repo := analysis.NewRepository(db.Conn(), log)
	service := analysis.NewService(cfg.Dataset, profile, repo, registry, log)

	sched := scheduler.New(log)
	refresh := scheduler.NewRefreshAnalysisJob(service, 5*time.Minute, log)
	if cfg.RefreshSchedule != "" {
		if err := sched.AddJob(cfg.RefreshSchedule, refresh); err != nil {
			return err
		}
	}
	if err := sched.AddJob("@hourly", scheduler.NewCheckWALCheckpointsJob(log, db)); err != nil {
		return err
	}
	// Sundays at 4 AM
	if err := sched.AddJob("0 4 * * SUN", scheduler.NewMaintenanceJob(db, repo, cfg.RetainRuns, log)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if serveRefreshOnStart {
		go func() {
			if err := sched.RunNow(refresh); err != nil {
				log.Error().Err(err).Msg("Startup analysis failed")
			}
		}()
	}

	srv := server.New(server.Config{
		Log:      log,
		DB:       db,
		Analysis: service,
		Metrics:  registry,
		Port:     cfg.Port,
		DevMode:  cfg.DevMode,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("volregime started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}
