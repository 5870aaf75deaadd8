package scheduler

import (
	"context"
	"fmt"

	"github.com/aristath/volregime/internal/database"
	"github.com/rs/zerolog"
)

// RunPruner removes old analysis runs
type RunPruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// MaintenanceJob applies run retention and then compacts the database
type MaintenanceJob struct {
	db     *database.DB
	pruner RunPruner
	keep   int
	log    zerolog.Logger
}

// NewMaintenanceJob creates a new MaintenanceJob. keep <= 0 disables pruning.
func NewMaintenanceJob(db *database.DB, pruner RunPruner, keep int, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:     db,
		pruner: pruner,
		keep:   keep,
		log:    log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	if j.pruner != nil && j.keep > 0 {
		if _, err := j.pruner.Prune(context.Background(), j.keep); err != nil {
			return err
		}
	}
	return j.vacuum()
}

// vacuum performs VACUUM on the database
func (j *MaintenanceJob) vacuum() error {
	j.log.Debug().Str("database", j.db.Name()).Msg("Starting VACUUM")

	// Get size before VACUUM
	var pageCount, pageSize int
	_ = j.db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount)
	_ = j.db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize)
	sizeBefore := float64(pageCount*pageSize) / 1024 / 1024

	if _, err := j.db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	_ = j.db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount)
	sizeAfter := float64(pageCount*pageSize) / 1024 / 1024

	j.log.Info().
		Str("database", j.db.Name()).
		Float64("size_before_mb", sizeBefore).
		Float64("size_after_mb", sizeAfter).
		Float64("space_reclaimed_mb", sizeBefore-sizeAfter).
		Msg("VACUUM completed")

	return nil
}
