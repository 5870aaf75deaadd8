package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/volregime/internal/database"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Repository stores analysis runs in SQLite
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new analysis run repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "analysis").Logger(),
	}
}

// Save stores a run and its per-day regimes in one transaction
func (r *Repository) Save(ctx context.Context, result *Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", result.ID, err)
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO analysis_runs (
				id, created_at, dataset, profile_name, states, converged, iterations,
				log_likelihood, observations, start_date, end_date, duration_ms, result_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.ID,
			result.CreatedAt.Unix(),
			result.Dataset,
			result.Profile.Name,
			result.Model.States,
			boolToInt(result.Model.Converged),
			result.Model.Iterations,
			result.Score.LogLikelihood,
			result.Observations,
			result.Start.Format(dateLayout),
			result.End.Format(dateLayout),
			result.Duration.Milliseconds(),
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO regime_states (run_id, date, state, label) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare regime insert: %w", err)
		}
		defer stmt.Close()

		for _, day := range result.Days {
			if _, err := stmt.ExecContext(ctx, result.ID, day.Date.Format(dateLayout), day.State, day.Label); err != nil {
				return fmt.Errorf("failed to insert regime for %s: %w", day.Date.Format(dateLayout), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Str("run_id", result.ID).Int("days", len(result.Days)).Msg("Analysis run saved")
	return nil
}

// Get returns a stored run by ID
func (r *Repository) Get(ctx context.Context, id string) (*Result, error) {
	row := r.db.QueryRowContext(ctx, `SELECT result_json FROM analysis_runs WHERE id = ?`, id)
	return r.scanResult(row)
}

// Latest returns the most recent run
func (r *Repository) Latest(ctx context.Context) (*Result, error) {
	row := r.db.QueryRowContext(ctx, `SELECT result_json FROM analysis_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	return r.scanResult(row)
}

func (r *Repository) scanResult(row *sql.Row) (*Result, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &result, nil
}

// List returns the most recent runs, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, dataset, profile_name, states, converged, iterations,
		       log_likelihood, observations, start_date, end_date, duration_ms
		FROM analysis_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var run RunSummary
		var createdAt int64
		var converged int

		if err := rows.Scan(
			&run.ID,
			&createdAt,
			&run.Dataset,
			&run.ProfileName,
			&run.States,
			&converged,
			&run.Iterations,
			&run.LogLikelihood,
			&run.Observations,
			&run.Start,
			&run.End,
			&run.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.CreatedAt = time.Unix(createdAt, 0).UTC()
		run.Converged = converged != 0
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// States returns the decoded regime per day of a stored run
func (r *Repository) States(ctx context.Context, id string) ([]DayState, error) {
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_runs WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return nil, ErrRunNotFound
	}

	rows, err := r.db.QueryContext(ctx, `SELECT date, state, label FROM regime_states WHERE run_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query regimes: %w", err)
	}
	defer rows.Close()

	days := []DayState{}
	for rows.Next() {
		var day DayState
		var date string
		if err := rows.Scan(&date, &day.State, &day.Label); err != nil {
			return nil, fmt.Errorf("failed to scan regime: %w", err)
		}
		if day.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
		}
		days = append(days, day)
	}

	return days, rows.Err()
}

// Delete removes a run and its regimes
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analysis_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Prune deletes all but the keep most recent runs and returns how many
// were removed. Their regime states go with them.
func (r *Repository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("invalid retention %d", keep)
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM analysis_runs
		WHERE id NOT IN (
			SELECT id FROM analysis_runs ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Info().Int64("deleted", n).Int("kept", keep).Msg("Pruned analysis runs")
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
