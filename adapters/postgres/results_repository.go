package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"hdmed/domain/mediation"
	"hdmed/models"
	"hdmed/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ResultsRepositoryImpl implements ResultsRepository for PostgreSQL
type ResultsRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultsRepository creates a new PostgreSQL results repository
func NewResultsRepository(db *sqlx.DB) ports.ResultsRepository {
	return &ResultsRepositoryImpl{db: db}
}

// Connect opens a PostgreSQL connection for the repository
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the result tables when they do not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS mediation_runs (
			run_id       UUID PRIMARY KEY,
			created_at   TIMESTAMPTZ NOT NULL,
			sample_size  INTEGER NOT NULL,
			outcome_kind TEXT NOT NULL,
			config       JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS mediation_effects (
			run_id      UUID NOT NULL REFERENCES mediation_runs(run_id) ON DELETE CASCADE,
			category    INTEGER NOT NULL,
			contrast    TEXT NOT NULL,
			estimate    DOUBLE PRECISION NOT NULL,
			std_err     DOUBLE PRECISION NOT NULL,
			p_value     DOUBLE PRECISION,
			ci_lower    DOUBLE PRECISION NOT NULL,
			ci_upper    DOUBLE PRECISION NOT NULL,
			retained    INTEGER NOT NULL,
			trimmed     INTEGER NOT NULL,
			diagnostics JSONB,
			PRIMARY KEY (run_id, category, contrast)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create mediation tables: %w", err)
	}
	return nil
}

// SaveReport upserts a run and its effect rows
func (r *ResultsRepositoryImpl) SaveReport(ctx context.Context, report *models.Report) error {
	configJSON, err := json.Marshal(report.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mediation_runs (run_id, created_at, sample_size, outcome_kind, config)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			sample_size = EXCLUDED.sample_size,
			outcome_kind = EXCLUDED.outcome_kind,
			config = EXCLUDED.config`,
		report.RunID, report.CreatedAt, report.SampleSize, report.OutcomeKind, configJSON)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.RunID, err)
	}

	for _, category := range report.Categories {
		var diagJSON []byte
		if category.Diagnostics != nil {
			diagJSON, _ = json.Marshal(category.Diagnostics)
		}
		for _, effect := range category.Effects {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO mediation_effects (
					run_id, category, contrast, estimate, std_err, p_value,
					ci_lower, ci_upper, retained, trimmed, diagnostics
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (run_id, category, contrast) DO UPDATE SET
					estimate = EXCLUDED.estimate,
					std_err = EXCLUDED.std_err,
					p_value = EXCLUDED.p_value,
					ci_lower = EXCLUDED.ci_lower,
					ci_upper = EXCLUDED.ci_upper,
					retained = EXCLUDED.retained,
					trimmed = EXCLUDED.trimmed,
					diagnostics = EXCLUDED.diagnostics`,
				report.RunID, category.Category, string(effect.Contrast),
				effect.Estimate, effect.StdErr, effect.PValue,
				effect.CILower, effect.CIUpper, category.Retained, category.Trimmed, diagJSON)
			if err != nil {
				return fmt.Errorf("failed to save effect row %s/%d/%s: %w",
					report.RunID, category.Category, effect.Contrast, err)
			}
		}
	}
	return tx.Commit()
}

// GetReport loads one run with its effect rows
func (r *ResultsRepositoryImpl) GetReport(ctx context.Context, runID uuid.UUID) (*models.Report, error) {
	var run struct {
		RunID       uuid.UUID `db:"run_id"`
		CreatedAt   sql.NullTime
		SampleSize  int    `db:"sample_size"`
		OutcomeKind string `db:"outcome_kind"`
		Config      []byte `db:"config"`
	}
	err := r.db.QueryRowxContext(ctx, `
		SELECT run_id, created_at, sample_size, outcome_kind, config
		FROM mediation_runs WHERE run_id = $1`, runID).
		Scan(&run.RunID, &run.CreatedAt, &run.SampleSize, &run.OutcomeKind, &run.Config)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	report := &models.Report{
		RunID:       run.RunID,
		SampleSize:  run.SampleSize,
		OutcomeKind: run.OutcomeKind,
	}
	if run.CreatedAt.Valid {
		report.CreatedAt = run.CreatedAt.Time
	}
	if err := json.Unmarshal(run.Config, &report.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run config: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, `
		SELECT category, contrast, estimate, std_err, p_value, ci_lower, ci_upper, retained, trimmed
		FROM mediation_effects WHERE run_id = $1
		ORDER BY category, contrast`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load effect rows: %w", err)
	}
	defer rows.Close()

	byCategory := make(map[int]*models.CategoryResult)
	var order []int
	for rows.Next() {
		var (
			category, retained, trimmed int
			contrast                    string
			effect                      models.EffectEstimate
			pValue                      sql.NullFloat64
		)
		if err := rows.Scan(&category, &contrast, &effect.Estimate, &effect.StdErr,
			&pValue, &effect.CILower, &effect.CIUpper, &retained, &trimmed); err != nil {
			return nil, fmt.Errorf("failed to scan effect row: %w", err)
		}
		effect.Contrast = mediation.Contrast(contrast)
		if pValue.Valid {
			effect.PValue = pValue.Float64
		}

		result, ok := byCategory[category]
		if !ok {
			result = &models.CategoryResult{Category: category, Retained: retained, Trimmed: trimmed}
			byCategory[category] = result
			order = append(order, category)
		}
		result.Effects = append(result.Effects, effect)
	}
	for _, category := range order {
		report.Categories = append(report.Categories, *byCategory[category])
	}
	return report, nil
}

// ListReports returns run summaries, newest first
func (r *ResultsRepositoryImpl) ListReports(ctx context.Context, limit int) ([]models.ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryxContext(ctx, `
		SELECT r.run_id, r.created_at, r.sample_size,
		       COUNT(DISTINCT e.category) AS categories
		FROM mediation_runs r
		LEFT JOIN mediation_effects e ON e.run_id = r.run_id
		GROUP BY r.run_id, r.created_at, r.sample_size
		ORDER BY r.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []models.ReportSummary
	for rows.Next() {
		var s models.ReportSummary
		if err := rows.Scan(&s.RunID, &s.CreatedAt, &s.SampleSize, &s.Categories); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
