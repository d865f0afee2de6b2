package models

import (
	"time"

	"hdmed/domain/mediation"
	"hdmed/internal/diagnostics"

	"github.com/google/uuid"
)

// EffectEstimate is one labeled row of the inference table
type EffectEstimate struct {
	Contrast mediation.Contrast `json:"contrast" db:"contrast"`
	Estimate float64            `json:"estimate" db:"estimate"`
	StdErr   float64            `json:"std_err" db:"std_err"`
	PValue   float64            `json:"p_value" db:"p_value"`
	CILower  float64            `json:"ci_lower" db:"ci_lower"`
	CIUpper  float64            `json:"ci_upper" db:"ci_upper"`
}

// CategoryResult holds the inference table for one exposure category
// versus the reference level, plus the trimming accounting.
type CategoryResult struct {
	Category int              `json:"category"`
	Effects  []EffectEstimate `json:"effects"`
	Retained int              `json:"retained"`
	Trimmed  int              `json:"trimmed"`

	Diagnostics *diagnostics.Brief `json:"diagnostics,omitempty"`
}

// Report aggregates the per-category results of one estimation run
type Report struct {
	RunID      uuid.UUID        `json:"run_id"`
	CreatedAt  time.Time        `json:"created_at"`
	SampleSize int              `json:"sample_size"`
	Categories []CategoryResult `json:"categories"`

	OutcomeKind string           `json:"outcome_kind"`
	Config      mediation.Config `json:"config"`
}

// ReportSummary is the listing row for persisted reports
type ReportSummary struct {
	RunID      uuid.UUID `json:"run_id" db:"run_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	SampleSize int       `json:"sample_size" db:"sample_size"`
	Categories int       `json:"categories" db:"categories"`
}
