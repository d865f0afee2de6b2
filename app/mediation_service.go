package app

import (
	"context"
	"math"
	"time"

	"hdmed/domain/mediation"
	"hdmed/internal"
	"hdmed/internal/diagnostics"
	"hdmed/internal/errors"
	"hdmed/internal/estimator"
	"hdmed/models"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"
)

// waldZ is the two-sided 95% normal critical value used for intervals
const waldZ = 1.96

// MediationService is the inference wrapper around the cross-fitting
// engine: it turns raw effect/variance vectors into standard errors,
// Wald p-values and labeled result tables, and drives the per-category
// estimation loop.
type MediationService struct {
	engine *estimator.Engine
	logger *internal.Logger
}

// NewMediationService creates the service around an engine
func NewMediationService(engine *estimator.Engine) *MediationService {
	return &MediationService{
		engine: engine,
		logger: internal.DefaultLogger,
	}
}

// NewDefaultMediationService builds the service with the built-in ridge
// learners.
func NewDefaultMediationService(params mediation.LearnerParams) *MediationService {
	return NewMediationService(estimator.NewDefaultEngine(params))
}

// Infer estimates category j versus the reference level and converts the
// raw output into an inference table. It fails explicitly when every row
// was trimmed rather than returning NaN standard errors.
func (s *MediationService) Infer(ctx context.Context, ds *mediation.Dataset, j int, cfg mediation.Config) (*models.CategoryResult, error) {
	raw, brief, err := s.engine.Estimate(ctx, ds, j, cfg)
	if err != nil {
		return nil, err
	}
	if raw.Retained == 0 {
		return nil, errors.OverTrimmed()
	}
	return s.buildResult(raw, brief, cfg.Variant), nil
}

// EstimateAll runs the driver loop over every non-reference category and
// assembles the run report.
func (s *MediationService) EstimateAll(ctx context.Context, ds *mediation.Dataset, cfg mediation.Config) (*models.Report, error) {
	kind := mediation.DetectOutcomeKind(ds.Y)
	report := &models.Report{
		RunID:       uuid.New(),
		CreatedAt:   time.Now().UTC(),
		SampleSize:  ds.N(),
		OutcomeKind: kind.String(),
		Config:      cfg,
	}

	s.logger.Info("mediation run %s: n=%d, K=%d, outcome=%s", report.RunID, ds.N(), ds.Categories(), kind)
	for j := 1; j < ds.Categories(); j++ {
		result, err := s.Infer(ctx, ds, j, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "estimation failed for category %d", j)
		}
		report.Categories = append(report.Categories, *result)
	}
	return report, nil
}

// buildResult converts raw effects into labeled estimates with standard
// errors and two-sided normal-approximation Wald p-values.
func (s *MediationService) buildResult(raw *mediation.RawResult, brief *diagnostics.Brief, variant mediation.Variant) *models.CategoryResult {
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	result := &models.CategoryResult{
		Category:    raw.Category,
		Retained:    raw.Retained,
		Trimmed:     raw.Trimmed,
		Diagnostics: brief,
	}

	for _, c := range variant.Contrasts() {
		estimate := raw.Effect(c)
		se := math.Sqrt(raw.Variance(c) / float64(raw.Retained))

		p := math.NaN()
		if se > 0 {
			p = 2 * normal.CDF(-math.Abs(estimate/se))
		}
		result.Effects = append(result.Effects, models.EffectEstimate{
			Contrast: c,
			Estimate: estimate,
			StdErr:   se,
			PValue:   p,
			CILower:  estimate - waldZ*se,
			CIUpper:  estimate + waldZ*se,
		})
	}
	return result
}
