// Package estimator implements the cross-fitted double machine learning
// engine for natural direct and indirect effects of a multi-category
// exposure. Nuisance functions are fit on rotating sample splits and
// combined into Neyman-orthogonal doubly robust scores, so effect
// estimates stay root-n consistent under regularized nuisance learners.
package estimator

import (
	"context"

	"hdmed/adapters/learners"
	"hdmed/domain/mediation"
	"hdmed/internal"
	"hdmed/internal/crossfit"
	"hdmed/internal/diagnostics"
	"hdmed/internal/errors"
	"hdmed/ports"

	"golang.org/x/sync/errgroup"
)

// Engine wires the nuisance learners into the cross-fitting procedure.
// The outcome learner is selected once per call from the detected outcome
// kind and never re-detected mid-pass.
type Engine struct {
	propensity ports.PropensityLearner
	continuous ports.OutcomeLearner
	binary     ports.OutcomeLearner
	logger     *internal.Logger
}

// NewEngine creates an engine with explicit learner adapters
func NewEngine(propensity ports.PropensityLearner, continuous, binary ports.OutcomeLearner) *Engine {
	return &Engine{
		propensity: propensity,
		continuous: continuous,
		binary:     binary,
		logger:     internal.DefaultLogger,
	}
}

// NewDefaultEngine creates an engine backed by the built-in ridge learners
func NewDefaultEngine(params mediation.LearnerParams) *Engine {
	return NewEngine(
		learners.NewRidgeMultinomial(params),
		learners.NewRidgeRegression(params),
		learners.NewRidgeLogistic(params),
	)
}

// outcomeLearner returns the adapter matching the tagged outcome kind
func (e *Engine) outcomeLearner(kind mediation.OutcomeKind) ports.OutcomeLearner {
	if kind == mediation.OutcomeBinary {
		return e.binary
	}
	return e.continuous
}

// Estimate runs one full cross-fitted estimation of category j versus the
// reference category 0. It returns the raw effect/variance vector plus a
// propensity diagnostics brief for the retained rows.
func (e *Engine) Estimate(ctx context.Context, ds *mediation.Dataset, j int, cfg mediation.Config) (*mediation.RawResult, *diagnostics.Brief, error) {
	if err := e.checkPreconditions(ds, j, cfg); err != nil {
		return nil, nil, err
	}

	kind := mediation.DetectOutcomeKind(ds.Y)
	e.logger.Debug("estimating category %d vs 0: n=%d, K=%d, outcome=%s, trim=%g, fewSplits=%v",
		j, ds.N(), ds.Categories(), kind, cfg.Trim, cfg.FewSplits)

	sched := crossfit.NewScheduler(cfg.Seed, cfg.FewSplits)
	passes, _, err := sched.Folds(ds.N())
	if err != nil {
		return nil, nil, errors.Precondition(err.Error())
	}

	// The passes are data-independent given the partition: each writes
	// only its own slab, joined in pass order afterwards.
	var slabs [3][]scoreRow
	var trimmedPerPass [3]int
	g, gctx := errgroup.WithContext(ctx)
	for i, pass := range passes {
		g.Go(func() error {
			slab, trimmed, passErr := e.runPass(gctx, ds, j, kind, pass, cfg.Trim)
			if passErr != nil {
				return passErr
			}
			slabs[i] = slab
			trimmedPerPass[i] = trimmed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var table []scoreRow
	trimmed := 0
	for i := range slabs {
		table = append(table, slabs[i]...)
		trimmed += trimmedPerPass[i]
	}
	if len(table) == 0 {
		return nil, nil, errors.OverTrimmed()
	}

	pseudo := computePseudoValues(table, j, cfg.Normalized)
	result := reduce(pseudo, j, len(table), trimmed)

	brief := briefFromTable(table, len(table), trimmed)
	e.logger.Debug("category %d: retained=%d trimmed=%d total=%.4f", j, result.Retained, result.Trimmed, result.Total)
	return result, brief, nil
}

// checkPreconditions fails fast before any fold is constructed
func (e *Engine) checkPreconditions(ds *mediation.Dataset, j int, cfg mediation.Config) error {
	if ds == nil {
		return errors.Precondition("dataset is nil")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Precondition(err.Error())
	}
	k := ds.Categories()
	if j < 1 || j >= k {
		return errors.Preconditionf("target category %d out of range [1,%d)", j, k)
	}
	if ds.CountLevel(allRows(ds.N()), j) == 0 {
		return errors.Preconditionf("exposure category %d has no observations", j)
	}
	return nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// briefFromTable summarizes the retained rows' propensities
func briefFromTable(table []scoreRow, retained, trimmed int) *diagnostics.Brief {
	p0x := make([]float64, len(table))
	pjx := make([]float64, len(table))
	p0mx := make([]float64, len(table))
	pjmx := make([]float64, len(table))
	for i, row := range table {
		p0x[i] = row.p0x
		pjx[i] = row.pjx
		p0mx[i] = row.p0mx
		pjmx[i] = row.pjmx
	}
	return diagnostics.NewBrief(p0x, pjx, p0mx, pjmx, retained, trimmed)
}
