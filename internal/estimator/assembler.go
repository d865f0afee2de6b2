package estimator

import (
	"context"
	"fmt"

	"hdmed/domain/mediation"
	"hdmed/internal/crossfit"
	"hdmed/internal/errors"
	"hdmed/ports"

	"gonum.org/v1/gonum/mat"
)

// scoreRow carries the per-test-row intermediate quantities one pass
// contributes to the score table. Only rows passing the trimming
// predicate are kept.
type scoreRow struct {
	z int
	y float64

	// propensities
	p0mx float64 // P(Z=0|M,X)
	pjmx float64 // P(Z=j|M,X)
	p0x  float64 // P(Z=0|X)
	pjx  float64 // P(Z=j|X)

	// outcome regressions
	eta0 float64 // E[Y|M,X,Z=0]
	etaj float64 // E[Y|M,X,Z=j]
	nu0  float64 // E[E[Y|M,X,Z=0]|X,Z=j], nested
	nuj  float64 // E[E[Y|M,X,Z=j]|X,Z=0], nested
	xi0  float64 // E[Y|X,Z=0]
	xij  float64 // E[Y|X,Z=j]
}

// runPass fits the pass's nuisance models on its training roles, predicts
// on the test fold and returns the trimmed score slab. Every model here is
// trained on rows disjoint from the pass's test fold.
func (e *Engine) runPass(ctx context.Context, ds *mediation.Dataset, j int, kind mediation.OutcomeKind, pass crossfit.Pass, trim float64) ([]scoreRow, int, error) {
	if len(pass.Test) == 0 {
		return nil, 0, errors.DegenerateFold(pass.Index, "empty test fold")
	}
	trainAll := pass.TrainUnion()
	if err := checkRoles(ds, j, pass, trainAll); err != nil {
		return nil, 0, err
	}

	xm := ds.MediatorAdjusted()
	x := ds.X
	k := ds.Categories()
	outcome := e.outcomeLearner(kind)

	// Step 1: mediator-adjusted and marginal propensities.
	propMX, err := e.propensity.Fit(ctx, xm, ds.Z, k, trainAll)
	if err != nil {
		return nil, 0, errors.LearnerFailure("P(Z|M,X)", err)
	}
	probsMX, err := propMX.Probabilities(xm, pass.Test)
	if err != nil {
		return nil, 0, errors.LearnerFailure("P(Z|M,X)", err)
	}
	propX, err := e.propensity.Fit(ctx, x, ds.Z, k, trainAll)
	if err != nil {
		return nil, 0, errors.LearnerFailure("P(Z|X)", err)
	}
	probsX, err := propX.Probabilities(x, pass.Test)
	if err != nil {
		return nil, 0, errors.LearnerFailure("P(Z|X)", err)
	}

	// Steps 2-3: E[Y|M,X,Z=0] and E[Y|M,X,Z=j] on mu-train, predicted on
	// both the test fold and the delta-train rows feeding step 4.
	mu0Model, err := fitOutcomeAtLevel(ctx, ds, outcome, xm, pass.MuTrain, 0, "E[Y|M,X,Z=0]")
	if err != nil {
		return nil, 0, err
	}
	eta0Test, err := mu0Model.Predict(xm, pass.Test)
	if err != nil {
		return nil, 0, errors.LearnerFailure("E[Y|M,X,Z=0]", err)
	}
	eta0Delta, err := mu0Model.Predict(xm, pass.DeltaTrain)
	if err != nil {
		return nil, 0, errors.LearnerFailure("E[Y|M,X,Z=0]", err)
	}

	mujModel, err := fitOutcomeAtLevel(ctx, ds, outcome, xm, pass.MuTrain, j, "E[Y|M,X,Z=j]")
	if err != nil {
		return nil, 0, err
	}
	etajTest, err := mujModel.Predict(xm, pass.Test)
	if err != nil {
		return nil, 0, errors.LearnerFailure("E[Y|M,X,Z=j]", err)
	}
	etajDelta, err := mujModel.Predict(xm, pass.DeltaTrain)
	if err != nil {
		return nil, 0, errors.LearnerFailure("E[Y|M,X,Z=j]", err)
	}

	// Step 4: nested regressions of the delta-train predictions on X.
	// These sequence after steps 2-3 by data dependency.
	nu0Test, err := fitNested(ctx, ds, outcome, x, pass, eta0Delta, j, "E[E[Y|M,X,Z=0]|X,Z=j]")
	if err != nil {
		return nil, 0, err
	}
	nujTest, err := fitNested(ctx, ds, outcome, x, pass, etajDelta, 0, "E[E[Y|M,X,Z=j]|X,Z=0]")
	if err != nil {
		return nil, 0, err
	}

	// Step 5: marginal outcome regressions on the full training set.
	xi0Model, err := fitOutcomeAtLevel(ctx, ds, outcome, x, trainAll, 0, "E[Y|X,Z=0]")
	if err != nil {
		return nil, 0, err
	}
	xi0Test, err := xi0Model.Predict(x, pass.Test)
	if err != nil {
		return nil, 0, errors.LearnerFailure("E[Y|X,Z=0]", err)
	}
	xijModel, err := fitOutcomeAtLevel(ctx, ds, outcome, x, trainAll, j, "E[Y|X,Z=j]")
	if err != nil {
		return nil, 0, err
	}
	xijTest, err := xijModel.Predict(x, pass.Test)
	if err != nil {
		return nil, 0, errors.LearnerFailure("E[Y|X,Z=j]", err)
	}

	// Step 6: trimming predicate and slab assembly.
	slab := make([]scoreRow, 0, len(pass.Test))
	trimmedCount := 0
	for i, r := range pass.Test {
		row := scoreRow{
			z:    ds.Z[r],
			y:    ds.Y[r],
			p0mx: probsMX.At(i, 0),
			pjmx: probsMX.At(i, j),
			p0x:  probsX.At(i, 0),
			pjx:  probsX.At(i, j),
			eta0: eta0Test[i],
			etaj: etajTest[i],
			nu0:  nu0Test[i],
			nuj:  nujTest[i],
			xi0:  xi0Test[i],
			xij:  xijTest[i],
		}
		if passesTrim(row, trim) {
			slab = append(slab, row)
		} else {
			trimmedCount++
		}
	}
	return slab, trimmedCount, nil
}

// passesTrim applies the four-clause trimming predicate on propensity
// denominators. Raising the threshold can only shrink the retained set.
func passesTrim(row scoreRow, trim float64) bool {
	return row.p0mx*row.pjx >= trim &&
		row.pjx >= trim &&
		row.p0x >= trim &&
		row.pjmx*row.p0x >= trim
}

// checkRoles verifies every exposure-level subset a pass needs is
// non-empty before any model fit starts.
func checkRoles(ds *mediation.Dataset, j int, pass crossfit.Pass, trainAll []int) error {
	for level := 0; level < ds.Categories(); level++ {
		if ds.CountLevel(trainAll, level) == 0 {
			return errors.DegenerateFold(pass.Index, fmt.Sprintf("training rows contain no observations at exposure level %d", level))
		}
	}
	if ds.CountLevel(pass.MuTrain, 0) == 0 {
		return errors.DegenerateFold(pass.Index, "mu-train role has no reference-level rows")
	}
	if ds.CountLevel(pass.MuTrain, j) == 0 {
		return errors.DegenerateFold(pass.Index, fmt.Sprintf("mu-train role has no rows at target level %d", j))
	}
	if ds.CountLevel(pass.DeltaTrain, 0) == 0 {
		return errors.DegenerateFold(pass.Index, "delta-train role has no reference-level rows")
	}
	if ds.CountLevel(pass.DeltaTrain, j) == 0 {
		return errors.DegenerateFold(pass.Index, fmt.Sprintf("delta-train role has no rows at target level %d", j))
	}
	return nil
}

// fitOutcomeAtLevel fits the outcome learner on the training rows at one
// exposure level, with observed outcomes as targets.
func fitOutcomeAtLevel(ctx context.Context, ds *mediation.Dataset, learner ports.OutcomeLearner, features *mat.Dense, train []int, level int, target string) (ports.OutcomeModel, error) {
	rows := make([]int, 0, len(train))
	targets := make([]float64, 0, len(train))
	for _, r := range train {
		if ds.Z[r] == level {
			rows = append(rows, r)
			targets = append(targets, ds.Y[r])
		}
	}
	model, err := learner.Fit(ctx, features, targets, rows)
	if err != nil {
		return nil, errors.LearnerFailure(target, err)
	}
	return model, nil
}

// fitNested regresses delta-train predictions (restricted to the given
// exposure level) on X and predicts on the test fold. For binary outcomes
// the targets are fitted probabilities, which the logistic learner accepts
// as fractional responses.
func fitNested(ctx context.Context, ds *mediation.Dataset, learner ports.OutcomeLearner, x *mat.Dense, pass crossfit.Pass, deltaPreds []float64, level int, target string) ([]float64, error) {
	rows := make([]int, 0, len(pass.DeltaTrain))
	targets := make([]float64, 0, len(pass.DeltaTrain))
	for i, r := range pass.DeltaTrain {
		if ds.Z[r] == level {
			rows = append(rows, r)
			targets = append(targets, deltaPreds[i])
		}
	}
	model, err := learner.Fit(ctx, x, targets, rows)
	if err != nil {
		return nil, errors.LearnerFailure(target, err)
	}
	preds, err := model.Predict(x, pass.Test)
	if err != nil {
		return nil, errors.LearnerFailure(target, err)
	}
	return preds, nil
}
