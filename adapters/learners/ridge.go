package learners

import (
	"context"
	"fmt"
	"math"

	"hdmed/domain/mediation"
	"hdmed/ports"

	"gonum.org/v1/gonum/mat"
)

// RidgeRegression is the default continuous-outcome learner: penalized
// linear regression solved in closed form, with the penalty chosen by
// k-fold cross-validation over the configured lambda grid. The intercept
// is never penalized.
type RidgeRegression struct {
	params mediation.LearnerParams
}

// NewRidgeRegression creates a ridge learner with the given tuning parameters
func NewRidgeRegression(params mediation.LearnerParams) *RidgeRegression {
	return &RidgeRegression{params: params}
}

// ridgeModel holds fitted coefficients (intercept first)
type ridgeModel struct {
	coef []float64
}

// Fit solves the penalized normal equations on the indexed rows
func (l *RidgeRegression) Fit(ctx context.Context, features *mat.Dense, targets []float64, rows []int) (ports.OutcomeModel, error) {
	if err := validateParams(l.params); err != nil {
		return nil, err
	}
	if len(targets) != len(rows) {
		return nil, fmt.Errorf("targets/rows length mismatch: %d vs %d", len(targets), len(rows))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	design := gather(features, rows)
	lambda := l.params.Lambdas[0]
	if len(l.params.Lambdas) > 1 && l.params.CVFolds > 1 {
		lambda = l.selectLambda(design, targets)
	}

	coef, err := solveRidge(design, targets, lambda)
	if err != nil {
		return nil, err
	}
	return &ridgeModel{coef: coef}, nil
}

// selectLambda picks the grid value minimizing validation MSE
func (l *RidgeRegression) selectLambda(design *mat.Dense, targets []float64) float64 {
	n, _ := design.Dims()
	folds := cvFolds(n, l.params.CVFolds)

	best, bestLoss := l.params.Lambdas[0], math.Inf(1)
	for _, lambda := range l.params.Lambdas {
		loss, count := 0.0, 0
		for _, fold := range folds {
			trainDesign, trainTargets, valDesign, valTargets := splitFold(design, targets, fold)
			if len(trainTargets) == 0 || len(valTargets) == 0 {
				continue
			}
			coef, err := solveRidge(trainDesign, trainTargets, lambda)
			if err != nil {
				loss = math.Inf(1)
				break
			}
			for i, target := range valTargets {
				pred := predictRow(valDesign, i, coef)
				diff := pred - target
				loss += diff * diff
				count++
			}
		}
		if count > 0 {
			loss /= float64(count)
		}
		if loss < bestLoss {
			best, bestLoss = lambda, loss
		}
	}
	return best
}

// Predict evaluates the fitted model on the indexed rows
func (m *ridgeModel) Predict(features *mat.Dense, rows []int) ([]float64, error) {
	_, cols := features.Dims()
	if cols+1 != len(m.coef) {
		return nil, fmt.Errorf("feature dimension %d does not match fitted model dimension %d", cols, len(m.coef)-1)
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		pred := m.coef[0]
		for c := 0; c < cols; c++ {
			pred += m.coef[c+1] * features.At(r, c)
		}
		out[i] = pred
	}
	return out, nil
}

// solveRidge solves (A'A + lambda*D) b = A'y with D penalizing everything
// but the intercept.
func solveRidge(design *mat.Dense, targets []float64, lambda float64) ([]float64, error) {
	n, p := design.Dims()
	if n < 1 {
		return nil, fmt.Errorf("no training rows")
	}

	gram := mat.NewSymDense(p, nil)
	rhs := make([]float64, p)
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += design.At(i, a) * design.At(i, b)
			}
			if a == b && a > 0 {
				sum += lambda
			}
			gram.SetSym(a, b, sum)
		}
		for i := 0; i < n; i++ {
			rhs[a] += design.At(i, a) * targets[i]
		}
	}
	// Tiny jitter keeps the factorization stable when columns are collinear
	for a := 0; a < p; a++ {
		gram.SetSym(a, a, gram.At(a, a)+1e-10)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, fmt.Errorf("ridge normal equations are not positive definite (lambda=%g)", lambda)
	}
	coefVec := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(coefVec, mat.NewVecDense(p, rhs)); err != nil {
		return nil, fmt.Errorf("ridge solve failed: %w", err)
	}

	coef := make([]float64, p)
	for a := 0; a < p; a++ {
		coef[a] = coefVec.AtVec(a)
	}
	return coef, nil
}

// splitFold separates design/targets into a held-out fold and the rest
func splitFold(design *mat.Dense, targets []float64, fold [2]int) (*mat.Dense, []float64, *mat.Dense, []float64) {
	n, p := design.Dims()
	valN := fold[1] - fold[0]
	trainN := n - valN

	trainDesign := mat.NewDense(trainN, p, nil)
	valDesign := mat.NewDense(valN, p, nil)
	trainTargets := make([]float64, 0, trainN)
	valTargets := make([]float64, 0, valN)

	ti, vi := 0, 0
	for i := 0; i < n; i++ {
		if i >= fold[0] && i < fold[1] {
			for c := 0; c < p; c++ {
				valDesign.Set(vi, c, design.At(i, c))
			}
			valTargets = append(valTargets, targets[i])
			vi++
		} else {
			for c := 0; c < p; c++ {
				trainDesign.Set(ti, c, design.At(i, c))
			}
			trainTargets = append(trainTargets, targets[i])
			ti++
		}
	}
	return trainDesign, trainTargets, valDesign, valTargets
}

// predictRow evaluates coefficients against one design-matrix row
func predictRow(design *mat.Dense, row int, coef []float64) float64 {
	pred := 0.0
	for c := 0; c < len(coef); c++ {
		pred += coef[c] * design.At(row, c)
	}
	return pred
}
