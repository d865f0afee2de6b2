package learners

import (
	"context"
	"fmt"
	"math"

	"hdmed/domain/mediation"
	"hdmed/ports"

	"gonum.org/v1/gonum/mat"
)

// RidgeLogistic is the default binary-outcome learner: ridge-penalized
// logistic regression fit by iteratively reweighted least squares. Targets
// may be fractional values in [0,1], which lets the nested
// regression-of-a-regression steps reuse the same learner when the raw
// outcome is binary.
type RidgeLogistic struct {
	params mediation.LearnerParams
}

// NewRidgeLogistic creates a logistic learner with the given tuning parameters
func NewRidgeLogistic(params mediation.LearnerParams) *RidgeLogistic {
	return &RidgeLogistic{params: params}
}

type logisticModel struct {
	coef []float64
}

// Fit runs penalized IRLS on the indexed rows
func (l *RidgeLogistic) Fit(ctx context.Context, features *mat.Dense, targets []float64, rows []int) (ports.OutcomeModel, error) {
	if err := validateParams(l.params); err != nil {
		return nil, err
	}
	if len(targets) != len(rows) {
		return nil, fmt.Errorf("targets/rows length mismatch: %d vs %d", len(targets), len(rows))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	for i, target := range targets {
		if target < 0 || target > 1 || math.IsNaN(target) {
			return nil, fmt.Errorf("logistic target %d out of [0,1]: %g", i, target)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	design := gather(features, rows)
	lambda := l.params.Lambdas[0]
	if len(l.params.Lambdas) > 1 && l.params.CVFolds > 1 {
		lambda = l.selectLambda(design, targets)
	}

	coef, err := solveIRLS(design, targets, lambda)
	if err != nil {
		return nil, err
	}
	return &logisticModel{coef: coef}, nil
}

// selectLambda picks the grid value minimizing validation log-loss
func (l *RidgeLogistic) selectLambda(design *mat.Dense, targets []float64) float64 {
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
			coef, err := solveIRLS(trainDesign, trainTargets, lambda)
			if err != nil {
				loss = math.Inf(1)
				break
			}
			for i, target := range valTargets {
				p := sigmoid(predictRow(valDesign, i, coef))
				p = clampProb(p)
				loss += -target*math.Log(p) - (1-target)*math.Log(1-p)
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

// Predict returns fitted response probabilities on the indexed rows
func (m *logisticModel) Predict(features *mat.Dense, rows []int) ([]float64, error) {
	_, cols := features.Dims()
	if cols+1 != len(m.coef) {
		return nil, fmt.Errorf("feature dimension %d does not match fitted model dimension %d", cols, len(m.coef)-1)
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		eta := m.coef[0]
		for c := 0; c < cols; c++ {
			eta += m.coef[c+1] * features.At(r, c)
		}
		out[i] = sigmoid(eta)
	}
	return out, nil
}

// solveIRLS fits penalized logistic coefficients. Each iteration solves
// (A'WA + lambda*D) b = A'W z for the working response z; the loop stops
// on coefficient convergence or after irlsMaxIter iterations.
func solveIRLS(design *mat.Dense, targets []float64, lambda float64) ([]float64, error) {
	n, p := design.Dims()
	coef := make([]float64, p)

	eta := make([]float64, n)
	working := make([]float64, n)
	weights := make([]float64, n)

	for iter := 0; iter < irlsMaxIter; iter++ {
		for i := 0; i < n; i++ {
			eta[i] = predictRow(design, i, coef)
			prob := clampProb(sigmoid(eta[i]))
			w := prob * (1 - prob)
			if w < probFloor {
				w = probFloor
			}
			weights[i] = w
			working[i] = eta[i] + (targets[i]-prob)/w
		}

		gram := mat.NewSymDense(p, nil)
		rhs := make([]float64, p)
		for a := 0; a < p; a++ {
			for b := a; b < p; b++ {
				sum := 0.0
				for i := 0; i < n; i++ {
					sum += weights[i] * design.At(i, a) * design.At(i, b)
				}
				if a == b && a > 0 {
					sum += lambda
				}
				gram.SetSym(a, b, sum)
			}
			for i := 0; i < n; i++ {
				rhs[a] += weights[i] * design.At(i, a) * working[i]
			}
		}
		for a := 0; a < p; a++ {
			gram.SetSym(a, a, gram.At(a, a)+1e-10)
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(gram); !ok {
			return nil, fmt.Errorf("IRLS normal equations are not positive definite (lambda=%g, iter=%d)", lambda, iter)
		}
		next := mat.NewVecDense(p, nil)
		if err := chol.SolveVecTo(next, mat.NewVecDense(p, rhs)); err != nil {
			return nil, fmt.Errorf("IRLS solve failed: %w", err)
		}

		delta := 0.0
		for a := 0; a < p; a++ {
			d := next.AtVec(a) - coef[a]
			delta += d * d
			coef[a] = next.AtVec(a)
		}
		if delta < irlsTol {
			break
		}
	}
	return coef, nil
}

func sigmoid(eta float64) float64 {
	if eta >= 0 {
		return 1 / (1 + math.Exp(-eta))
	}
	e := math.Exp(eta)
	return e / (1 + e)
}

func clampProb(p float64) float64 {
	if p < probFloor {
		return probFloor
	}
	if p > 1-probFloor {
		return 1 - probFloor
	}
	return p
}
