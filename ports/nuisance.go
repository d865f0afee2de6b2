package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// PropensityModel predicts exposure-category probabilities
type PropensityModel interface {
	// Probabilities returns a len(rows) x K matrix whose rows sum to one;
	// column 0 is P(Z=0|features), column j is P(Z=j|features).
	Probabilities(features *mat.Dense, rows []int) (*mat.Dense, error)
}

// PropensityLearner fits a multinomial propensity model on a row subset
type PropensityLearner interface {
	Fit(ctx context.Context, features *mat.Dense, labels []int, categories int, rows []int) (PropensityModel, error)
}

// OutcomeModel predicts a scalar regression target
type OutcomeModel interface {
	Predict(features *mat.Dense, rows []int) ([]float64, error)
}

// OutcomeLearner fits a scalar regression model. Targets are aligned with
// rows (targets[i] belongs to features row rows[i]), which lets the
// estimator reuse one learner for both observed outcomes and the nested
// regression-of-a-regression targets.
type OutcomeLearner interface {
	Fit(ctx context.Context, features *mat.Dense, targets []float64, rows []int) (OutcomeModel, error)
}
