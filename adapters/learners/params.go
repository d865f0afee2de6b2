package learners

import (
	"fmt"

	"hdmed/domain/mediation"

	"gonum.org/v1/gonum/mat"
)

// irlsMaxIter bounds the IRLS loop; convergence is checked against irlsTol
const (
	irlsMaxIter = 50
	irlsTol     = 1e-8
	probFloor   = 1e-6
)

// gather copies the selected rows of a matrix into a dense design matrix
// with a leading intercept column.
func gather(features *mat.Dense, rows []int) *mat.Dense {
	_, cols := features.Dims()
	design := mat.NewDense(len(rows), cols+1, nil)
	for i, r := range rows {
		design.Set(i, 0, 1)
		for c := 0; c < cols; c++ {
			design.Set(i, c+1, features.At(r, c))
		}
	}
	return design
}

// cvFolds splits len(rows) positions into contiguous validation folds.
// The caller's rows already come from a shuffled partition, so contiguous
// slicing is an unbiased split.
func cvFolds(n, folds int) [][2]int {
	if folds > n {
		folds = n
	}
	out := make([][2]int, 0, folds)
	size := n / folds
	rem := n % folds
	start := 0
	for f := 0; f < folds; f++ {
		end := start + size
		if f < rem {
			end++
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}

// validateParams checks the learner tuning parameters shared by all learners
func validateParams(p mediation.LearnerParams) error {
	if len(p.Lambdas) == 0 {
		return fmt.Errorf("lambda grid must not be empty")
	}
	for _, l := range p.Lambdas {
		if l < 0 {
			return fmt.Errorf("ridge penalty must be non-negative, got %g", l)
		}
	}
	if p.CVFolds < 1 {
		return fmt.Errorf("CV folds must be >= 1, got %d", p.CVFolds)
	}
	return nil
}
