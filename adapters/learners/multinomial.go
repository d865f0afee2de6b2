package learners

import (
	"context"
	"fmt"

	"hdmed/domain/mediation"
	"hdmed/ports"

	"gonum.org/v1/gonum/mat"
)

// RidgeMultinomial is the default propensity learner. It fits one
// ridge-logistic model per exposure category (one-vs-rest) and normalizes
// the per-row probabilities onto the simplex, so every output row sums to
// exactly one with column 0 holding the reference-category probability.
type RidgeMultinomial struct {
	params mediation.LearnerParams
}

// NewRidgeMultinomial creates a multinomial propensity learner
func NewRidgeMultinomial(params mediation.LearnerParams) *RidgeMultinomial {
	return &RidgeMultinomial{params: params}
}

type multinomialModel struct {
	perCategory []ports.OutcomeModel
}

// Fit trains K one-vs-rest logistic models on the indexed rows
func (l *RidgeMultinomial) Fit(ctx context.Context, features *mat.Dense, labels []int, categories int, rows []int) (ports.PropensityModel, error) {
	if categories < 2 {
		return nil, fmt.Errorf("propensity model needs at least 2 categories, got %d", categories)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no training rows")
	}

	seen := make([]bool, categories)
	for _, r := range rows {
		if labels[r] < 0 || labels[r] >= categories {
			return nil, fmt.Errorf("exposure label %d out of range [0,%d)", labels[r], categories)
		}
		seen[labels[r]] = true
	}
	for k, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("training rows contain no observations at exposure level %d", k)
		}
	}

	binary := NewRidgeLogistic(l.params)
	models := make([]ports.OutcomeModel, categories)
	for k := 0; k < categories; k++ {
		targets := make([]float64, len(rows))
		for i, r := range rows {
			if labels[r] == k {
				targets[i] = 1
			}
		}
		model, err := binary.Fit(ctx, features, targets, rows)
		if err != nil {
			return nil, fmt.Errorf("one-vs-rest fit for category %d: %w", k, err)
		}
		models[k] = model
	}
	return &multinomialModel{perCategory: models}, nil
}

// Probabilities returns the normalized len(rows) x K probability matrix
func (m *multinomialModel) Probabilities(features *mat.Dense, rows []int) (*mat.Dense, error) {
	categories := len(m.perCategory)
	probs := mat.NewDense(len(rows), categories, nil)

	for k := 0; k < categories; k++ {
		col, err := m.perCategory[k].Predict(features, rows)
		if err != nil {
			return nil, fmt.Errorf("predict for category %d: %w", k, err)
		}
		for i, p := range col {
			probs.Set(i, k, clampProb(p))
		}
	}

	for i := 0; i < len(rows); i++ {
		total := 0.0
		for k := 0; k < categories; k++ {
			total += probs.At(i, k)
		}
		for k := 0; k < categories; k++ {
			probs.Set(i, k, probs.At(i, k)/total)
		}
	}
	return probs, nil
}
