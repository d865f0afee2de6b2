package learners

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"hdmed/domain/mediation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testParams() mediation.LearnerParams {
	return mediation.LearnerParams{
		Measure: "mse",
		CVFolds: 3,
		Lambdas: []float64{0.001, 0.01, 0.1},
	}
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func TestRidgeRecoversLinearModel(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 500
	features := mat.NewDense(n, 2, nil)
	targets := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := rng.NormFloat64()
		x1 := rng.NormFloat64()
		features.Set(i, 0, x0)
		features.Set(i, 1, x1)
		targets[i] = 2.0 + 3.0*x0 - 1.5*x1 + 0.1*rng.NormFloat64()
	}

	model, err := NewRidgeRegression(testParams()).Fit(context.Background(), features, targets, allRows(n))
	require.NoError(t, err)

	preds, err := model.Predict(features, allRows(n))
	require.NoError(t, err)

	mse := 0.0
	for i, p := range preds {
		diff := p - targets[i]
		mse += diff * diff
	}
	mse /= float64(n)
	assert.Less(t, mse, 0.05, "ridge fit should nearly interpolate a low-noise linear model")
}

func TestRidgePredictsOnRowSubsets(t *testing.T) {
	features := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	targets := []float64{1, 3, 5} // y = 1 + 2x on rows 0,1,2

	model, err := NewRidgeRegression(mediation.LearnerParams{CVFolds: 1, Lambdas: []float64{1e-8}}).
		Fit(context.Background(), features, targets, []int{0, 1, 2})
	require.NoError(t, err)

	preds, err := model.Predict(features, []int{4, 5})
	require.NoError(t, err)
	assert.InDelta(t, 9.0, preds[0], 1e-4)
	assert.InDelta(t, 11.0, preds[1], 1e-4)
}

func TestRidgeRejectsMismatchedInputs(t *testing.T) {
	features := mat.NewDense(3, 1, []float64{0, 1, 2})
	_, err := NewRidgeRegression(testParams()).Fit(context.Background(), features, []float64{1}, []int{0, 1})
	assert.Error(t, err)

	_, err = NewRidgeRegression(testParams()).Fit(context.Background(), features, nil, nil)
	assert.Error(t, err)
}

func TestLogisticSeparatesGroups(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := 400
	features := mat.NewDense(n, 1, nil)
	targets := make([]float64, n)
	for i := 0; i < n; i++ {
		x := rng.NormFloat64()
		features.Set(i, 0, x)
		if sigmoid(2*x) > rng.Float64() {
			targets[i] = 1
		}
	}

	model, err := NewRidgeLogistic(testParams()).Fit(context.Background(), features, targets, allRows(n))
	require.NoError(t, err)

	preds, err := model.Predict(features, allRows(n))
	require.NoError(t, err)

	var lowX, highX []float64
	for i, p := range preds {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if features.At(i, 0) < -1 {
			lowX = append(lowX, p)
		} else if features.At(i, 0) > 1 {
			highX = append(highX, p)
		}
	}
	require.NotEmpty(t, lowX)
	require.NotEmpty(t, highX)
	assert.Greater(t, meanOf(highX), meanOf(lowX)+0.3, "probabilities must increase with the signal")
}

func TestLogisticAcceptsFractionalTargets(t *testing.T) {
	features := mat.NewDense(8, 1, []float64{-2, -1.5, -1, -0.5, 0.5, 1, 1.5, 2})
	targets := []float64{0.1, 0.15, 0.2, 0.35, 0.65, 0.8, 0.85, 0.9}

	model, err := NewRidgeLogistic(mediation.LearnerParams{CVFolds: 1, Lambdas: []float64{0.01}}).
		Fit(context.Background(), features, targets, allRows(8))
	require.NoError(t, err)

	preds, err := model.Predict(features, allRows(8))
	require.NoError(t, err)
	for i := 1; i < len(preds); i++ {
		assert.GreaterOrEqual(t, preds[i], preds[i-1]-1e-9, "fit must be monotone in a monotone design")
	}
}

func TestLogisticRejectsOutOfRangeTargets(t *testing.T) {
	features := mat.NewDense(2, 1, []float64{0, 1})
	_, err := NewRidgeLogistic(testParams()).Fit(context.Background(), features, []float64{0.5, 1.5}, []int{0, 1})
	assert.Error(t, err)
}

func TestMultinomialRowsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n, categories := 300, 3
	features := mat.NewDense(n, 2, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		x0 := rng.NormFloat64()
		features.Set(i, 0, x0)
		features.Set(i, 1, rng.NormFloat64())
		switch {
		case x0 > 0.5:
			labels[i] = 2
		case x0 < -0.5:
			labels[i] = 0
		default:
			labels[i] = rng.Intn(categories)
		}
	}

	model, err := NewRidgeMultinomial(testParams()).Fit(context.Background(), features, labels, categories, allRows(n))
	require.NoError(t, err)

	probs, err := model.Probabilities(features, allRows(n))
	require.NoError(t, err)

	rows, cols := probs.Dims()
	require.Equal(t, n, rows)
	require.Equal(t, categories, cols)
	for i := 0; i < rows; i++ {
		total := 0.0
		for k := 0; k < cols; k++ {
			p := probs.At(i, k)
			assert.Greater(t, p, 0.0)
			assert.Less(t, p, 1.0)
			total += p
		}
		assert.InDelta(t, 1.0, total, 1e-9)
	}
}

func TestMultinomialRequiresAllCategories(t *testing.T) {
	features := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	labels := []int{0, 0, 1, 1}
	_, err := NewRidgeMultinomial(testParams()).Fit(context.Background(), features, labels, 3, allRows(4))
	assert.Error(t, err, "category 2 has no training observations")
}

func TestCVFoldsCoverAllPositions(t *testing.T) {
	folds := cvFolds(10, 3)
	require.Len(t, folds, 3)
	total := 0
	for _, f := range folds {
		assert.LessOrEqual(t, f[0], f[1])
		total += f[1] - f[0]
	}
	assert.Equal(t, 10, total)
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
