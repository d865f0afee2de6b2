package mediation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDetectOutcomeKind(t *testing.T) {
	tests := []struct {
		name string
		y    []float64
		want OutcomeKind
	}{
		{"zeros and ones", []float64{0, 1, 1, 0}, OutcomeBinary},
		{"all zeros", []float64{0, 0, 0}, OutcomeContinuous},
		{"all ones", []float64{1, 1}, OutcomeContinuous},
		{"continuous", []float64{0.5, 1.2, -3}, OutcomeContinuous},
		{"near binary with extra value", []float64{0, 1, 2}, OutcomeContinuous},
		{"empty", nil, OutcomeContinuous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOutcomeKind(tt.y))
		})
	}
}

func TestVariantContrasts(t *testing.T) {
	full := VariantFull.Contrasts()
	require.Len(t, full, 6)
	assert.Equal(t, ContrastTotal, full[0])
	assert.Equal(t, ContrastBaseline, full[5])

	single := VariantSinglePath.Contrasts()
	require.Len(t, single, 3)
	assert.Equal(t, []Contrast{ContrastTotal, ContrastDirectTreat, ContrastIndirectControl}, single)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Trim = 1.0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Trim = -0.1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Learner.CVFolds = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Learner.Lambdas = nil
	assert.Error(t, cfg.Validate())
}

func TestNewDataset(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	z := []int{0, 1, 0, 2}
	m := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	x := mat.NewDense(4, 1, []float64{10, 20, 30, 40})

	ds, err := NewDataset(y, z, m, x)
	require.NoError(t, err)
	assert.Equal(t, 4, ds.N())
	assert.Equal(t, 3, ds.Categories())

	xm := ds.MediatorAdjusted()
	_, cols := xm.Dims()
	assert.Equal(t, 3, cols)
	assert.Equal(t, 10.0, xm.At(0, 0))
	assert.Equal(t, 1.0, xm.At(0, 1))
	assert.Equal(t, 2.0, xm.At(0, 2))

	assert.Equal(t, 2, ds.CountLevel([]int{0, 1, 2, 3}, 0))
	assert.Equal(t, 1, ds.CountLevel([]int{1, 3}, 2))
}

func TestNewDatasetRejectsBadInput(t *testing.T) {
	m := mat.NewDense(3, 1, []float64{1, 2, 3})
	x := mat.NewDense(3, 1, []float64{1, 2, 3})

	_, err := NewDataset(nil, nil, m, x)
	assert.Error(t, err, "empty outcome")

	_, err = NewDataset([]float64{1, 2, 3}, []int{0, 1}, m, x)
	assert.Error(t, err, "length mismatch")

	_, err = NewDataset([]float64{1, math.NaN(), 3}, []int{0, 1, 0}, m, x)
	assert.Error(t, err, "non-finite outcome")

	_, err = NewDataset([]float64{1, 2, 3}, []int{0, -1, 1}, m, x)
	assert.Error(t, err, "negative category")

	_, err = NewDataset([]float64{1, 2, 3}, []int{1, 1, 2}, m, x)
	assert.Error(t, err, "missing reference level")

	_, err = NewDataset([]float64{1, 2, 3}, []int{0, 0, 0}, m, x)
	assert.Error(t, err, "single category")
}

func TestRawResultAccessors(t *testing.T) {
	r := &RawResult{
		Total:           1,
		DirectTreat:     2,
		DirectControl:   3,
		IndirectTreat:   4,
		IndirectControl: 5,
		Baseline:        6,
		VarTotal:        10,
		VarBaseline:     60,
	}
	assert.Equal(t, 1.0, r.Effect(ContrastTotal))
	assert.Equal(t, 5.0, r.Effect(ContrastIndirectControl))
	assert.Equal(t, 10.0, r.Variance(ContrastTotal))
	assert.Equal(t, 60.0, r.Variance(ContrastBaseline))
	assert.True(t, math.IsNaN(r.Effect(Contrast("unknown"))))
}
