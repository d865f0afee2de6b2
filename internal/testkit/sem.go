// Package testkit generates synthetic cohorts from a linear-Gaussian
// structural equation model with known true mediation effects. It backs
// the estimator tests and the `simulate` CLI command.
package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"hdmed/domain/mediation"

	"gonum.org/v1/gonum/mat"
)

// SEMConfig parameterizes the synthetic structural model:
//
//	X   ~ N(0, I_p)
//	Z   ~ softmax(ExposureCoef * k * X_0), k = 0..K-1
//	M_1 = MediatorCoef*Z + ConfounderCoef*X_0 + eps
//	Y   = DirectCoef*Z + OutcomeMediatorCoef*M_1 + ConfounderCoef*X_1 + eps
//
// so for category j versus 0 the true effects are
// direct = DirectCoef*j, indirect = OutcomeMediatorCoef*MediatorCoef*j,
// total = direct + indirect. Extra mediators and confounders are noise.
type SEMConfig struct {
	N           int
	Categories  int
	Mediators   int
	Confounders int
	Seed        int64

	DirectCoef          float64
	MediatorCoef        float64
	OutcomeMediatorCoef float64
	ConfounderCoef      float64
	ExposureCoef        float64
	NoiseSD             float64

	BinaryOutcome bool
}

// DefaultSEMConfig returns the reference scenario: K=3, q=2 mediators,
// p=5 confounders, true total 2.0 = direct 1.2 + indirect 0.8 at j=1.
func DefaultSEMConfig() SEMConfig {
	return SEMConfig{
		N:                   300,
		Categories:          3,
		Mediators:           2,
		Confounders:         5,
		Seed:                1,
		DirectCoef:          1.2,
		MediatorCoef:        1.0,
		OutcomeMediatorCoef: 0.8,
		ConfounderCoef:      0.5,
		ExposureCoef:        0.3,
		NoiseSD:             1.0,
	}
}

// TrueEffects holds the known effects of the generating model
type TrueEffects struct {
	DirectPerLevel   float64
	IndirectPerLevel float64
}

// Total returns the true total effect of category j versus 0
func (t TrueEffects) Total(j int) float64 {
	return (t.DirectPerLevel + t.IndirectPerLevel) * float64(j)
}

// Direct returns the true natural direct effect of category j versus 0
func (t TrueEffects) Direct(j int) float64 { return t.DirectPerLevel * float64(j) }

// Indirect returns the true natural indirect effect of category j versus 0
func (t TrueEffects) Indirect(j int) float64 { return t.IndirectPerLevel * float64(j) }

// GenerateSEM draws a cohort from the structural model. The same config
// (including seed) reproduces an identical cohort.
func GenerateSEM(cfg SEMConfig) (*mediation.Dataset, TrueEffects, error) {
	if cfg.N < 1 || cfg.Categories < 2 || cfg.Mediators < 1 || cfg.Confounders < 2 {
		return nil, TrueEffects{}, fmt.Errorf("SEM config needs n>=1, K>=2, q>=1, p>=2")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	n, k, q, p := cfg.N, cfg.Categories, cfg.Mediators, cfg.Confounders
	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for c := 0; c < p; c++ {
			x.Set(i, c, rng.NormFloat64())
		}
	}

	z := make([]int, n)
	for i := 0; i < n; i++ {
		z[i] = drawCategory(rng, cfg.ExposureCoef, x.At(i, 0), k)
	}
	// Guarantee every category is populated so the cohort satisfies the
	// estimator's precondition even at small n.
	for level := 0; level < k; level++ {
		z[level%n] = level
	}

	m := mat.NewDense(n, q, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, cfg.MediatorCoef*float64(z[i])+cfg.ConfounderCoef*x.At(i, 0)+cfg.NoiseSD*rng.NormFloat64())
		for c := 1; c < q; c++ {
			m.Set(i, c, 0.3*x.At(i, 1)+rng.NormFloat64())
		}
	}

	y := make([]float64, n)
	for i := 0; i < n; i++ {
		linear := cfg.DirectCoef*float64(z[i]) +
			cfg.OutcomeMediatorCoef*m.At(i, 0) +
			cfg.ConfounderCoef*x.At(i, 1) +
			cfg.NoiseSD*rng.NormFloat64()
		if cfg.BinaryOutcome {
			if sigmoid(linear-1) > rng.Float64() {
				y[i] = 1
			}
		} else {
			y[i] = linear
		}
	}

	ds, err := mediation.NewDataset(y, z, m, x)
	if err != nil {
		return nil, TrueEffects{}, err
	}
	truth := TrueEffects{
		DirectPerLevel:   cfg.DirectCoef,
		IndirectPerLevel: cfg.OutcomeMediatorCoef * cfg.MediatorCoef,
	}
	return ds, truth, nil
}

// drawCategory samples from softmax(coef * k * x0) over k = 0..K-1
func drawCategory(rng *rand.Rand, coef, x0 float64, k int) int {
	weights := make([]float64, k)
	total := 0.0
	for level := 0; level < k; level++ {
		weights[level] = math.Exp(coef * float64(level) * x0)
		total += weights[level]
	}
	u := rng.Float64() * total
	acc := 0.0
	for level := 0; level < k; level++ {
		acc += weights[level]
		if u <= acc {
			return level
		}
	}
	return k - 1
}

func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}
