package mediation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// OutcomeKind tags the outcome variable as continuous or binary. It is
// decided once per estimation call and threaded through the engine; the
// engine never re-detects it mid-pass.
type OutcomeKind int

const (
	OutcomeContinuous OutcomeKind = iota
	OutcomeBinary
)

// String returns a human-readable outcome kind label
func (k OutcomeKind) String() string {
	if k == OutcomeBinary {
		return "binary"
	}
	return "continuous"
}

// DetectOutcomeKind classifies the outcome vector. The outcome is binary
// iff its value set is exactly {0, 1}; anything else is continuous.
func DetectOutcomeKind(y []float64) OutcomeKind {
	sawZero, sawOne := false, false
	for _, v := range y {
		switch v {
		case 0:
			sawZero = true
		case 1:
			sawOne = true
		default:
			return OutcomeContinuous
		}
	}
	if sawZero && sawOne {
		return OutcomeBinary
	}
	return OutcomeContinuous
}

// Variant selects the set of causal contrasts the estimator reports
type Variant int

const (
	// VariantFull reports all five contrasts plus the Y(0,M(0)) baseline mean
	VariantFull Variant = iota
	// VariantSinglePath reports total, direct(treat) and indirect(control) only
	VariantSinglePath
)

// Contrast identifies a single causal effect
type Contrast string

const (
	ContrastTotal           Contrast = "total"
	ContrastDirectTreat     Contrast = "direct_treat"
	ContrastDirectControl   Contrast = "direct_control"
	ContrastIndirectTreat   Contrast = "indirect_treat"
	ContrastIndirectControl Contrast = "indirect_control"
	ContrastBaseline        Contrast = "baseline_y0m0"
)

// Contrasts returns the contrast ordering for a variant. The order is fixed
// so downstream tables and persisted rows line up across runs.
func (v Variant) Contrasts() []Contrast {
	if v == VariantSinglePath {
		return []Contrast{ContrastTotal, ContrastDirectTreat, ContrastIndirectControl}
	}
	return []Contrast{
		ContrastTotal,
		ContrastDirectTreat,
		ContrastDirectControl,
		ContrastIndirectTreat,
		ContrastIndirectControl,
		ContrastBaseline,
	}
}

// LearnerParams carries tuning parameters forwarded opaquely to the
// nuisance learners.
type LearnerParams struct {
	Measure string    // "mse" or "logloss"
	CVFolds int       // folds used for lambda selection inside each learner
	Lambdas []float64 // ridge penalty grid; a single value disables CV
}

// DefaultLearnerParams returns the learner tuning defaults
func DefaultLearnerParams() LearnerParams {
	return LearnerParams{
		Measure: "mse",
		CVFolds: 3,
		Lambdas: []float64{0.01, 0.1, 1.0},
	}
}

// Config holds the estimator configuration for one call
type Config struct {
	Trim       float64 // trimming threshold on propensity denominators, in [0,1)
	FewSplits  bool    // reuse mu-train ∪ delta-train for both training roles
	Normalized bool    // rescale inverse-probability weights to mean one
	Seed       int64   // fold-partition seed; same seed reproduces identical folds
	Variant    Variant
	Learner    LearnerParams
}

// DefaultConfig returns estimator defaults mirroring the reference settings
func DefaultConfig() Config {
	return Config{
		Trim:       0.01,
		FewSplits:  false,
		Normalized: false,
		Seed:       12345,
		Variant:    VariantFull,
		Learner:    DefaultLearnerParams(),
	}
}

// Validate checks the configuration preconditions
func (c Config) Validate() error {
	if c.Trim < 0 || c.Trim >= 1 {
		return fmt.Errorf("trim threshold must lie in [0,1), got %g", c.Trim)
	}
	if c.Learner.CVFolds < 1 {
		return fmt.Errorf("learner CV folds must be >= 1, got %d", c.Learner.CVFolds)
	}
	if len(c.Learner.Lambdas) == 0 {
		return fmt.Errorf("learner lambda grid must not be empty")
	}
	return nil
}

// Dataset bundles the four input matrices for one estimation call. All
// fields are treated as immutable once constructed.
type Dataset struct {
	Y []float64 // outcome, length n
	Z []int     // exposure category labels in {0,...,K-1}, 0 = reference

	M *mat.Dense // mediators, n x q
	X *mat.Dense // confounders, n x p

	xm         *mat.Dense // cached column-concatenation [X | M]
	categories int
}

// NewDataset validates the inputs and precomputes the mediator-adjusted
// feature matrix.
func NewDataset(y []float64, z []int, m, x *mat.Dense) (*Dataset, error) {
	n := len(y)
	if n == 0 {
		return nil, fmt.Errorf("empty outcome vector")
	}
	if len(z) != n {
		return nil, fmt.Errorf("row count mismatch: outcome has %d rows, exposure has %d", n, len(z))
	}
	mr, mc := m.Dims()
	if mr != n {
		return nil, fmt.Errorf("row count mismatch: outcome has %d rows, mediators have %d", n, mr)
	}
	xr, xc := x.Dims()
	if xr != n {
		return nil, fmt.Errorf("row count mismatch: outcome has %d rows, confounders have %d", n, xr)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("outcome row %d is not finite", i)
		}
	}

	maxLabel, sawZero := 0, false
	for i, label := range z {
		if label < 0 {
			return nil, fmt.Errorf("exposure row %d has negative category %d", i, label)
		}
		if label == 0 {
			sawZero = true
		}
		if label > maxLabel {
			maxLabel = label
		}
	}
	if !sawZero {
		return nil, fmt.Errorf("reference exposure category 0 has no observations")
	}
	if maxLabel < 1 {
		return nil, fmt.Errorf("exposure must have at least two categories")
	}

	xm := mat.NewDense(n, xc+mc, nil)
	for i := 0; i < n; i++ {
		for jc := 0; jc < xc; jc++ {
			xm.Set(i, jc, x.At(i, jc))
		}
		for jc := 0; jc < mc; jc++ {
			xm.Set(i, xc+jc, m.At(i, jc))
		}
	}

	return &Dataset{
		Y:          y,
		Z:          z,
		M:          m,
		X:          x,
		xm:         xm,
		categories: maxLabel + 1,
	}, nil
}

// N returns the sample size
func (d *Dataset) N() int { return len(d.Y) }

// Categories returns K, the number of exposure categories
func (d *Dataset) Categories() int { return d.categories }

// MediatorAdjusted returns the cached [X | M] feature matrix
func (d *Dataset) MediatorAdjusted() *mat.Dense { return d.xm }

// CountLevel returns how many of the given rows carry exposure level z
func (d *Dataset) CountLevel(rows []int, z int) int {
	count := 0
	for _, r := range rows {
		if d.Z[r] == z {
			count++
		}
	}
	return count
}

// RawResult is the engine's output for one (dataset, category, config)
// call: effect point estimates, influence-function variances and the
// post-trim row accounting consumed by the inference wrapper.
type RawResult struct {
	Category int

	Total           float64
	DirectTreat     float64
	DirectControl   float64
	IndirectTreat   float64
	IndirectControl float64
	Baseline        float64

	VarTotal           float64
	VarDirectTreat     float64
	VarDirectControl   float64
	VarIndirectTreat   float64
	VarIndirectControl float64
	VarBaseline        float64

	Retained int
	Trimmed  int
}

// Effect returns the point estimate for a contrast
func (r *RawResult) Effect(c Contrast) float64 {
	switch c {
	case ContrastTotal:
		return r.Total
	case ContrastDirectTreat:
		return r.DirectTreat
	case ContrastDirectControl:
		return r.DirectControl
	case ContrastIndirectTreat:
		return r.IndirectTreat
	case ContrastIndirectControl:
		return r.IndirectControl
	case ContrastBaseline:
		return r.Baseline
	}
	return math.NaN()
}

// Variance returns the influence-function variance for a contrast
func (r *RawResult) Variance(c Contrast) float64 {
	switch c {
	case ContrastTotal:
		return r.VarTotal
	case ContrastDirectTreat:
		return r.VarDirectTreat
	case ContrastDirectControl:
		return r.VarDirectControl
	case ContrastIndirectTreat:
		return r.VarIndirectTreat
	case ContrastIndirectControl:
		return r.VarIndirectControl
	case ContrastBaseline:
		return r.VarBaseline
	}
	return math.NaN()
}
