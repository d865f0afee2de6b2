package estimator

import (
	"hdmed/domain/mediation"
)

// reduce averages the pseudo-value columns into effect estimates and
// computes the influence-function variance of every contrast:
// mean[(score_i - effect)^2]. The variance is valid under both
// normalization regimes since each contrast is an average of
// asymptotically linear scores.
func reduce(ps pseudoValues, j, retained, trimmed int) *mediation.RawResult {
	result := &mediation.RawResult{
		Category: j,
		Retained: retained,
		Trimmed:  trimmed,
	}

	result.Total, result.VarTotal = contrast(ps.yjmj, ps.y0m0)
	result.DirectTreat, result.VarDirectTreat = contrast(ps.yjmj, ps.y0mj)
	result.DirectControl, result.VarDirectControl = contrast(ps.yjm0, ps.y0m0)
	result.IndirectTreat, result.VarIndirectTreat = contrast(ps.yjmj, ps.yjm0)
	result.IndirectControl, result.VarIndirectControl = contrast(ps.y0mj, ps.y0m0)
	result.Baseline, result.VarBaseline = level(ps.y0m0)

	return result
}

// contrast returns the mean difference of two pseudo-value columns and
// its empirical score variance.
func contrast(a, b []float64) (float64, float64) {
	n := len(a)
	if n == 0 {
		return 0, 0
	}
	effect := 0.0
	for i := range a {
		effect += a[i] - b[i]
	}
	effect /= float64(n)

	variance := 0.0
	for i := range a {
		d := a[i] - b[i] - effect
		variance += d * d
	}
	variance /= float64(n)
	return effect, variance
}

// level returns the mean of one pseudo-value column and its variance
func level(a []float64) (float64, float64) {
	n := len(a)
	if n == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, v := range a {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range a {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)
	return mean, variance
}
