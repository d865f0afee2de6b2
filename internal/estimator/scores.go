package estimator

// pseudoValues holds the per-row doubly robust potential-outcome scores.
// Each column's mean over retained rows estimates one mean potential
// outcome.
type pseudoValues struct {
	yjmj []float64 // Y(j, M(j))
	yjm0 []float64 // Y(j, M(0))
	y0mj []float64 // Y(0, M(j))
	y0m0 []float64 // Y(0, M(0))
}

// computePseudoValues builds the augmented inverse-probability-weighted
// scores from the trimmed score table. Each score is an indicator-weighted
// residual plus a regression anchor, consistent if either the propensity
// or the outcome model is correctly specified.
//
// Under the normalized regime every inverse-weight term is rescaled by
// n / sum(weights) so the finite-sample average weight is exactly one,
// which stabilizes the estimator when propensities are extreme without
// changing the asymptotic target.
func computePseudoValues(table []scoreRow, j int, normalized bool) pseudoValues {
	n := len(table)
	ps := pseudoValues{
		yjmj: make([]float64, n),
		yjm0: make([]float64, n),
		y0mj: make([]float64, n),
		y0m0: make([]float64, n),
	}

	// Per-row inverse-probability weights. wTreat/wControl also reweight
	// the bias-correction terms inside the cross-world scores.
	wTreat := make([]float64, n)   // I(z=j)/P(Z=j|X)
	wControl := make([]float64, n) // I(z=0)/P(Z=0|X)
	wCrossJ := make([]float64, n)  // I(z=j)*P(Z=0|M,X)/(P(Z=j|M,X)*P(Z=0|X))
	wCross0 := make([]float64, n)  // I(z=0)*P(Z=j|M,X)/(P(Z=0|M,X)*P(Z=j|X))
	for i, row := range table {
		if row.z == j {
			wTreat[i] = 1 / row.pjx
			wCrossJ[i] = row.p0mx / (row.pjmx * row.p0x)
		}
		if row.z == 0 {
			wControl[i] = 1 / row.p0x
			wCross0[i] = row.pjmx / (row.p0mx * row.pjx)
		}
	}

	fTreat, fControl, fCrossJ, fCross0 := 1.0, 1.0, 1.0, 1.0
	if normalized {
		fTreat = normalizer(wTreat)
		fControl = normalizer(wControl)
		fCrossJ = normalizer(wCrossJ)
		fCross0 = normalizer(wCross0)
	}

	for i, row := range table {
		ps.yjmj[i] = fTreat*wTreat[i]*(row.y-row.xij) + row.xij
		ps.y0m0[i] = fControl*wControl[i]*(row.y-row.xi0) + row.xi0
		ps.y0mj[i] = fCross0*wCross0[i]*(row.y-row.eta0) +
			fTreat*wTreat[i]*(row.eta0-row.nu0) + row.nu0
		ps.yjm0[i] = fCrossJ*wCrossJ[i]*(row.y-row.etaj) +
			fControl*wControl[i]*(row.etaj-row.nuj) + row.nuj
	}
	return ps
}

// normalizer returns n/sum(weights), or zero when the weight never fires
// (the corresponding indicator terms are then identically zero).
func normalizer(weights []float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	return float64(len(weights)) / sum
}
