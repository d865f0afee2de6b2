package diagnostics

import (
	"github.com/montanaflynn/stats"
)

// Summary condenses the distribution of one estimated nuisance quantity
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P05    float64 `json:"p05"`
	P95    float64 `json:"p95"`
}

// Brief summarizes the propensity distributions and trimming impact of a
// single estimation call. Extreme propensity tails here are the first
// thing to inspect when standard errors blow up.
type Brief struct {
	MarginalControl Summary `json:"marginal_control"` // P(Z=0|X)
	MarginalTreated Summary `json:"marginal_treated"` // P(Z=j|X)
	AdjustedControl Summary `json:"adjusted_control"` // P(Z=0|M,X)
	AdjustedTreated Summary `json:"adjusted_treated"` // P(Z=j|M,X)
	Retained        int     `json:"retained"`
	Trimmed         int     `json:"trimmed"`
	TrimRate        float64 `json:"trim_rate"`
}

// Summarize computes a Summary over raw values; an empty input yields zeros
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	p05, _ := stats.Percentile(values, 5)
	p95, _ := stats.Percentile(values, 95)
	return Summary{Mean: mean, Median: median, Min: min, Max: max, P05: p05, P95: p95}
}

// NewBrief assembles the propensity brief from per-row retained values
func NewBrief(p0x, pjx, p0mx, pjmx []float64, retained, trimmed int) *Brief {
	total := retained + trimmed
	rate := 0.0
	if total > 0 {
		rate = float64(trimmed) / float64(total)
	}
	return &Brief{
		MarginalControl: Summarize(p0x),
		MarginalTreated: Summarize(pjx),
		AdjustedControl: Summarize(p0mx),
		AdjustedTreated: Summarize(pjmx),
		Retained:        retained,
		Trimmed:         trimmed,
		TrimRate:        rate,
	}
}
