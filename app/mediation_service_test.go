package app

import (
	"context"
	"testing"

	"hdmed/domain/mediation"
	"hdmed/internal/errors"
	"hdmed/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *MediationService {
	return NewDefaultMediationService(mediation.DefaultLearnerParams())
}

func semCohort(t *testing.T, mutate func(*testkit.SEMConfig)) *mediation.Dataset {
	t.Helper()
	cfg := testkit.DefaultSEMConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	ds, _, err := testkit.GenerateSEM(cfg)
	require.NoError(t, err)
	return ds
}

func TestInferProducesFullTable(t *testing.T) {
	ds := semCohort(t, func(c *testkit.SEMConfig) {
		c.N = 900
		c.Seed = 101
	})

	result, err := newTestService().Infer(context.Background(), ds, 1, mediation.DefaultConfig())
	require.NoError(t, err)

	require.Len(t, result.Effects, 6, "full variant: five contrasts plus baseline")
	assert.Equal(t, ds.N()-result.Retained, result.Trimmed)
	assert.GreaterOrEqual(t, result.Trimmed, 0)
	require.NotNil(t, result.Diagnostics)
	assert.Equal(t, result.Retained, result.Diagnostics.Retained)

	for _, effect := range result.Effects {
		assert.Greater(t, effect.StdErr, 0.0, "%s standard error", effect.Contrast)
		assert.GreaterOrEqual(t, effect.PValue, 0.0, "%s p-value", effect.Contrast)
		assert.LessOrEqual(t, effect.PValue, 1.0, "%s p-value", effect.Contrast)
		assert.Less(t, effect.CILower, effect.CIUpper, "%s interval", effect.Contrast)
		assert.GreaterOrEqual(t, effect.Estimate, effect.CILower)
		assert.LessOrEqual(t, effect.Estimate, effect.CIUpper)
	}
}

func TestInferSinglePathVariant(t *testing.T) {
	ds := semCohort(t, func(c *testkit.SEMConfig) {
		c.N = 900
		c.Seed = 111
	})

	cfg := mediation.DefaultConfig()
	cfg.Variant = mediation.VariantSinglePath
	result, err := newTestService().Infer(context.Background(), ds, 1, cfg)
	require.NoError(t, err)

	require.Len(t, result.Effects, 3)
	assert.Equal(t, mediation.ContrastTotal, result.Effects[0].Contrast)
	assert.Equal(t, mediation.ContrastDirectTreat, result.Effects[1].Contrast)
	assert.Equal(t, mediation.ContrastIndirectControl, result.Effects[2].Contrast)
}

func TestInferSignificantTotalEffect(t *testing.T) {
	ds := semCohort(t, func(c *testkit.SEMConfig) {
		c.N = 2000
		c.Seed = 121
		c.NoiseSD = 0.8
	})

	result, err := newTestService().Infer(context.Background(), ds, 1, mediation.DefaultConfig())
	require.NoError(t, err)

	total := result.Effects[0]
	require.Equal(t, mediation.ContrastTotal, total.Contrast)
	// True total is 2.0; at n=2000 with modest noise this is far from zero.
	assert.Less(t, total.PValue, 0.05)
	assert.Greater(t, total.Estimate, 0.5)
}

func TestEstimateAllLoopsOverCategories(t *testing.T) {
	ds := semCohort(t, func(c *testkit.SEMConfig) {
		c.N = 1200
		c.Seed = 131
	})

	report, err := newTestService().EstimateAll(context.Background(), ds, mediation.DefaultConfig())
	require.NoError(t, err)

	require.Len(t, report.Categories, ds.Categories()-1)
	assert.Equal(t, 1, report.Categories[0].Category)
	assert.Equal(t, 2, report.Categories[1].Category)
	assert.Equal(t, ds.N(), report.SampleSize)
	assert.Equal(t, "continuous", report.OutcomeKind)
	assert.NotEqual(t, report.RunID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestInferOverTrimmedSurfacesError(t *testing.T) {
	ds := semCohort(t, func(c *testkit.SEMConfig) {
		c.N = 300
		c.Categories = 2
		c.Seed = 141
	})

	cfg := mediation.DefaultConfig()
	cfg.Trim = 0.6
	_, err := newTestService().Infer(context.Background(), ds, 1, cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeOverTrimmed), "got %v", err)
}

func TestInferPropagatesPreconditionErrors(t *testing.T) {
	ds := semCohort(t, nil)
	_, err := newTestService().Infer(context.Background(), ds, 0, mediation.DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodePrecondition))
}
