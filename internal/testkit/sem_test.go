package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSEMShapes(t *testing.T) {
	cfg := DefaultSEMConfig()
	ds, truth, err := GenerateSEM(cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.N, ds.N())
	assert.Equal(t, cfg.Categories, ds.Categories())

	mr, mc := ds.M.Dims()
	assert.Equal(t, cfg.N, mr)
	assert.Equal(t, cfg.Mediators, mc)

	xr, xc := ds.X.Dims()
	assert.Equal(t, cfg.N, xr)
	assert.Equal(t, cfg.Confounders, xc)

	assert.InDelta(t, 2.0, truth.Total(1), 1e-12)
	assert.InDelta(t, 1.2, truth.Direct(1), 1e-12)
	assert.InDelta(t, 0.8, truth.Indirect(1), 1e-12)
	assert.InDelta(t, 4.0, truth.Total(2), 1e-12)
}

func TestGenerateSEMDeterminism(t *testing.T) {
	cfg := DefaultSEMConfig()
	a, _, err := GenerateSEM(cfg)
	require.NoError(t, err)
	b, _, err := GenerateSEM(cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Y, b.Y)
	assert.Equal(t, a.Z, b.Z)

	cfg.Seed = 99
	c, _, err := GenerateSEM(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Y, c.Y)
}

func TestGenerateSEMAllCategoriesPopulated(t *testing.T) {
	cfg := DefaultSEMConfig()
	cfg.N = 30
	cfg.Categories = 4
	ds, _, err := GenerateSEM(cfg)
	require.NoError(t, err)

	counts := make(map[int]int)
	for _, z := range ds.Z {
		assert.GreaterOrEqual(t, z, 0)
		assert.Less(t, z, cfg.Categories)
		counts[z]++
	}
	assert.Len(t, counts, cfg.Categories)
}

func TestGenerateSEMBinaryOutcome(t *testing.T) {
	cfg := DefaultSEMConfig()
	cfg.BinaryOutcome = true
	ds, _, err := GenerateSEM(cfg)
	require.NoError(t, err)

	for _, y := range ds.Y {
		assert.True(t, y == 0 || y == 1, "binary outcome must be 0/1, got %g", y)
	}
}

func TestGenerateSEMRejectsBadConfig(t *testing.T) {
	cfg := DefaultSEMConfig()
	cfg.Categories = 1
	_, _, err := GenerateSEM(cfg)
	assert.Error(t, err)
}
