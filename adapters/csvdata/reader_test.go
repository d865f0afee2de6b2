package csvdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hdmed/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpec = ports.CohortSpec{
	OutcomeColumn:    "y",
	ExposureColumn:   "z",
	MediatorPrefix:   "m_",
	ConfounderPrefix: "x_",
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cohort.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCohortReader(t *testing.T) {
	path := writeCSV(t, "y,z,m_1,m_2,x_1\n"+
		"1.5,0,0.1,0.2,3.0\n"+
		"2.5,1,0.3,0.4,4.0\n"+
		"0.5,2,0.5,0.6,5.0\n")

	ds, err := NewCohortReader(path).Read(context.Background(), testSpec)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.N())
	assert.Equal(t, 3, ds.Categories())
	assert.Equal(t, []float64{1.5, 2.5, 0.5}, ds.Y)
	assert.Equal(t, []int{0, 1, 2}, ds.Z)

	_, mediatorCols := ds.M.Dims()
	assert.Equal(t, 2, mediatorCols)
}

func TestCohortReaderMissingFile(t *testing.T) {
	_, err := NewCohortReader(filepath.Join(t.TempDir(), "missing.csv")).
		Read(context.Background(), testSpec)
	assert.Error(t, err)
}

func TestCohortReaderHeaderOnly(t *testing.T) {
	path := writeCSV(t, "y,z,m_1,x_1\n")
	_, err := NewCohortReader(path).Read(context.Background(), testSpec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data rows")
}
