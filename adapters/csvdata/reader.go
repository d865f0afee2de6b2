package csvdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"hdmed/adapters/tabular"
	"hdmed/domain/mediation"
	"hdmed/ports"
)

// CohortReader builds an estimation dataset from a headered CSV file
type CohortReader struct {
	filePath string
}

// NewCohortReader creates a reader for one CSV file
func NewCohortReader(filePath string) *CohortReader {
	return &CohortReader{filePath: filePath}
}

// Read parses the CSV and maps its columns onto estimator input roles
func (r *CohortReader) Read(ctx context.Context, spec ports.CohortSpec) (*mediation.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", r.filePath, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", r.filePath, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s has no data rows", r.filePath)
	}
	return tabular.DatasetFromTable(records[0], records[1:], spec)
}
