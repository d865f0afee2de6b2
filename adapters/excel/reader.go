package excel

import (
	"context"
	"fmt"

	"hdmed/adapters/tabular"
	"hdmed/domain/mediation"
	"hdmed/ports"

	"github.com/xuri/excelize/v2"
)

// CohortReader builds an estimation dataset from a workbook sheet. The
// first row is treated as the header; column roles come from the
// CohortSpec passed to Read.
type CohortReader struct {
	filePath string
	sheet    string
}

// NewCohortReader creates a reader for one workbook file. An empty sheet
// name selects the first sheet.
func NewCohortReader(filePath, sheet string) *CohortReader {
	return &CohortReader{filePath: filePath, sheet: sheet}
}

// Read loads the sheet and maps its columns onto estimator input roles
func (r *CohortReader) Read(ctx context.Context, spec ports.CohortSpec) (*mediation.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", r.filePath, err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheet)
	}
	return tabular.DatasetFromTable(rows[0], rows[1:], spec)
}
