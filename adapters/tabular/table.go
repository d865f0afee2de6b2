// Package tabular converts header+rows tables into estimation datasets.
// The Excel and CSV cohort readers both funnel through it.
package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"hdmed/domain/mediation"
	"hdmed/ports"

	"gonum.org/v1/gonum/mat"
)

// DatasetFromTable maps a header row plus string records onto the
// outcome/exposure/mediator/confounder roles of a CohortSpec.
func DatasetFromTable(header []string, records [][]string, spec ports.CohortSpec) (*mediation.Dataset, error) {
	outcomeCol, exposureCol := -1, -1
	var mediatorCols, confounderCols []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == spec.OutcomeColumn:
			outcomeCol = i
		case name == spec.ExposureColumn:
			exposureCol = i
		case spec.MediatorPrefix != "" && strings.HasPrefix(name, spec.MediatorPrefix):
			mediatorCols = append(mediatorCols, i)
		case spec.ConfounderPrefix != "" && strings.HasPrefix(name, spec.ConfounderPrefix):
			confounderCols = append(confounderCols, i)
		}
	}
	if outcomeCol < 0 {
		return nil, fmt.Errorf("outcome column %q not found", spec.OutcomeColumn)
	}
	if exposureCol < 0 {
		return nil, fmt.Errorf("exposure column %q not found", spec.ExposureColumn)
	}
	if len(mediatorCols) == 0 {
		return nil, fmt.Errorf("no mediator columns match prefix %q", spec.MediatorPrefix)
	}
	if len(confounderCols) == 0 {
		return nil, fmt.Errorf("no confounder columns match prefix %q", spec.ConfounderPrefix)
	}

	n := len(records)
	if n == 0 {
		return nil, fmt.Errorf("table has no data rows")
	}
	y := make([]float64, n)
	z := make([]int, n)
	m := mat.NewDense(n, len(mediatorCols), nil)
	x := mat.NewDense(n, len(confounderCols), nil)

	for i, record := range records {
		v, err := cellFloat(record, outcomeCol)
		if err != nil {
			return nil, fmt.Errorf("row %d outcome: %w", i+2, err)
		}
		y[i] = v

		zv, err := cellFloat(record, exposureCol)
		if err != nil {
			return nil, fmt.Errorf("row %d exposure: %w", i+2, err)
		}
		z[i] = int(zv)
		if float64(z[i]) != zv {
			return nil, fmt.Errorf("row %d exposure: category %g is not an integer", i+2, zv)
		}

		for c, col := range mediatorCols {
			v, err := cellFloat(record, col)
			if err != nil {
				return nil, fmt.Errorf("row %d mediator %s: %w", i+2, header[col], err)
			}
			m.Set(i, c, v)
		}
		for c, col := range confounderCols {
			v, err := cellFloat(record, col)
			if err != nil {
				return nil, fmt.Errorf("row %d confounder %s: %w", i+2, header[col], err)
			}
			x.Set(i, c, v)
		}
	}
	return mediation.NewDataset(y, z, m, x)
}

func cellFloat(record []string, col int) (float64, error) {
	if col >= len(record) {
		return 0, fmt.Errorf("missing value")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as number", record[col])
	}
	return v, nil
}
