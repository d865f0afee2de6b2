package excel

import (
	"fmt"

	"hdmed/models"

	"github.com/xuri/excelize/v2"
)

// ReportWriter exports an estimation report as a workbook with one sheet
// of effect rows.
type ReportWriter struct{}

// NewReportWriter creates a report writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

const resultsSheet = "effects"

// Write renders the report and saves it to filePath
func (w *ReportWriter) Write(report *models.Report, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(resultsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []interface{}{
		"run_id", "category", "contrast", "estimate", "std_err",
		"p_value", "ci_lower", "ci_upper", "retained", "trimmed",
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	rowNum := 2
	for _, category := range report.Categories {
		for _, effect := range category.Effects {
			row := []interface{}{
				report.RunID.String(),
				category.Category,
				string(effect.Contrast),
				effect.Estimate,
				effect.StdErr,
				effect.PValue,
				effect.CILower,
				effect.CIUpper,
				category.Retained,
				category.Trimmed,
			}
			cell := fmt.Sprintf("A%d", rowNum)
			if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
				return fmt.Errorf("failed to write row %d: %w", rowNum, err)
			}
			rowNum++
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", filePath, err)
	}
	return nil
}
