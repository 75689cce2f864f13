package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/namelens/handlescan/internal/core"
)

const (
	outcomesSheet = "Outcomes"
	summarySheet  = "Summary"
)

var (
	outcomeColumns = []interface{}{"Identifier", "Target", "Category", "Availability", "Error Kind", "Detail", "URL", "HTTP Status", "Rank"}
	summaryColumns = []interface{}{"Identifier", "Check ID", "Registry", "Total", "Available", "Taken", "Errors", "Started", "Completed"}
)

// SaveXLSX writes the reports to a workbook on disk.
func SaveXLSX(path string, reports []*core.CheckReport) error {
	f, err := buildWorkbook(reports)
	if err != nil {
		return err
	}
	defer f.Close() // nolint:errcheck // nothing to flush after save

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// WriteXLSX streams the workbook to w.
func WriteXLSX(w io.Writer, reports []*core.CheckReport) error {
	f, err := buildWorkbook(reports)
	if err != nil {
		return err
	}
	defer f.Close() // nolint:errcheck // nothing to flush after write

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(reports []*core.CheckReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", outcomesSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	if err := fillWorkbook(f, reports); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func fillWorkbook(f *excelize.File, reports []*core.CheckReport) error {
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := writeRow(f, outcomesSheet, 1, outcomeColumns); err != nil {
		return err
	}
	if err := writeRow(f, summarySheet, 1, summaryColumns); err != nil {
		return err
	}
	if err := f.SetCellStyle(outcomesSheet, "A1", "I1", header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "A1", "I1", header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	outcomeRow, summaryRow := 2, 2
	for _, report := range reports {
		if report == nil {
			continue
		}
		for _, outcome := range report.Outcomes {
			values := []interface{}{
				report.Identifier,
				outcome.Target,
				outcome.Category,
				outcome.Availability.String(),
				string(outcome.ErrorKind),
				outcome.ErrorDetail,
				outcome.URL,
				outcome.StatusCode,
				outcome.Rank,
			}
			if err := writeRow(f, outcomesSheet, outcomeRow, values); err != nil {
				return err
			}
			outcomeRow++
		}

		values := []interface{}{
			report.Identifier,
			report.CheckID,
			report.RegistryVersion,
			report.Summary.Total,
			report.Summary.Available,
			report.Summary.Taken,
			report.Summary.Errors,
			report.StartedAt,
			report.CompletedAt,
		}
		if err := writeRow(f, summarySheet, summaryRow, values); err != nil {
			return err
		}
		summaryRow++
	}

	if err := f.SetColWidth(outcomesSheet, "A", "C", 18); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	if err := f.SetColWidth(outcomesSheet, "F", "G", 40); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
