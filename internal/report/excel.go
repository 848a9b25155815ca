// Package report renders aggregate summaries as Excel workbooks.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/repositories"
)

var aggregateHeader = []string{"Period", "Count", "Average", "Min", "Max", "Sum"}

// WriteAggregateReport writes one metric's aggregate rows to an xlsx
// file, one sheet named after the metric.
func WriteAggregateReport(path, metricType string, period models.Period, rows []repositories.AggregateRow) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sheet := fmt.Sprintf("%s (%s)", metricType, period)
	if len(sheet) > 31 {
		sheet = sheet[:31] // sheet name limit
	}
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for col, header := range aggregateHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
	}

	for i, row := range rows {
		values := []any{row.Bucket, row.Count, row.Avg, row.Min, row.Max, row.Sum}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	widths := []float64{14, 10, 12, 10, 10, 12}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	return f.SaveAs(path)
}
