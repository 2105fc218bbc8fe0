package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"popdash/internal/models"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	PopulationSheet = "Population"
	ProvinceSheet   = "Province"
)

// WriteXLSX writes rows to a workbook. info is added as a second sheet when non-nil.
// Missing populations are left as blank cells.
func WriteXLSX(w io.Writer, rows []models.TidyRecord, province string, info *models.ProvinceInfo) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PopulationSheet); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	if err := f.SetSheetRow(PopulationSheet, "A1", &[]interface{}{"Province", "Year", "Population"}); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		row := []interface{}{r.Province, string(r.Year), nil}
		if r.Population.Valid {
			row[2] = r.Population.Value
		}
		if err := f.SetSheetRow(PopulationSheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}

	if info != nil {
		if _, err := f.NewSheet(ProvinceSheet); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		pairs := [][]interface{}{
			{"Province", province},
			{"Region", info.Region},
			{"Capital", info.Capital},
			{"Island Group", info.IslandGroup},
		}
		for i, pair := range pairs {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(ProvinceSheet, cell, &pair); err != nil {
				return fmt.Errorf("xlsx province sheet: %w", err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
