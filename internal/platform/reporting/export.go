package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetOverview   = "Overview"
	sheetServices   = "Services"
	sheetStay       = "Average Stay"
	sheetChronic    = "Chronic Patients"
	sheetMedicines  = "Medicines"
	timestampFormat = "2006-01-02 15:04:05"
)

type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]interface{}
}

// ExportXLSX renders the summary as a workbook with one sheet per aggregate
// and returns the encoded file.
func ExportXLSX(s Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, sh := range buildSheets(s) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return nil, fmt.Errorf("rename default sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh, headerStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sh sheet, headerStyle int) error {
	for col, header := range sh.headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sh.name, cell, header); err != nil {
			return fmt.Errorf("set header cell %s!%s: %w", sh.name, cell, err)
		}
		if err := f.SetCellStyle(sh.name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
		if col < len(sh.widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return fmt.Errorf("convert column: %w", err)
			}
			if err := f.SetColWidth(sh.name, name, name, sh.widths[col]); err != nil {
				return fmt.Errorf("set column width: %w", err)
			}
		}
	}

	for r, row := range sh.rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return fmt.Errorf("convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sh.name, cell, value); err != nil {
				return fmt.Errorf("set cell %s!%s: %w", sh.name, cell, err)
			}
		}
	}
	return nil
}

func buildSheets(s Summary) []sheet {
	overview := sheet{
		name:    sheetOverview,
		headers: []string{"Metric", "Value"},
		widths:  []float64{28, 24},
		rows: [][]interface{}{
			{"Scope", s.Scope},
			{"Generated At", s.GeneratedAt.Format(timestampFormat)},
			{"Total Beds", s.TotalBeds},
			{"Occupied Beds", s.OccupiedBeds},
			{"Occupancy Rate (%)", s.OccupancyRate},
			{"Clinical Histories", s.HistoryCount},
		},
	}

	services := sheet{
		name:    sheetServices,
		headers: []string{"Service", "Occupied Beds", "Admissions", "Discharges"},
		widths:  []float64{24, 16, 14, 14},
	}
	seen := map[string]bool{}
	for _, m := range []map[string]int{s.OccupiedPerService, s.Admissions, s.Discharges} {
		for service := range m {
			seen[service] = true
		}
	}
	for _, service := range sortedKeys(seen) {
		services.rows = append(services.rows, []interface{}{
			service, s.OccupiedPerService[service], s.Admissions[service], s.Discharges[service],
		})
	}

	stay := sheet{
		name:    sheetStay,
		headers: []string{"Service", "Average Stay", "Seconds"},
		widths:  []float64{24, 18, 14},
	}
	for _, service := range sortedKeys(s.AverageStay) {
		d := s.AverageStay[service]
		stay.rows = append(stay.rows, []interface{}{service, FormatStay(d), d.Seconds()})
	}

	chronic := sheet{
		name:    sheetChronic,
		headers: []string{"Patient Name"},
		widths:  []float64{32},
	}
	for _, name := range s.ChronicPatients {
		chronic.rows = append(chronic.rows, []interface{}{name})
	}

	meds := sheet{
		name:    sheetMedicines,
		headers: []string{"Service", "Medicine"},
		widths:  []float64{24, 32},
	}
	for _, service := range sortedKeys(s.Medicines) {
		for _, med := range s.Medicines[service] {
			meds.rows = append(meds.rows, []interface{}{service, med})
		}
	}

	return []sheet{overview, services, stay, chronic, meds}
}
