package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

// Table renders records as string rows, header first.
func Table(columns []string, records []Record) [][]string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, append([]string(nil), columns...))
	for _, r := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			if col == ScoreColumn {
				row[i] = strconv.Itoa(r.Score)
				continue
			}
			row[i], _ = r.Get(col)
		}
		rows = append(rows, row)
	}
	return rows
}

// RowValues maps each column to its value, with Score as a number.
func RowValues(columns []string, r Record) map[string]any {
	out := make(map[string]any, len(columns))
	for _, col := range columns {
		if col == ScoreColumn {
			out[col] = r.Score
			continue
		}
		v, _ := r.Get(col)
		out[col] = v
	}
	return out
}

// WriteXLSX writes a single-sheet workbook with the report table.
func WriteXLSX(w io.Writer, columns []string, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		row := make([]any, len(columns))
		for j, col := range columns {
			if col == ScoreColumn {
				row[j] = r.Score
				continue
			}
			row[j], _ = r.Get(col)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
