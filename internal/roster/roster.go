package roster

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	errs "github.com/R-Akshay-Kumar/coding-tracker/internal/errors"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/platform"
)

// Row maps a column name to the trimmed cell value.
type Row map[string]string

// Roster is a parsed student list. Columns keeps the header order.
type Roster struct {
	Columns []string
	Rows    []Row
}

// Parse decodes a CSV or XLSX upload, choosing the format from the file extension.
func Parse(filename string, data []byte) (*Roster, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(data)
	case ".xlsx", ".xlsm":
		records, err = readXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRoster, err)
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", errs.ErrInvalidRoster, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", errs.ErrInvalidRoster)
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func fromRecords(records [][]string) (*Roster, error) {
	if len(records) == 0 || isBlank(records[0]) {
		return nil, fmt.Errorf("%w: missing header row", errs.ErrInvalidRoster)
	}

	columns := headerColumns(records[0])
	r := &Roster{Columns: columns}
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = cleanCell(record[i])
			} else {
				row[col] = ""
			}
		}
		r.Rows = append(r.Rows, row)
	}
	return r, nil
}

// headerColumns names blank headers positionally and suffixes duplicates so
// every column key is unique.
func headerColumns(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		columns[i] = name
	}
	return columns
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

func isBlank(record []string) bool {
	for _, v := range record {
		if cleanCell(v) != "" {
			return false
		}
	}
	return true
}

// HandleColumns finds, case-insensitively, the column carrying each platform's
// handles. Platforms without a column are absent from the result.
func HandleColumns(columns []string) map[platform.Platform]string {
	out := make(map[platform.Platform]string, len(platform.All))
	for _, p := range platform.All {
		for _, col := range columns {
			if strings.EqualFold(strings.TrimSpace(col), p.HandleColumn()) {
				out[p] = col
				break
			}
		}
	}
	return out
}
