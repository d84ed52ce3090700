package reader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"voyageflow/models"
)

// ErrUnsupportedFormat marks an upload whose extension maps to no parser.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// Parse turns uploaded file bytes into ordered raw rows, picking the parser
// from the declared filename's extension. Absent cells default to "".
func Parse(data []byte, filename string) ([]models.RawRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return parseCSV(data)
	case ".xlsx", ".xls":
		return parseXLSX(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// rowsFromTable converts a header row plus data rows into raw row maps. Short
// rows are padded with empty strings; rows wider than the header keep only the
// named columns, matching how spreadsheet tools export ragged sheets.
func rowsFromTable(table [][]string) []models.RawRow {
	if len(table) == 0 {
		return nil
	}

	header := table[0]
	rows := make([]models.RawRow, 0, len(table)-1)
	for _, cells := range table[1:] {
		if isBlankRow(cells) {
			continue
		}
		row := make(models.RawRow, len(header))
		for i, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				name = fmt.Sprintf("Column%d", i+1)
			}
			if i < len(cells) {
				row[name] = strings.TrimSpace(cells[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
