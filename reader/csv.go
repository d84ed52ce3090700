package reader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"voyageflow/models"
)

// parseCSV reads delimited text with the first row as header. Variable-width
// records are accepted; the BOM some spreadsheet exports prepend is stripped.
func parseCSV(data []byte) ([]models.RawRow, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	table, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	// A lone header or an empty file yields zero rows, not an error.
	if len(table) > 0 && len(table[0]) == 1 && strings.TrimSpace(table[0][0]) == "" {
		return nil, nil
	}
	return rowsFromTable(table), nil
}
