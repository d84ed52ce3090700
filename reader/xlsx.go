package reader

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"voyageflow/models"
)

// parseXLSX reads the first sheet of a spreadsheet workbook, first row as
// header.
func parseXLSX(data []byte) ([]models.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	table, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rowsFromTable(table), nil
}
