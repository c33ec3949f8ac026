// Package input reads the company/period/URL table that feeds the pipeline.
package input

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sells-group/earnings-cli/internal/model"
)

// Required header columns. Matching is exact on trimmed header cells.
const (
	ColCompany = "Company"
	ColPeriod  = "Period of Report"
	ColURL     = "URL"
)

// RowFormatError reports a malformed input table. It is fatal: the run
// aborts before any extraction begins.
type RowFormatError struct {
	Path string
	Err  error
}

func (e *RowFormatError) Error() string {
	return fmt.Sprintf("input: malformed table %s: %v", e.Path, e.Err)
}

func (e *RowFormatError) Unwrap() error {
	return e.Err
}

// IsRowFormatError returns true if the error chain contains a RowFormatError.
func IsRowFormatError(err error) bool {
	var rfe *RowFormatError
	return errors.As(err, &rfe)
}

// ReadRows reads input rows from path, dispatching on extension:
// .xlsx workbooks go through the XLSX reader, everything else is CSV.
func ReadRows(path string, opts XLSXOptions) ([]model.InputRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path, opts)
	}
	return ReadCSV(path)
}

// rowsFromTable converts a header row plus data rows into typed InputRows.
// The header must name all required columns; data rows may be shorter than
// the header (missing trailing cells read as empty).
func rowsFromTable(path string, header []string, data [][]string) ([]model.InputRow, error) {
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.TrimSpace(col)] = i
	}

	for _, col := range []string{ColCompany, ColPeriod, ColURL} {
		if _, ok := colIdx[col]; !ok {
			return nil, &RowFormatError{Path: path, Err: fmt.Errorf("missing required column %q", col)}
		}
	}

	rows := make([]model.InputRow, 0, len(data))
	for _, cells := range data {
		rows = append(rows, model.InputRow{
			Company: getCol(cells, colIdx, ColCompany),
			Period:  getCol(cells, colIdx, ColPeriod),
			URL:     getCol(cells, colIdx, ColURL),
		})
	}

	return rows, nil
}

// getCol safely retrieves a column value from a table row.
func getCol(row []string, colIdx map[string]int, col string) string {
	idx, ok := colIdx[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
