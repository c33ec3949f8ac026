package input

import (
	"errors"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/earnings-cli/internal/model"
)

// XLSXOptions configures XLSX row reading.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // rows to skip before the header row
}

// ReadXLSX reads the input table from an XLSX workbook. The first row after
// SkipRows is the header.
func ReadXLSX(path string, opts XLSXOptions) ([]model.InputRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "input: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var table [][]string
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		table = append(table, rowToStrings(row))
	}

	if len(table) == 0 {
		return nil, &RowFormatError{Path: path, Err: errors.New("missing header row")}
	}

	return rowsFromTable(path, table[0], table[1:])
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("input: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("input: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
