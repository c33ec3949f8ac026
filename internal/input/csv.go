package input

import (
	"encoding/csv"
	"errors"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
)

// ReadCSV reads the input table from a CSV file. The first line is the
// header; fields may be double-quoted and quoted fields may contain commas.
// A header-only file is valid and yields zero rows.
func ReadCSV(path string) ([]model.InputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "input: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &RowFormatError{Path: path, Err: err}
	}

	if len(records) == 0 {
		return nil, &RowFormatError{Path: path, Err: errors.New("missing header line")}
	}

	return rowsFromTable(path, records[0], records[1:])
}
