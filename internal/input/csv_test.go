package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV_Basic(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `Company,Period of Report,URL
Acme Corp,2024-Q1,https://acme.example/q1
Beta LLC,2024-Q1,https://beta.example/q1
`)

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme Corp", rows[0].Company)
	assert.Equal(t, "2024-Q1", rows[0].Period)
	assert.Equal(t, "https://acme.example/q1", rows[0].URL)
	assert.Equal(t, "Beta LLC", rows[1].Company)
}

func TestReadCSV_QuotedFieldsWithCommas(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `Company,Period of Report,URL
"Acme, Inc.",2024-Q1,https://acme.example/q1
`)

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme, Inc.", rows[0].Company)
}

func TestReadCSV_ExtraColumnsIgnored(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `Ticker,Company,Period of Report,URL,Notes
AAPL,Apple,2024-Q2,https://apple.example/q2,big
`)

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Apple", rows[0].Company)
	assert.Equal(t, "https://apple.example/q2", rows[0].URL)
}

func TestReadCSV_HeaderOnlyYieldsZeroRows(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "Company,Period of Report,URL\n")

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadCSV_MissingRequiredColumn(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `Company,URL
Acme,https://acme.example
`)

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.True(t, IsRowFormatError(err))
	assert.Contains(t, err.Error(), "Period of Report")
}

func TestReadCSV_RaggedRow(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `Company,Period of Report,URL
Acme,2024-Q1
`)

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.True(t, IsRowFormatError(err))
}

func TestReadCSV_EmptyFile(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "")

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.True(t, IsRowFormatError(err))
	assert.Contains(t, err.Error(), "missing header")
}

func TestReadCSV_MissingFileIsNotFormatError(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.False(t, IsRowFormatError(err))
}

func TestReadRows_DispatchesCSV(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `Company,Period of Report,URL
Acme,2024-Q1,https://acme.example
`)

	rows, err := ReadRows(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
