//go:build !integration

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/earnings-cli/internal/model"
)

func TestPrintRowsJSON_BasicOutput(t *testing.T) {
	var buf bytes.Buffer

	rows := []model.InputRow{
		{Company: "Acme Corp", Period: "Q3 2024", URL: "https://acme.com/q3.html"},
		{Company: "Globex", Period: "Q1 2024", URL: "https://globex.com/q1.html"},
	}

	err := printRowsJSON(&buf, rows)
	require.NoError(t, err)

	var decoded []model.InputRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Acme Corp", decoded[0].Company)
	assert.Equal(t, "Q1 2024", decoded[1].Period)
}

func TestPrintRowsJSON_Empty(t *testing.T) {
	var buf bytes.Buffer

	err := printRowsJSON(&buf, []model.InputRow{})
	require.NoError(t, err)

	var decoded []model.InputRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Empty(t, decoded)
}

func TestPrintRowsJSON_PrettyPrinted(t *testing.T) {
	var buf bytes.Buffer

	rows := []model.InputRow{{Company: "Acme", Period: "FY2024", URL: "https://acme.com"}}
	require.NoError(t, printRowsJSON(&buf, rows))

	// Should be indented.
	assert.Contains(t, buf.String(), "  ")
}
