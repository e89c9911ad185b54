package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

func ptr(f float64) *float64 { return &f }

func TestNewEncoder(t *testing.T) {
	enc, err := NewEncoder(serial.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, serial.ExportFormatCSV, enc.Format())
	assert.Equal(t, ".csv", enc.Extension())

	enc, err = NewEncoder(serial.ExportFormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", enc.Extension())

	_, err = NewEncoder("pdf")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestCSVEncoder_Encode(t *testing.T) {
	rows := []Row{
		{Serial: "SN-0001", Confidence: ptr(0.95), Pattern: "Widget SN", Source: "text"},
		{Serial: "A,B", Pattern: `say "hi"`, Source: "barcode"},
	}

	out, err := CSVEncoder{}.Encode(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Serial", "Confidence", "Pattern", "Source"}, records[0])
	assert.Equal(t, []string{"SN-0001", "0.95", "Widget SN", "text"}, records[1])
	assert.Equal(t, []string{"A,B", "", `say "hi"`, "barcode"}, records[2])
}

func TestCSVEncoder_EmptyWritesHeaderOnly(t *testing.T) {
	out, err := CSVEncoder{}.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "Serial,Confidence,Pattern,Source\n", string(out))
}

func TestSerialRows(t *testing.T) {
	rows := SerialRows([]string{"SN-001", "SN-002"})
	require.Len(t, rows, 2)
	assert.Equal(t, "SN-002", rows[1].Serial)
	assert.Nil(t, rows[1].Confidence)
	assert.Empty(t, rows[1].Source)
}

//Personal.AI order the ending
