package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXEncoder_RoundTrip(t *testing.T) {
	rows := []Row{
		{Serial: "000123", Confidence: ptr(0.5), Pattern: "Sequential", Source: "text"},
		{Serial: "SN-0002"},
	}

	out, err := XLSXEncoder{}.Encode(rows)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	got, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Serial", "Confidence", "Pattern", "Source"}, got[0])
	assert.Equal(t, []string{"000123", "0.5", "Sequential", "text"}, got[1])
	assert.Equal(t, "SN-0002", got[2][0])
}

func TestXLSXEncoder_LargeRange(t *testing.T) {
	serials := make([]string, 5000)
	for i := range serials {
		serials[i] = "SN-" + string(rune('A'+i%26))
	}
	out, err := XLSXEncoder{}.Encode(SerialRows(serials))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, got, 5001)
	assert.Equal(t, "SN-B", got[2][0])
}

//Personal.AI order the ending
