// Package export renders serial lists as XLSX or CSV files and reads and
// writes pattern definitions as YAML.
package export

import (
	"strconv"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// Row is one exported serial. Confidence is nil for generated serials.
type Row struct {
	Serial     string   `json:"serial"`
	Confidence *float64 `json:"confidence,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	Source     string   `json:"source,omitempty"`
}

var header = []string{"Serial", "Confidence", "Pattern", "Source"}

// Encoder renders rows into a file body.
type Encoder interface {
	Encode(rows []Row) ([]byte, error)
	Format() serial.ExportFormat
	Extension() string
}

// NewEncoder returns the encoder for format.
func NewEncoder(format serial.ExportFormat) (Encoder, error) {
	switch format {
	case serial.ExportFormatXLSX:
		return XLSXEncoder{}, nil
	case serial.ExportFormatCSV:
		return CSVEncoder{}, nil
	default:
		return nil, errors.Validation("unsupported export format").WithDetail("format=" + string(format))
	}
}

// SerialRows wraps plain serial values, as produced by range generation.
func SerialRows(serials []string) []Row {
	rows := make([]Row, len(serials))
	for i, s := range serials {
		rows[i] = Row{Serial: s}
	}
	return rows
}

func formatConfidence(c *float64) string {
	if c == nil {
		return ""
	}
	return strconv.FormatFloat(*c, 'f', -1, 64)
}

//Personal.AI order the ending
