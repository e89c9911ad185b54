package export

import (
	"bytes"
	"encoding/csv"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// CSVEncoder writes RFC 4180 CSV with a header row.
type CSVEncoder struct{}

func (CSVEncoder) Format() serial.ExportFormat { return serial.ExportFormatCSV }

func (CSVEncoder) Extension() string { return ".csv" }

func (CSVEncoder) Encode(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "csv write")
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Serial, formatConfidence(r.Confidence), r.Pattern, r.Source}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "csv write")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "csv flush")
	}
	return buf.Bytes(), nil
}

//Personal.AI order the ending
