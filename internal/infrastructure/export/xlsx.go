package export

import (
	"github.com/xuri/excelize/v2"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// SheetName is the worksheet holding exported serials.
const SheetName = "Serials"

// XLSXEncoder writes a single-sheet workbook. Serials are stored as text so
// leading zeros survive.
type XLSXEncoder struct{}

func (XLSXEncoder) Format() serial.ExportFormat { return serial.ExportFormatXLSX }

func (XLSXEncoder) Extension() string { return ".xlsx" }

func (XLSXEncoder) Encode(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, wrapXLSX(err)
	}
	boldID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, wrapXLSX(err)
	}
	// Built-in number format 2 is "0.00".
	confID, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, wrapXLSX(err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, wrapXLSX(err)
	}
	widths := []float64{28, 12, 28, 10}
	for i, w := range widths {
		if err := sw.SetColWidth(i+1, i+1, w); err != nil {
			return nil, wrapXLSX(err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, wrapXLSX(err)
	}

	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = excelize.Cell{StyleID: boldID, Value: h}
	}
	if err := sw.SetRow("A1", head); err != nil {
		return nil, wrapXLSX(err)
	}

	for i, r := range rows {
		var conf interface{}
		if r.Confidence != nil {
			conf = excelize.Cell{StyleID: confID, Value: *r.Confidence}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, wrapXLSX(err)
		}
		if err := sw.SetRow(cell, []interface{}{r.Serial, conf, r.Pattern, r.Source}); err != nil {
			return nil, wrapXLSX(err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, wrapXLSX(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, wrapXLSX(err)
	}
	return buf.Bytes(), nil
}

func wrapXLSX(err error) error {
	return errors.Wrap(err, errors.ErrCodeExportFailed, "xlsx write")
}

//Personal.AI order the ending
