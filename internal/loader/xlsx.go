package loader

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first sheet that holds any data. Cells are read raw, so
// dates arrive as Excel serial numbers and numbers without display formatting.
func readXLSX(name string, data []byte) (*RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Source: name, Reason: "cannot open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &FormatError{Source: name, Reason: "workbook has no sheets"}
	}
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &FormatError{Source: name, Reason: "cannot read sheet " + sheet, Err: err}
		}
		t := &RawTable{Source: name, Sheet: sheet, Encoding: "xlsx"}
		buildTable(t, rows, 1, true)
		if t.Headers != nil {
			return t, nil
		}
	}
	return nil, &FormatError{Source: name, Reason: "every sheet is empty"}
}
