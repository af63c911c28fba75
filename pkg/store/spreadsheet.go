package store

import (
	"github.com/xuri/excelize/v2"

	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/table"
)

// defaultSheet is the worksheet used for single-table workbooks.
const defaultSheet = "Sheet1"

// SaveSpreadsheet writes tbl to an xlsx workbook with a header row on the
// default sheet. Cells are written as text so the load-side re-inference
// mirrors the CSV pair exactly.
func SaveSpreadsheet(tbl *table.Table, path string) error {
	w, err := openOutput(path)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for j, name := range tbl.Columns() {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			_ = w.Close()
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to address header cell")
		}
		if err := f.SetCellValue(defaultSheet, cell, name); err != nil {
			_ = w.Close()
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write header cell")
		}
	}

	for i := 0; i < tbl.NumRows(); i++ {
		row, err := tbl.Row(i)
		if err != nil {
			_ = w.Close()
			return err
		}
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				_ = w.Close()
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to address cell")
			}
			if err := f.SetCellStr(defaultSheet, cell, table.FormatCell(v)); err != nil {
				_ = w.Close()
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to write cell")
			}
		}
	}

	if err := f.Write(w); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write workbook")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to finalize file")
	}
	return nil
}

// LoadSpreadsheet reads the default sheet of an xlsx workbook written by
// SaveSpreadsheet, re-inferring cell types from the text. The reader
// cannot tell a trailing blank row from the end of the sheet, so rows
// whose cells are all nil are dropped from the tail of the table;
// interior blank rows survive.
func LoadSpreadsheet(path string) (*table.Table, error) {
	r, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open workbook")
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(defaultSheet)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read sheet")
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrorTypeFile, "workbook has no header row")
	}

	tbl, err := table.New(rows[0]...)
	if err != nil {
		return nil, err
	}

	for _, record := range rows[1:] {
		values := make([]interface{}, tbl.NumCols())
		for j := range values {
			// Trailing empty cells are trimmed by the reader.
			if j < len(record) {
				values[j] = table.ParseCell(record[j])
			}
		}
		if err := tbl.AppendRow(values...); err != nil {
			return nil, err
		}
	}

	return tbl, nil
}
