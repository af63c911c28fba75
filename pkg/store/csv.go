package store

import (
	"encoding/csv"
	"io"

	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/table"
)

// SaveCSV writes tbl as a header-first CSV file.
func SaveCSV(tbl *table.Table, path string) error {
	w, err := openOutput(path)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Columns()); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write header")
	}

	for i := 0; i < tbl.NumRows(); i++ {
		row, err := tbl.Row(i)
		if err != nil {
			_ = w.Close()
			return err
		}

		record := make([]string, len(row))
		for j, v := range row {
			record[j] = table.FormatCell(v)
		}
		if err := cw.Write(record); err != nil {
			_ = w.Close()
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush CSV")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to finalize file")
	}
	return nil
}

// LoadCSV reads a header-first CSV file, re-inferring cell types from the
// text (see table.ParseCell). Empty cells load as nil.
func LoadCSV(path string) (*table.Table, error) {
	r, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read header")
	}

	tbl, err := table.New(header...)
	if err != nil {
		return nil, err
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read row")
		}

		values := make([]interface{}, len(record))
		for j, s := range record {
			values[j] = table.ParseCell(s)
		}
		if err := tbl.AppendRow(values...); err != nil {
			return nil, err
		}
	}

	return tbl, nil
}
