package store

import (
	"bytes"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/table"
)

// SaveFeather writes tbl as an Arrow IPC file (the feather v2 container).
// Supported cell types are nil, bool, int64, float64 and string; time
// columns must be formatted to text before saving. Columns are stored
// with their inferred Arrow type, so cells of a mixed column come back
// widened: ints in a float column reload as float64, and any cell in a
// text column reloads as its textual form.
func SaveFeather(tbl *table.Table, path string) error {
	schema, err := arrowSchema(tbl)
	if err != nil {
		return err
	}

	w, err := openOutput(path)
	if err != nil {
		return err
	}

	alloc := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(alloc, schema)
	defer builder.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(alloc))
	if err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create Arrow writer")
	}

	for i := 0; i < tbl.NumRows(); i++ {
		row, err := tbl.Row(i)
		if err != nil {
			_ = w.Close()
			return err
		}
		for j, v := range row {
			if err := appendArrowValue(builder.Field(j), v); err != nil {
				_ = w.Close()
				return err
			}
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()

	if err := fw.Write(rec); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write record batch")
	}
	if err := fw.Close(); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Arrow writer")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to finalize file")
	}
	return nil
}

// LoadFeather reads an Arrow IPC file written by SaveFeather.
func LoadFeather(path string) (*table.Table, error) {
	r, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	// The IPC file reader needs random access.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read Arrow data")
	}

	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open Arrow file")
	}
	defer func() { _ = fr.Close() }()

	schema := fr.Schema()
	columns := make([]string, len(schema.Fields()))
	for i, field := range schema.Fields() {
		columns[i] = field.Name
	}

	tbl, err := table.New(columns...)
	if err != nil {
		return nil, err
	}

	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read record batch")
		}

		for row := 0; row < int(rec.NumRows()); row++ {
			values := make([]interface{}, rec.NumCols())
			for col := 0; col < int(rec.NumCols()); col++ {
				values[col] = arrowColumnValue(rec.Column(col), row)
			}
			if err := tbl.AppendRow(values...); err != nil {
				return nil, err
			}
		}
	}

	return tbl, nil
}

// arrowSchema maps the table's inferred column types onto Arrow fields.
func arrowSchema(tbl *table.Table) (*arrow.Schema, error) {
	types := tbl.ColumnTypes()
	fields := make([]arrow.Field, tbl.NumCols())

	for i, name := range tbl.Columns() {
		var dt arrow.DataType
		switch types[i] {
		case table.TypeBool:
			dt = arrow.FixedWidthTypes.Boolean
		case table.TypeInt:
			dt = arrow.PrimitiveTypes.Int64
		case table.TypeFloat:
			dt = arrow.PrimitiveTypes.Float64
		case table.TypeString:
			dt = arrow.BinaryTypes.String
		default:
			return nil, errors.Newf(errors.ErrorTypeData,
				"column %q has type %s, not representable in Arrow output", name, types[i])
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}

	return arrow.NewSchema(fields, nil), nil
}

func appendArrowValue(builder array.Builder, value interface{}) error {
	if value == nil {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.BooleanBuilder:
		if v, ok := value.(bool); ok {
			b.Append(v)
			return nil
		}
	case *array.Int64Builder:
		if v, ok := value.(int64); ok {
			b.Append(v)
			return nil
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float64:
			b.Append(v)
			return nil
		case int64:
			b.Append(float64(v))
			return nil
		}
	case *array.StringBuilder:
		// Mixed columns infer as text; non-string cells land as their
		// textual form.
		if v, ok := value.(string); ok {
			b.Append(v)
		} else {
			b.Append(table.FormatCell(value))
		}
		return nil
	}

	return errors.Newf(errors.ErrorTypeData, "value %v does not fit column builder %T", value, builder)
}

func arrowColumnValue(col arrow.Array, row int) interface{} {
	if col.IsNull(row) {
		return nil
	}

	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(row)
	case *array.Int64:
		return c.Value(row)
	case *array.Float64:
		return c.Value(row)
	case *array.String:
		return c.Value(row)
	default:
		return nil
	}
}
