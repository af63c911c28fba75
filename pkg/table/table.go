// Package table provides the in-memory tabular payload used throughout
// datakit. A Table is an ordered collection of named columns with a fixed
// row count, the value passed between the serialization helpers and the
// database façade.
//
// Cell values are restricted to nil, bool, int64, float64, string and
// time.Time. AppendRow normalizes the common Go equivalents (int, float32,
// []byte, ...) into this set so a Table built from driver or file input is
// always directly comparable.
package table

import (
	"bytes"
	"encoding/gob"
	"math"
	"time"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// ColumnType identifies the inferred type of a column.
type ColumnType string

const (
	// TypeBool is a boolean column
	TypeBool ColumnType = "bool"
	// TypeInt is an int64 column
	TypeInt ColumnType = "int"
	// TypeFloat is a float64 column
	TypeFloat ColumnType = "float"
	// TypeString is a text column
	TypeString ColumnType = "string"
	// TypeTime is a timestamp column
	TypeTime ColumnType = "time"
)

// Table is an ordered, fixed-width collection of named columns.
// The zero value is not usable; construct with New.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

func init() {
	gob.Register(time.Time{})
}

// New creates an empty table with the given column names.
// Names must be non-empty and unique.
func New(columns ...string) (*Table, error) {
	if len(columns) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "at least one column is required")
	}

	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if name == "" {
			return nil, errors.New(errors.ErrorTypeValidation, "column names must be non-empty")
		}
		if _, dup := index[name]; dup {
			return nil, errors.Newf(errors.ErrorTypeValidation, "duplicate column name %q", name)
		}
		index[name] = i
	}

	return &Table{
		columns: append([]string(nil), columns...),
		index:   index,
	}, nil
}

// MustNew is like New but panics on error. Intended for fixed literals.
func MustNew(columns ...string) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// AppendRow appends one row. The number of values must match the number
// of columns; values are normalized into the supported cell types.
func (t *Table) AppendRow(values ...interface{}) error {
	if len(values) != len(t.columns) {
		return errors.Newf(errors.ErrorTypeData,
			"row has %d values, table has %d columns", len(values), len(t.columns))
	}

	row := make([]interface{}, len(values))
	for i, v := range values {
		nv, err := normalize(v)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "unsupported cell value").
				WithDetail("column", t.columns[i])
		}
		row[i] = nv
	}

	t.rows = append(t.rows, row)
	return nil
}

// normalize converts a value into the canonical cell type set.
func normalize(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, float64, string, time.Time:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, errors.Newf(errors.ErrorTypeData, "value %d overflows int64", x)
		}
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, errors.Newf(errors.ErrorTypeData, "value %d overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	case []byte:
		return string(x), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported value type %T", v)
	}
}

// Columns returns a copy of the ordered column names.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.columns) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Row returns a copy of row i.
func (t *Table) Row(i int) ([]interface{}, error) {
	if i < 0 || i >= len(t.rows) {
		return nil, errors.Newf(errors.ErrorTypeData, "row index %d out of range [0, %d)", i, len(t.rows))
	}
	return append([]interface{}(nil), t.rows[i]...), nil
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]interface{}, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "column %q not found", name)
	}

	values := make([]interface{}, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Cell returns the value at row i of the named column.
func (t *Table) Cell(i int, name string) (interface{}, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "column %q not found", name)
	}
	if i < 0 || i >= len(t.rows) {
		return nil, errors.Newf(errors.ErrorTypeData, "row index %d out of range [0, %d)", i, len(t.rows))
	}
	return t.rows[i][idx], nil
}

// Slice returns a new table holding rows [lo, hi). The result shares no
// storage with the receiver.
func (t *Table) Slice(lo, hi int) (*Table, error) {
	if lo < 0 || hi > len(t.rows) || lo > hi {
		return nil, errors.Newf(errors.ErrorTypeData, "slice bounds [%d, %d) out of range [0, %d)", lo, hi, len(t.rows))
	}

	out, _ := New(t.columns...)
	for _, row := range t.rows[lo:hi] {
		out.rows = append(out.rows, append([]interface{}(nil), row...))
	}
	return out, nil
}

// Chunks partitions the table into sequential row batches of at most size
// rows. size <= 0 means a single chunk. An empty table yields no chunks.
func (t *Table) Chunks(size int) []*Table {
	if len(t.rows) == 0 {
		return nil
	}
	if size <= 0 || size >= len(t.rows) {
		c, _ := t.Slice(0, len(t.rows))
		return []*Table{c}
	}

	chunks := make([]*Table, 0, (len(t.rows)+size-1)/size)
	for lo := 0; lo < len(t.rows); lo += size {
		hi := lo + size
		if hi > len(t.rows) {
			hi = len(t.rows)
		}
		c, _ := t.Slice(lo, hi)
		chunks = append(chunks, c)
	}
	return chunks
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out, _ := t.Slice(0, len(t.rows))
	return out
}

// Equal reports structural and value equality with another table:
// same column names in the same order, same row count, equal cells.
func (t *Table) Equal(o *Table) bool {
	if o == nil || len(t.columns) != len(o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i, name := range t.columns {
		if o.columns[i] != name {
			return false
		}
	}
	for i, row := range t.rows {
		for j, v := range row {
			if !cellEqual(v, o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func cellEqual(a, b interface{}) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return a == b
}

// ColumnTypes infers a type for each column: the most specific type that
// fits every non-nil cell. Integer and float cells mix to float; any other
// mix degrades to string. All-nil columns report string.
func (t *Table) ColumnTypes() []ColumnType {
	types := make([]ColumnType, len(t.columns))

	for j := range t.columns {
		var inferred ColumnType
		for _, row := range t.rows {
			v := row[j]
			if v == nil {
				continue
			}

			var ct ColumnType
			switch v.(type) {
			case bool:
				ct = TypeBool
			case int64:
				ct = TypeInt
			case float64:
				ct = TypeFloat
			case time.Time:
				ct = TypeTime
			default:
				ct = TypeString
			}

			switch {
			case inferred == "":
				inferred = ct
			case inferred == ct:
			case (inferred == TypeInt && ct == TypeFloat) || (inferred == TypeFloat && ct == TypeInt):
				inferred = TypeFloat
			default:
				inferred = TypeString
			}
			if inferred == TypeString {
				break
			}
		}
		if inferred == "" {
			inferred = TypeString
		}
		types[j] = inferred
	}

	return types
}

type tableGob struct {
	Columns []string
	Rows    [][]interface{}
}

// GobEncode implements gob.GobEncoder.
func (t *Table) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tableGob{Columns: t.columns, Rows: t.rows}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (t *Table) GobDecode(data []byte) error {
	var env tableGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return err
	}

	nt, err := New(env.Columns...)
	if err != nil {
		return err
	}
	nt.rows = env.Rows
	*t = *nt
	return nil
}
