package table

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeqfu/datakit/pkg/errors"
)

func cityTable(t *testing.T) *Table {
	t.Helper()

	tbl, err := New("Easting", "Northing")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(530034, 180381))  // London
	require.NoError(t, tbl.AppendRow(406689, 286822))  // Birmingham
	require.NoError(t, tbl.AppendRow(383819, 398052))  // Manchester
	require.NoError(t, tbl.AppendRow(430147, 433553))  // Leeds
	return tbl
}

func TestNewRejectsBadColumns(t *testing.T) {
	_, err := New()
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = New("a", "a")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = New("a", "")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestAppendRowNormalizes(t *testing.T) {
	tbl := MustNew("n", "f", "s", "b")
	require.NoError(t, tbl.AppendRow(int32(7), float32(1.5), []byte("raw"), true))

	row, err := tbl.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(7), float64(1.5), "raw", true}, row)
}

func TestAppendRowRejectsUint64Overflow(t *testing.T) {
	tbl := MustNew("v")

	err := tbl.AppendRow(uint64(math.MaxUint64))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Zero(t, tbl.NumRows())

	require.NoError(t, tbl.AppendRow(uint64(math.MaxInt64)))
	v, err := tbl.Cell(0, "v")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)
}

func TestAppendRowArityChecked(t *testing.T) {
	tbl := MustNew("a", "b")
	err := tbl.AppendRow(1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Zero(t, tbl.NumRows())
}

func TestColumnAndCellAccess(t *testing.T) {
	tbl := cityTable(t)

	col, err := tbl.Column("Easting")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(530034), int64(406689), int64(383819), int64(430147)}, col)

	v, err := tbl.Cell(3, "Northing")
	require.NoError(t, err)
	assert.Equal(t, int64(433553), v)

	_, err = tbl.Column("nope")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestSliceSharesNoStorage(t *testing.T) {
	tbl := cityTable(t)

	head, err := tbl.Slice(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, head.NumRows())

	require.NoError(t, head.AppendRow(0, 0))
	assert.Equal(t, 4, tbl.NumRows())
}

func TestChunks(t *testing.T) {
	tbl := cityTable(t)

	chunks := tbl.Chunks(2)
	require.Len(t, chunks, 2)
	assert.Equal(t, 2, chunks[0].NumRows())
	assert.Equal(t, 2, chunks[1].NumRows())

	chunks = tbl.Chunks(3)
	require.Len(t, chunks, 2)
	assert.Equal(t, 3, chunks[0].NumRows())
	assert.Equal(t, 1, chunks[1].NumRows())

	// Unset size means a single batch.
	chunks = tbl.Chunks(0)
	require.Len(t, chunks, 1)
	assert.Equal(t, 4, chunks[0].NumRows())

	empty := MustNew("a")
	assert.Nil(t, empty.Chunks(2))
}

func TestEqual(t *testing.T) {
	a := cityTable(t)
	b := cityTable(t)
	assert.True(t, a.Equal(b))

	require.NoError(t, b.AppendRow(1, 2))
	assert.False(t, a.Equal(b))

	c := MustNew("Northing", "Easting")
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestColumnTypes(t *testing.T) {
	tbl := MustNew("i", "f", "mixed_num", "mixed", "empty", "ts")
	now := time.Now().UTC()
	require.NoError(t, tbl.AppendRow(1, 1.5, 1, "x", nil, now))
	require.NoError(t, tbl.AppendRow(2, nil, 2.5, true, nil, now))

	assert.Equal(t, []ColumnType{TypeInt, TypeFloat, TypeFloat, TypeString, TypeString, TypeTime}, tbl.ColumnTypes())
}

func TestGobRoundTrip(t *testing.T) {
	tbl := cityTable(t)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(tbl))

	var loaded Table
	require.NoError(t, gob.NewDecoder(&buf).Decode(&loaded))

	assert.True(t, tbl.Equal(&loaded))
}

func TestJSONRoundTrip(t *testing.T) {
	tbl := MustNew("name", "count", "ratio", "active", "seen")
	seen := time.Date(2019, 6, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, tbl.AppendRow("London", 42, 0.25, true, seen))
	require.NoError(t, tbl.AppendRow("Leeds", nil, 1e-9, false, seen.Add(time.Hour)))

	data, err := gojson.Marshal(tbl)
	require.NoError(t, err)

	var loaded Table
	require.NoError(t, gojson.Unmarshal(data, &loaded))

	assert.True(t, tbl.Equal(&loaded))
}

func TestJSONRoundTripMixedColumns(t *testing.T) {
	tbl := MustNew("tag", "value")
	require.NoError(t, tbl.AppendRow("x", 7))
	require.NoError(t, tbl.AppendRow(7, 2.5))
	require.NoError(t, tbl.AppendRow(nil, 4.0))

	data, err := gojson.Marshal(tbl)
	require.NoError(t, err)

	var loaded Table
	require.NoError(t, gojson.Unmarshal(data, &loaded))
	require.True(t, tbl.Equal(&loaded))

	// Ints in a mixed text column stay ints, integral floats stay floats.
	v, err := loaded.Cell(1, "tag")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = loaded.Cell(2, "value")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}

func TestParseCell(t *testing.T) {
	assert.Equal(t, int64(42), ParseCell("42"))
	assert.Equal(t, 2.5, ParseCell("2.5"))
	assert.Equal(t, true, ParseCell("true"))
	assert.Equal(t, "Anglia", ParseCell("Anglia"))
	assert.Nil(t, ParseCell(""))

	ts, ok := ParseCell("2019-06-01T12:30:00Z").(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2019, ts.Year())
}

func TestFormatParseSymmetry(t *testing.T) {
	values := []interface{}{int64(530034), 1.25, true, "Birmingham", nil}
	for _, v := range values {
		assert.Equal(t, v, ParseCell(FormatCell(v)))
	}
}
