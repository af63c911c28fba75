package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/table"
)

func cityTable(t *testing.T) *table.Table {
	t.Helper()

	tbl, err := table.New("Easting", "Northing")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(530034, 180381))  // London
	require.NoError(t, tbl.AppendRow(406689, 286822))  // Birmingham
	require.NoError(t, tbl.AppendRow(383819, 398052))  // Manchester
	require.NoError(t, tbl.AppendRow(430147, 433553))  // Leeds
	return tbl
}

func mixedTable(t *testing.T) *table.Table {
	t.Helper()

	tbl, err := table.New("city", "population", "growth", "capital")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow("London", 8982000, 0.7, true))
	require.NoError(t, tbl.AppendRow("Leeds", 789194, nil, false))
	return tbl
}

func TestSplitExt(t *testing.T) {
	cases := []struct {
		path, format, compression string
	}{
		{"cities.csv", ".csv", ""},
		{"cities.csv.gz", ".csv", ".gz"},
		{"cities.feather", ".feather", ""},
		{"cities.json.zst", ".json", ".zst"},
		{"dump.gob.lz4", ".gob", ".lz4"},
		{"no_ext", "", ""},
	}
	for _, c := range cases {
		format, compression := splitExt(c.path)
		assert.Equal(t, c.format, format, c.path)
		assert.Equal(t, c.compression, compression, c.path)
	}
}

func TestObjectRoundTrip(t *testing.T) {
	// The documented scenario: four cities' grid references through the
	// binary object dump and back.
	tbl := cityTable(t)
	path := filepath.Join(t.TempDir(), "cities.gob")

	require.NoError(t, SaveObject(tbl, path))

	var loaded table.Table
	require.NoError(t, LoadObject(path, &loaded))
	assert.True(t, tbl.Equal(&loaded))
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := mixedTable(t)
	path := filepath.Join(t.TempDir(), "cities.csv")

	require.NoError(t, SaveCSV(tbl, path))
	loaded, err := LoadCSV(path)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(loaded))
}

func TestCSVCompressedRoundTrip(t *testing.T) {
	tbl := cityTable(t)
	for _, ext := range []string{".gz", ".zst", ".lz4", ".sz"} {
		path := filepath.Join(t.TempDir(), "cities.csv"+ext)
		require.NoError(t, SaveTable(tbl, path), ext)

		loaded, err := LoadTable(path)
		require.NoError(t, err, ext)
		assert.True(t, tbl.Equal(loaded), ext)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	tbl := mixedTable(t)
	path := filepath.Join(t.TempDir(), "cities.json")

	require.NoError(t, SaveJSON(tbl, path))
	loaded, err := LoadJSONTable(path)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(loaded))
}

func TestSpreadsheetRoundTrip(t *testing.T) {
	tbl := mixedTable(t)
	path := filepath.Join(t.TempDir(), "cities.xlsx")

	require.NoError(t, SaveSpreadsheet(tbl, path))
	loaded, err := LoadSpreadsheet(path)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(loaded))
}

func TestFeatherRoundTrip(t *testing.T) {
	tbl := mixedTable(t)
	path := filepath.Join(t.TempDir(), "cities.feather")

	require.NoError(t, SaveFeather(tbl, path))
	loaded, err := LoadFeather(path)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(loaded))
}

func TestFeatherWidensMixedColumns(t *testing.T) {
	tbl := table.MustNew("tag", "value")
	require.NoError(t, tbl.AppendRow("x", 7))
	require.NoError(t, tbl.AppendRow(7, 2.5))
	path := filepath.Join(t.TempDir(), "mixed.feather")

	require.NoError(t, SaveFeather(tbl, path))
	loaded, err := LoadFeather(path)
	require.NoError(t, err)

	// Columns are stored with one Arrow type each: the mixed text column
	// keeps the int as its textual form, the mixed numeric column widens
	// the int to float.
	v, err := loaded.Cell(1, "tag")
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	v, err = loaded.Cell(0, "value")
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
}

func TestSpreadsheetDropsTrailingBlankRow(t *testing.T) {
	tbl := mixedTable(t)
	require.NoError(t, tbl.AppendRow(nil, nil, nil, nil))
	path := filepath.Join(t.TempDir(), "blank.xlsx")

	require.NoError(t, SaveSpreadsheet(tbl, path))
	loaded, err := LoadSpreadsheet(path)
	require.NoError(t, err)

	// The xlsx reader cannot tell a trailing blank row from the end of
	// the sheet, so the all-nil tail row does not survive.
	require.Equal(t, tbl.NumRows()-1, loaded.NumRows())
	head, err := tbl.Slice(0, tbl.NumRows()-1)
	require.NoError(t, err)
	assert.True(t, head.Equal(loaded))
}

func TestSpreadsheetKeepsInteriorBlankRow(t *testing.T) {
	tbl := table.MustNew("city", "population")
	require.NoError(t, tbl.AppendRow("London", 8982000))
	require.NoError(t, tbl.AppendRow(nil, nil))
	require.NoError(t, tbl.AppendRow("Leeds", 789194))
	path := filepath.Join(t.TempDir(), "interior.xlsx")

	require.NoError(t, SaveSpreadsheet(tbl, path))
	loaded, err := LoadSpreadsheet(path)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(loaded))
}

func TestFeatherRejectsTimeColumns(t *testing.T) {
	tbl, err := table.New("seen")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(time.Now()))

	err = SaveFeather(tbl, filepath.Join(t.TempDir(), "seen.feather"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestSaveTableDispatch(t *testing.T) {
	tbl := cityTable(t)
	dir := t.TempDir()

	for _, name := range []string{"c.csv", "c.json", "c.xlsx", "c.feather", "c.gob"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SaveTable(tbl, path), name)

		loaded, err := LoadTable(path)
		require.NoError(t, err, name)
		assert.True(t, tbl.Equal(loaded), name)
	}

	err := SaveTable(tbl, filepath.Join(dir, "c.parquet"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	_, err = LoadTable(filepath.Join(dir, "c.parquet"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}
