package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathDoesNotTouchFilesystem(t *testing.T) {
	d := New(t.TempDir())

	p := d.Path("a", "b", "c")
	assert.Equal(t, filepath.Join(d.Base(), "a", "b", "c"), p)

	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}

func TestMkPathCreatesChain(t *testing.T) {
	d := New(t.TempDir())

	p, err := d.MkPath("data", "osgb")
	require.NoError(t, err)

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMkFilePathCreatesParentOnly(t *testing.T) {
	d := New(t.TempDir())

	p, err := d.MkFilePath("out", "cities.csv")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Dir(p))
	require.NoError(t, err)

	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}

func TestCDResolvesAgainstWorkingDirectory(t *testing.T) {
	assert.Equal(t, filepath.Join(".", "sub"), filepath.Join(CD("sub")))
}
