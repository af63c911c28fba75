package ops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeqfu/datakit/pkg/errors"
)

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("easting,northing\n530034,180381\n"))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "data", "cities.csv")
	err := Download(context.Background(), server.URL+"/cities.csv", destination, DownloadOptions{})
	require.NoError(t, err)

	payload, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, "easting,northing\n530034,180381\n", string(payload))

	// No temporary leftovers next to the destination.
	entries, err := os.ReadDir(filepath.Dir(destination))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cities.csv", entries[0].Name())
}

func TestDownloadNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "missing.csv")
	err := Download(context.Background(), server.URL+"/missing.csv", destination, DownloadOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))

	_, statErr := os.Stat(destination)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadValidation(t *testing.T) {
	err := Download(context.Background(), "", "out.csv", DownloadOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	err = Download(context.Background(), "https://example.com/a.csv", "", DownloadOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestFilenameFromURL(t *testing.T) {
	assert.Equal(t, "areas.zip",
		FilenameFromURL("https://ordnancesurvey.example.com/downloads/areas.zip?version=2"))
	assert.Equal(t, "", FilenameFromURL("https://example.com/"))
	assert.Equal(t, "", FilenameFromURL("://bad"))
}
