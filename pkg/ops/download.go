// Package ops holds small operational helpers shared by the other
// packages: fetching remote files and related bookkeeping.
package ops

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/logger"
)

// DownloadOptions configures Download.
type DownloadOptions struct {
	// RetryMax caps retry attempts on transient failures. Zero means the
	// default of 3.
	RetryMax int
	// Timeout bounds each attempt. Zero means 30 seconds.
	Timeout time.Duration
}

// Download fetches a URL into the given destination file, creating
// parent directories as needed. The payload lands in a temporary file
// next to the destination and is renamed into place only on success, so
// an interrupted download never leaves a truncated file behind.
func Download(ctx context.Context, rawURL, destination string, opts DownloadOptions) error {
	if rawURL == "" {
		return errors.New(errors.ErrorTypeValidation, "url is required")
	}
	if destination == "" {
		return errors.New(errors.ErrorTypeValidation, "destination path is required")
	}

	retryMax := opts.RetryMax
	if retryMax <= 0 {
		retryMax = 3
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "invalid url")
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrorTypeConnection, "unexpected status %s", resp.Status).
			WithDetail("url", rawURL)
	}

	if dir := filepath.Dir(destination); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to create destination directory")
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destination), filepath.Base(destination)+".download-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create temporary file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write download")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close temporary file")
	}

	if err := os.Rename(tmpName, destination); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to move download into place")
	}

	logger.Get().Info("downloaded file",
		zap.String("url", rawURL),
		zap.String("path", destination),
		zap.Int64("bytes", written))
	return nil
}

// FilenameFromURL extracts the trailing path component of a URL,
// ignoring any query string. It returns an empty string when the URL has
// no usable filename.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || strings.TrimSpace(name) == "" {
		return ""
	}
	return name
}
