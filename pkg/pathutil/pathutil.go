// Package pathutil resolves filesystem paths relative to a base directory,
// optionally creating them on the way.
package pathutil

import (
	"os"
	"path/filepath"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// Dir resolves paths against a fixed base directory.
type Dir struct {
	base string
}

// New returns a Dir rooted at base. An empty base means the current
// working directory.
func New(base string) *Dir {
	if base == "" {
		base = "."
	}
	return &Dir{base: base}
}

// Base returns the base directory.
func (d *Dir) Base() string { return d.base }

// Path joins the given elements onto the base directory without touching
// the filesystem.
func (d *Dir) Path(elem ...string) string {
	return filepath.Join(append([]string{d.base}, elem...)...)
}

// MkPath joins the given elements onto the base directory and creates the
// resulting directory chain if it does not exist.
func (d *Dir) MkPath(elem ...string) (string, error) {
	p := d.Path(elem...)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory")
	}
	return p, nil
}

// MkFilePath joins the given elements onto the base directory, treating the
// last element as a file name: only the parent chain is created.
func (d *Dir) MkFilePath(elem ...string) (string, error) {
	p := d.Path(elem...)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create parent directory")
	}
	return p, nil
}

// CD resolves a path relative to the current working directory.
func CD(elem ...string) string {
	return New("").Path(elem...)
}

// CDD resolves a path relative to the current working directory and
// creates the directory chain.
func CDD(elem ...string) (string, error) {
	return New("").MkPath(elem...)
}
