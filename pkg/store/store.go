// Package store saves and loads tabular and object data across the file
// formats datakit supports: gob (binary objects), JSON, CSV, xlsx
// spreadsheets and Arrow IPC ("feather") columnar files. A trailing
// compression extension (.gz, .zst, .lz4, .sz) is handled transparently
// on both save and load.
//
// SaveTable and LoadTable dispatch on the file extension; the per-format
// pairs are exported directly for callers that want to be explicit. Every
// pair guarantees load(save(x)) == x for the table cell types, modulo the
// documented text-format caveats (CSV and xlsx re-infer cell types from
// text on load).
package store

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"

	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/logger"
	"github.com/mikeqfu/datakit/pkg/table"
)

// SaveTable writes tbl to path, picking the format from the extension:
// .csv, .json, .xlsx, .feather/.arrow or .gob, each optionally followed
// by a compression extension.
func SaveTable(tbl *table.Table, path string) error {
	format, _ := splitExt(path)

	var err error
	switch format {
	case ".csv":
		err = SaveCSV(tbl, path)
	case ".json":
		err = SaveJSON(tbl, path)
	case ".xlsx":
		err = SaveSpreadsheet(tbl, path)
	case ".feather", ".arrow":
		err = SaveFeather(tbl, path)
	case ".gob":
		err = SaveObject(tbl, path)
	default:
		return errors.Newf(errors.ErrorTypeFile, "unsupported table format %q", format)
	}
	if err != nil {
		return err
	}

	logger.Debug("table saved",
		zap.String("path", path),
		zap.Int("rows", tbl.NumRows()),
		zap.Int("columns", tbl.NumCols()))
	return nil
}

// LoadTable reads a table from path, picking the format from the extension.
func LoadTable(path string) (*table.Table, error) {
	format, _ := splitExt(path)

	switch format {
	case ".csv":
		return LoadCSV(path)
	case ".json":
		return LoadJSONTable(path)
	case ".xlsx":
		return LoadSpreadsheet(path)
	case ".feather", ".arrow":
		return LoadFeather(path)
	case ".gob":
		var tbl table.Table
		if err := LoadObject(path, &tbl); err != nil {
			return nil, err
		}
		return &tbl, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeFile, "unsupported table format %q", format)
	}
}

// splitExt separates the format extension from an optional trailing
// compression extension: "cities.csv.gz" -> (".csv", ".gz").
func splitExt(path string) (format, compression string) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gz", ".zst", ".lz4", ".sz":
		compression = ext
		format = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ext)))
	default:
		format = ext
	}
	return format, compression
}

type writeStack struct {
	io.Writer
	closers []io.Closer
}

func (w *writeStack) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openOutput creates the target file (and its parent directory), wrapping
// the writer in a compressor when the path carries a compression extension.
func openOutput(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create parent directory")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create file")
	}

	_, compression := splitExt(path)
	switch compression {
	case "":
		return f, nil
	case ".gz":
		zw := gzip.NewWriter(f)
		return &writeStack{Writer: zw, closers: []io.Closer{zw, f}}, nil
	case ".zst":
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create zstd writer")
		}
		return &writeStack{Writer: zw, closers: []io.Closer{zw, f}}, nil
	case ".lz4":
		zw := lz4.NewWriter(f)
		return &writeStack{Writer: zw, closers: []io.Closer{zw, f}}, nil
	case ".sz":
		zw := snappy.NewBufferedWriter(f)
		return &writeStack{Writer: zw, closers: []io.Closer{zw, f}}, nil
	default:
		_ = f.Close()
		return nil, errors.Newf(errors.ErrorTypeFile, "unsupported compression %q", compression)
	}
}

type readStack struct {
	io.Reader
	close func() error
}

func (r *readStack) Close() error { return r.close() }

// openInput opens the file, unwrapping a compression layer when the path
// carries a compression extension.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file")
	}

	_, compression := splitExt(path)
	switch compression {
	case "":
		return f, nil
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read gzip header")
		}
		return &readStack{Reader: zr, close: func() error {
			_ = zr.Close()
			return f.Close()
		}}, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read zstd header")
		}
		return &readStack{Reader: zr, close: func() error {
			zr.Close()
			return f.Close()
		}}, nil
	case ".lz4":
		zr := lz4.NewReader(f)
		return &readStack{Reader: zr, close: f.Close}, nil
	case ".sz":
		zr := snappy.NewReader(f)
		return &readStack{Reader: zr, close: f.Close}, nil
	default:
		_ = f.Close()
		return nil, errors.Newf(errors.ErrorTypeFile, "unsupported compression %q", compression)
	}
}
