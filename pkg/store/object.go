package store

import (
	"encoding/gob"

	gojson "github.com/goccy/go-json"

	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/table"
)

// SaveObject gob-encodes an arbitrary value to path. The counterpart of
// pickling: a binary, Go-native object dump.
func SaveObject(v interface{}, path string) error {
	w, err := openOutput(path)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(w).Encode(v); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to encode object")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to finalize file")
	}
	return nil
}

// LoadObject gob-decodes the file at path into out, which must be a
// pointer to a value of the encoded type.
func LoadObject(path string, out interface{}) error {
	r, err := openInput(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	if err := gob.NewDecoder(r).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to decode object")
	}
	return nil
}

// SaveJSON writes v as indented JSON. Tables keep their column order and
// cell types through their JSON envelope.
func SaveJSON(v interface{}, path string) error {
	w, err := openOutput(path)
	if err != nil {
		return err
	}

	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to encode JSON")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to finalize file")
	}
	return nil
}

// LoadJSONTable reads a table saved with SaveJSON.
func LoadJSONTable(path string) (*table.Table, error) {
	var tbl table.Table
	if err := LoadJSON(path, &tbl); err != nil {
		return nil, err
	}
	return &tbl, nil
}

// LoadJSON reads the JSON file at path into out.
func LoadJSON(path string, out interface{}) error {
	r, err := openInput(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	if err := gojson.NewDecoder(r).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to decode JSON")
	}
	return nil
}
