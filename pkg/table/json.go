package table

import (
	"math"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// jsonEnvelope is the column-order-preserving wire form of a Table.
// Cells carry their own int64/float64 distinction (floats are always
// written with a decimal point or exponent); the declared column types
// disambiguate timestamps from plain strings. Columns are typed by
// inference, so a time value sitting in a mixed column reloads as its
// RFC 3339 text rather than a time.Time.
type jsonEnvelope struct {
	Columns []string        `json:"columns"`
	Types   []ColumnType    `json:"types"`
	Rows    [][]interface{} `json:"rows"`
}

// MarshalJSON implements json.Marshaler.
func (t *Table) MarshalJSON() ([]byte, error) {
	env := jsonEnvelope{
		Columns: t.columns,
		Types:   t.ColumnTypes(),
		Rows:    make([][]interface{}, len(t.rows)),
	}

	for i, row := range t.rows {
		out := make([]interface{}, len(row))
		for j, v := range row {
			switch x := v.(type) {
			case time.Time:
				out[j] = x.Format(time.RFC3339Nano)
			case float64:
				out[j] = gojson.RawMessage(formatJSONFloat(x))
			default:
				out[j] = v
			}
		}
		env.Rows[i] = out
	}

	return gojson.Marshal(env)
}

// formatJSONFloat renders a float so it never reads back as an integer:
// integral values keep a trailing ".0". Non-finite values pass through
// unchanged and fail JSON encoding as they always have.
func formatJSONFloat(x float64) string {
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !math.IsInf(x, 0) && !math.IsNaN(x) {
		s += ".0"
	}
	return s
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Table) UnmarshalJSON(data []byte) error {
	var env struct {
		Columns []string              `json:"columns"`
		Types   []ColumnType          `json:"types"`
		Rows    [][]gojson.RawMessage `json:"rows"`
	}
	if err := gojson.Unmarshal(data, &env); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to parse table envelope")
	}
	if len(env.Types) != len(env.Columns) {
		return errors.New(errors.ErrorTypeData, "table envelope has mismatched columns and types")
	}

	nt, err := New(env.Columns...)
	if err != nil {
		return err
	}

	for _, raw := range env.Rows {
		if len(raw) != len(env.Columns) {
			return errors.Newf(errors.ErrorTypeData,
				"row has %d values, envelope declares %d columns", len(raw), len(env.Columns))
		}

		row := make([]interface{}, len(raw))
		for j, cell := range raw {
			v, err := decodeCell(cell, env.Types[j])
			if err != nil {
				return err
			}
			row[j] = v
		}
		nt.rows = append(nt.rows, row)
	}

	*t = *nt
	return nil
}

// decodeCell reads one envelope cell back into a typed value. Bools and
// numbers are self-describing; the column type only decides whether a
// JSON string is a timestamp or plain text.
func decodeCell(raw gojson.RawMessage, ct ColumnType) (interface{}, error) {
	s := string(raw)
	switch {
	case s == "null":
		return nil, nil
	case s == "true":
		return true, nil
	case s == "false":
		return false, nil
	case len(s) > 0 && s[0] == '"':
		var str string
		if err := gojson.Unmarshal(raw, &str); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid string cell")
		}
		if ct == TypeTime {
			ts, err := time.Parse(time.RFC3339Nano, str)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid time cell")
			}
			return ts, nil
		}
		return str, nil
	case strings.ContainsAny(s, ".eE"):
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid float cell")
		}
		return v, nil
	default:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid int cell")
		}
		return v, nil
	}
}

// ParseCell converts a textual cell (CSV, spreadsheet) back into a typed
// value: int64, float64, bool and RFC 3339 timestamps are recognized,
// anything else stays a string. Empty text maps to nil.
func ParseCell(s string) interface{} {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	return s
}

// FormatCell renders a typed cell value as text for CSV and spreadsheet
// output. nil renders as the empty string.
func FormatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case string:
		return x
	default:
		return ""
	}
}
