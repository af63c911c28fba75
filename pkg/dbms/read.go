package dbms

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/table"
)

// ReadTable fetches the full contents of a table.
func (c *PostgresConnector) ReadTable(ctx context.Context, tableName, schemaName string) (*table.Table, error) {
	if schemaName == "" {
		schemaName = defaultSchema
	}

	exists, err := c.TableExists(ctx, tableName, schemaName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound,
			"table %s.%s does not exist", schemaName, tableName)
	}

	query := "SELECT * FROM " + pgx.Identifier{schemaName, tableName}.Sanitize()
	return c.ReadQuery(ctx, query)
}

// ReadQuery runs an arbitrary SQL query and returns the result set as a
// table. Column names come from the result's field descriptions.
func (c *PostgresConnector) ReadQuery(ctx context.Context, query string, args ...interface{}) (*table.Table, error) {
	pool, err := c.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "query failed")
	}
	defer rows.Close()

	descriptions := rows.FieldDescriptions()
	columns := make([]string, len(descriptions))
	for i, d := range descriptions {
		columns[i] = d.Name
	}

	tbl, err := table.New(columns...)
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read row")
		}
		for i, v := range values {
			values[i] = normalizeDriverValue(v)
		}
		if err := tbl.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result set")
	}
	return tbl, nil
}

// normalizeDriverValue coerces driver-specific value types into the
// small set the table accepts. Numeric columns decode as pgtype.Numeric
// and are converted to float64. Anything unrecognized is rendered as its
// string form rather than rejected.
func normalizeDriverValue(v interface{}) interface{} {
	switch value := v.(type) {
	case nil, bool, string, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return value
	case []byte:
		return string(value)
	case pgtype.Numeric:
		f, err := value.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return fmt.Sprintf("%v", value)
	}
}
