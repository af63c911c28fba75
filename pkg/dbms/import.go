package dbms

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/table"
)

const defaultSchema = "public"

// IfExistsPolicy controls what ImportTable does when the destination
// table already exists.
type IfExistsPolicy string

const (
	// IfExistsFail aborts the import with a conflict error.
	IfExistsFail IfExistsPolicy = "fail"
	// IfExistsReplace drops the existing table and recreates it from the
	// incoming payload.
	IfExistsReplace IfExistsPolicy = "replace"
	// IfExistsAppend appends rows to the existing table, which must have
	// the same columns in the same order.
	IfExistsAppend IfExistsPolicy = "append"
)

// ParseIfExistsPolicy parses a policy name.
func ParseIfExistsPolicy(s string) (IfExistsPolicy, error) {
	switch IfExistsPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case IfExistsFail:
		return IfExistsFail, nil
	case IfExistsReplace:
		return IfExistsReplace, nil
	case IfExistsAppend:
		return IfExistsAppend, nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation,
			"unknown if-exists policy %q (want fail, replace or append)", s)
	}
}

// ImportOptions configures ImportTable.
type ImportOptions struct {
	// IfExists selects the conflict policy. Empty means IfExistsFail.
	IfExists IfExistsPolicy
	// ChunkSize caps the number of rows per COPY batch. Zero or negative
	// sends everything in one batch.
	ChunkSize int
	// Confirm, when set, asks the confirmation callback before writing.
	// A declined prompt cancels the import without error.
	Confirm bool
}

// ImportTable bulk-loads a table into the connected database using COPY.
// The destination schema is created when missing, and a missing
// destination table is created with column types inferred from the
// payload. Batches are sent sequentially without a wrapping transaction,
// so a mid-import failure leaves earlier batches persisted; the error
// detail records how many rows made it.
func (c *PostgresConnector) ImportTable(ctx context.Context, tbl *table.Table, tableName, schemaName string, opts ImportOptions) error {
	if tbl == nil || tbl.NumCols() == 0 {
		return errors.New(errors.ErrorTypeValidation, "table payload is empty")
	}
	if tableName == "" {
		return errors.New(errors.ErrorTypeValidation, "table name is required")
	}
	if schemaName == "" {
		schemaName = defaultSchema
	}

	policy := opts.IfExists
	if policy == "" {
		policy = IfExistsFail
	}
	if _, err := ParseIfExistsPolicy(string(policy)); err != nil {
		return err
	}

	if opts.Confirm && !c.confirmOrSkip(fmt.Sprintf("Import %d rows into %s.%s?",
		tbl.NumRows(), schemaName, tableName)) {
		c.log.Info("import cancelled",
			zap.String("schema", schemaName), zap.String("table", tableName))
		return nil
	}

	pool, err := c.getPool()
	if err != nil {
		return err
	}

	if err := c.CreateSchema(ctx, schemaName, true); err != nil {
		return err
	}

	exists, err := c.TableExists(ctx, tableName, schemaName)
	if err != nil {
		return err
	}

	if exists {
		switch policy {
		case IfExistsFail:
			return errors.Newf(errors.ErrorTypeAlreadyExists,
				"table %s.%s already exists", schemaName, tableName)
		case IfExistsReplace:
			if err := c.DropTable(ctx, tableName, schemaName, false); err != nil {
				return err
			}
			exists = false
		case IfExistsAppend:
			live, err := c.tableColumns(ctx, tableName, schemaName)
			if err != nil {
				return err
			}
			if err := checkColumnsMatch(tbl.Columns(), live); err != nil {
				return err
			}
		}
	}

	if !exists {
		if err := c.CreateTable(ctx, tableName, schemaName, columnSpecFor(tbl), false); err != nil {
			return err
		}
	}

	destination := pgx.Identifier{schemaName, tableName}
	persisted := 0
	for i, chunk := range tbl.Chunks(opts.ChunkSize) {
		rows := make([][]interface{}, chunk.NumRows())
		for r := 0; r < chunk.NumRows(); r++ {
			row, err := chunk.Row(r)
			if err != nil {
				return err
			}
			rows[r] = row
		}

		copied, err := pool.CopyFrom(ctx, destination, tbl.Columns(), pgx.CopyFromRows(rows))
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery,
				fmt.Sprintf("failed to copy batch %d", i)).
				WithDetail("rows_persisted", persisted)
		}
		persisted += int(copied)

		c.log.Debug("copied batch",
			zap.Int("batch", i),
			zap.Int64("rows", copied),
			zap.String("table", tableName))
	}

	c.log.Info("imported table",
		zap.String("schema", schemaName),
		zap.String("table", tableName),
		zap.Int("rows", persisted))
	return nil
}

// tableColumns returns the live column names of a table in ordinal
// order.
func (c *PostgresConnector) tableColumns(ctx context.Context, tableName, schemaName string) ([]string, error) {
	pool, err := c.getPool()
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := pool.Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read table columns")
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read table columns")
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read table columns")
	}
	return columns, nil
}

// checkColumnsMatch requires the payload columns to equal the live
// columns, name for name in the same order.
func checkColumnsMatch(payload, live []string) error {
	if len(payload) != len(live) {
		return errors.Newf(errors.ErrorTypeSchemaMismatch,
			"column count mismatch: payload has %d, table has %d", len(payload), len(live)).
			WithDetail("payload_columns", payload).
			WithDetail("table_columns", live)
	}
	for i := range payload {
		if payload[i] != live[i] {
			return errors.Newf(errors.ErrorTypeSchemaMismatch,
				"column %d mismatch: payload %q, table %q", i, payload[i], live[i]).
				WithDetail("payload_columns", payload).
				WithDetail("table_columns", live)
		}
	}
	return nil
}

// columnSpecFor builds a CREATE TABLE column list from the payload's
// inferred column types.
func columnSpecFor(tbl *table.Table) string {
	types := tbl.ColumnTypes()
	parts := make([]string, len(types))
	for i, name := range tbl.Columns() {
		parts[i] = pgx.Identifier{name}.Sanitize() + " " + sqlType(types[i])
	}
	return strings.Join(parts, ", ")
}

// sqlType maps an inferred column type onto a PostgreSQL type.
func sqlType(t table.ColumnType) string {
	switch t {
	case table.TypeBool:
		return "boolean"
	case table.TypeInt:
		return "bigint"
	case table.TypeFloat:
		return "double precision"
	case table.TypeTime:
		return "timestamptz"
	default:
		return "text"
	}
}
