package dbms

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// DatabaseExists reports whether a database with the given name exists
// on the connected server.
func (c *PostgresConnector) DatabaseExists(ctx context.Context, name string) (bool, error) {
	pool, err := c.getPool()
	if err != nil {
		return false, err
	}

	const query = `SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_database WHERE datname = $1)`

	var exists bool
	if err := pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeQuery, "failed to check database existence")
	}
	return exists, nil
}

// CreateDatabase creates a database. With ifNotExists set an existing
// database is left alone; otherwise it is reported as a conflict.
func (c *PostgresConnector) CreateDatabase(ctx context.Context, name string, ifNotExists bool) error {
	pool, err := c.getPool()
	if err != nil {
		return err
	}

	exists, err := c.DatabaseExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		if ifNotExists {
			return nil
		}
		return errors.Newf(errors.ErrorTypeAlreadyExists, "database %q already exists", name)
	}

	// CREATE DATABASE does not accept bind parameters.
	if _, err := pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to create database")
	}

	c.log.Info("created database", zap.String("database", name))
	return nil
}

// DropDatabase drops a database. With confirm set the confirmation
// callback is consulted first and a declined prompt cancels the drop
// without error. Dropping the currently connected database reconnects to
// the maintenance database first, since PostgreSQL refuses to drop the
// database it is serving the session from.
func (c *PostgresConnector) DropDatabase(ctx context.Context, name string, confirm bool) error {
	if confirm && !c.confirmOrSkip(fmt.Sprintf("Drop the database %q? This cannot be undone.", name)) {
		c.log.Info("drop database cancelled", zap.String("database", name))
		return nil
	}

	if _, err := c.getPool(); err != nil {
		return err
	}

	exists, err := c.DatabaseExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Newf(errors.ErrorTypeNotFound, "database %q does not exist", name)
	}

	if name == c.Database() {
		if err := c.Reconnect(ctx, maintenanceDatabase); err != nil {
			return err
		}
	}

	pool, err := c.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, "DROP DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to drop database")
	}

	c.log.Info("dropped database", zap.String("database", name))
	return nil
}

// SchemaExists reports whether a schema exists in the connected
// database.
func (c *PostgresConnector) SchemaExists(ctx context.Context, name string) (bool, error) {
	pool, err := c.getPool()
	if err != nil {
		return false, err
	}

	const query = `SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`

	var exists bool
	if err := pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeQuery, "failed to check schema existence")
	}
	return exists, nil
}

// CreateSchema creates a schema. With ifNotExists set an existing schema
// is left alone.
func (c *PostgresConnector) CreateSchema(ctx context.Context, name string, ifNotExists bool) error {
	pool, err := c.getPool()
	if err != nil {
		return err
	}

	exists, err := c.SchemaExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		if ifNotExists {
			return nil
		}
		return errors.Newf(errors.ErrorTypeAlreadyExists, "schema %q already exists", name)
	}

	if _, err := pool.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{name}.Sanitize()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to create schema")
	}

	c.log.Info("created schema", zap.String("schema", name))
	return nil
}

// DropSchema drops a schema and everything in it. A declined
// confirmation cancels the drop without error.
func (c *PostgresConnector) DropSchema(ctx context.Context, name string, confirm bool) error {
	if confirm && !c.confirmOrSkip(fmt.Sprintf("Drop the schema %q and all objects in it?", name)) {
		c.log.Info("drop schema cancelled", zap.String("schema", name))
		return nil
	}

	pool, err := c.getPool()
	if err != nil {
		return err
	}

	exists, err := c.SchemaExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Newf(errors.ErrorTypeNotFound, "schema %q does not exist", name)
	}

	if _, err := pool.Exec(ctx, "DROP SCHEMA "+pgx.Identifier{name}.Sanitize()+" CASCADE"); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to drop schema")
	}

	c.log.Info("dropped schema", zap.String("schema", name))
	return nil
}

// TableExists reports whether a table exists in the given schema. An
// empty schema defaults to "public".
func (c *PostgresConnector) TableExists(ctx context.Context, tableName, schemaName string) (bool, error) {
	pool, err := c.getPool()
	if err != nil {
		return false, err
	}
	if schemaName == "" {
		schemaName = defaultSchema
	}

	const query = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`

	var exists bool
	if err := pool.QueryRow(ctx, query, schemaName, tableName).Scan(&exists); err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeQuery, "failed to check table existence")
	}
	return exists, nil
}

// CreateTable creates a table from a raw column specification, e.g.
// "id bigint PRIMARY KEY, name text". With ifNotExists set an existing
// table is left alone.
func (c *PostgresConnector) CreateTable(ctx context.Context, tableName, schemaName, columnSpec string, ifNotExists bool) error {
	pool, err := c.getPool()
	if err != nil {
		return err
	}
	if columnSpec == "" {
		return errors.New(errors.ErrorTypeValidation, "column specification is required")
	}
	if schemaName == "" {
		schemaName = defaultSchema
	}

	exists, err := c.TableExists(ctx, tableName, schemaName)
	if err != nil {
		return err
	}
	if exists {
		if ifNotExists {
			return nil
		}
		return errors.Newf(errors.ErrorTypeAlreadyExists, "table %s.%s already exists", schemaName, tableName)
	}

	statement := fmt.Sprintf("CREATE TABLE %s (%s)",
		pgx.Identifier{schemaName, tableName}.Sanitize(), columnSpec)
	if _, err := pool.Exec(ctx, statement); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to create table")
	}

	c.log.Info("created table", zap.String("schema", schemaName), zap.String("table", tableName))
	return nil
}

// DropTable drops a table. A declined confirmation cancels the drop
// without error.
func (c *PostgresConnector) DropTable(ctx context.Context, tableName, schemaName string, confirm bool) error {
	if schemaName == "" {
		schemaName = defaultSchema
	}
	if confirm && !c.confirmOrSkip(fmt.Sprintf("Drop the table %s.%s?", schemaName, tableName)) {
		c.log.Info("drop table cancelled", zap.String("schema", schemaName), zap.String("table", tableName))
		return nil
	}

	pool, err := c.getPool()
	if err != nil {
		return err
	}

	exists, err := c.TableExists(ctx, tableName, schemaName)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Newf(errors.ErrorTypeNotFound, "table %s.%s does not exist", schemaName, tableName)
	}

	statement := "DROP TABLE " + pgx.Identifier{schemaName, tableName}.Sanitize()
	if _, err := pool.Exec(ctx, statement); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to drop table")
	}

	c.log.Info("dropped table", zap.String("schema", schemaName), zap.String("table", tableName))
	return nil
}
