// Package dbms provides a convenience façade over a PostgreSQL
// connection: database, schema and table lifecycle operations plus bulk
// import/export of tabular payloads. It hides driver boilerplate behind a
// narrow surface and adds nothing else: one connection pool per connector
// instance, single-attempt operations, no retries, no catalog caching.
//
// Interactive side effects (the password prompt on connect and the yes/no
// confirmation before destructive operations) are injectable callbacks so
// non-interactive callers and tests can supply their own.
package dbms

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mikeqfu/datakit/pkg/config"
	"github.com/mikeqfu/datakit/pkg/errors"
	"github.com/mikeqfu/datakit/pkg/logger"
)

// maintenanceDatabase is the database used to run statements that cannot
// target the connected database itself, dropping it included.
const maintenanceDatabase = "postgres"

// PostgresConnector owns a single connection pool to one PostgreSQL
// server. A connector starts disconnected; Connect establishes the pool
// and Reconnect switches it to another database on the same server. A
// failed connect leaves the previous pool and target untouched.
//
// A connector is not meant for concurrent use; callers needing
// concurrency should create one connector per goroutine.
type PostgresConnector struct {
	mu      sync.RWMutex
	profile config.ConnectionProfile
	pool    *pgxpool.Pool

	confirm  ConfirmFunc
	password PasswordFunc
	log      *zap.Logger
}

// Option configures a PostgresConnector.
type Option func(*PostgresConnector)

// WithConfirm replaces the interactive confirmation prompt.
func WithConfirm(f ConfirmFunc) Option {
	return func(c *PostgresConnector) { c.confirm = f }
}

// WithPasswordPrompt replaces the interactive password prompt used when
// the profile carries no password.
func WithPasswordPrompt(f PasswordFunc) Option {
	return func(c *PostgresConnector) { c.password = f }
}

// WithLogger replaces the connector's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *PostgresConnector) { c.log = l }
}

// NewPostgresConnector creates a disconnected connector for the given
// profile. The password may be left empty; it is prompted for on Connect.
func NewPostgresConnector(profile config.ConnectionProfile, opts ...Option) (*PostgresConnector, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	c := &PostgresConnector{
		profile:  profile,
		confirm:  TerminalConfirm(),
		password: TerminalPassword(),
		log:      logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect opens the connection pool for the connector's profile. A single
// attempt is made; failures surface as connection errors and leave any
// previously established pool in place.
func (c *PostgresConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx, c.profile)
}

// Reconnect switches the connector to another database on the same
// server. The new pool is established before the old one is released, so
// a failure keeps the current connection and target intact.
func (c *PostgresConnector) Reconnect(ctx context.Context, database string) error {
	if database == "" {
		return errors.New(errors.ErrorTypeValidation, "database name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.profile
	next.Database = database
	return c.connectLocked(ctx, next)
}

// connectLocked dials the given profile and, only on success, swaps it in
// as the connector's current pool and target. Callers hold c.mu.
func (c *PostgresConnector) connectLocked(ctx context.Context, profile config.ConnectionProfile) error {
	if profile.Password == "" && c.password != nil {
		pw, err := c.password("Password for " + profile.Username + "@" + profile.Host + ": ")
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to read password")
		}
		profile.Password = pw
	}

	poolConfig, err := pgxpool.ParseConfig(profile.DSN())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse connection string")
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to server")
	}

	if c.pool != nil {
		c.pool.Close()
	}
	c.pool = pool
	c.profile = profile

	c.log.Info("connected to PostgreSQL",
		zap.String("host", profile.Host),
		zap.String("database", profile.Database))
	return nil
}

// Close releases the connection pool. The connector returns to the
// disconnected state and may be connected again.
func (c *PostgresConnector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
		c.log.Info("disconnected from PostgreSQL", zap.String("database", c.profile.Database))
	}
}

// Connected reports whether the connector currently holds a pool.
func (c *PostgresConnector) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool != nil
}

// Database returns the database of the last successful connect, or the
// profile's initial target while disconnected.
func (c *PostgresConnector) Database() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile.Database
}

// Ping checks the connection.
func (c *PostgresConnector) Ping(ctx context.Context) error {
	pool, err := c.getPool()
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "ping failed")
	}
	return nil
}

// getPool returns the live pool or a connection error while disconnected.
func (c *PostgresConnector) getPool() (*pgxpool.Pool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.pool == nil {
		return nil, errors.New(errors.ErrorTypeConnection, "not connected")
	}
	return c.pool, nil
}

// confirmOrSkip runs the confirmation callback; a nil callback proceeds.
func (c *PostgresConnector) confirmOrSkip(prompt string) bool {
	if c.confirm == nil {
		return true
	}
	return c.confirm(prompt)
}
