// Package backend provides the persistence adapters the catalog engine
// runs on.
//
// One Driver implementation exists per supported SQL product (embedded
// SQLite plus four client-server products). The set is closed: a driver is
// selected once at startup from configuration, never by reflection. The
// engine writes generic SQL with `?` placeholders and generic DDL; each
// driver rewrites both into its product's dialect and canonicalizes the
// product's NULL/empty-string quirks, so the engine never special-cases a
// backend.
//
// On a dropped connection the driver discards its handle and lazily
// reopens it on next use rather than failing permanently.
package backend

import (
	"database/sql"
	"fmt"
	"strings"
)

// Kind identifies a persistence product.
type Kind string

const (
	KindSQLite    Kind = "sqlite"
	KindPostgres  Kind = "postgres"
	KindMySQL     Kind = "mysql"
	KindSQLServer Kind = "sqlserver"
	KindOracle    Kind = "oracle"
)

// Config selects and parameterizes a driver.
type Config struct {
	// Kind names the persistence product.
	Kind Kind `yaml:"kind"`

	// DSN is the product-specific connection string. For SQLite it is a
	// file path.
	DSN string `yaml:"dsn"`
}

// Driver is the polymorphic persistence adapter contract.
//
// Exec and Query route through the open transaction when one is active
// (see Begin). Statements use `?` placeholders; the driver rewrites them
// to the product's parameter syntax before execution.
type Driver interface {
	// Kind reports which product this driver talks to.
	Kind() Kind

	// Exec runs a statement that returns no rows.
	Exec(stmt string, args ...any) error

	// Query runs a statement and returns the fully materialized,
	// normalized result set.
	Query(stmt string, args ...any) (*Rows, error)

	// Begin opens a transaction. A second Begin without an intervening
	// Commit/Rollback fails with NestedTransactionError.
	Begin() error

	// Commit commits the open transaction.
	Commit() error

	// Rollback aborts the open transaction.
	Rollback() error

	// TranslateDDL rewrites a generic schema statement into the
	// product's dialect.
	TranslateDDL(stmt string) string

	// ListTables returns the lower-cased names of all tables.
	ListTables() (map[string]bool, error)

	// Close releases the underlying connection.
	Close() error
}

// dialect captures everything that differs between SQL products.
type dialect interface {
	kind() Kind
	driverName() string

	// placeholder returns the parameter marker for 1-based position n.
	placeholder(n int) string

	// translateDDL rewrites one generic DDL statement.
	translateDDL(stmt string) string

	// listTablesQuery returns a query whose first column is a table name.
	listTablesQuery() string

	// normalize canonicalizes one scanned value (NULL vs empty string,
	// []byte vs string).
	normalize(v any) any

	// isConnError classifies a driver error as a dropped connection.
	isConnError(err error) bool
}

// Open creates a driver for the configured product and verifies the
// connection. Fails with a connection-class Error.
func Open(cfg Config) (Driver, error) {
	var d dialect
	switch cfg.Kind {
	case KindSQLite:
		d = sqliteDialect{}
	case KindPostgres:
		d = postgresDialect{}
	case KindMySQL:
		d = mysqlDialect{}
	case KindSQLServer:
		d = sqlserverDialect{}
	case KindOracle:
		d = oracleDialect{}
	default:
		return nil, connErr(fmt.Sprintf("unknown backend kind %q", cfg.Kind), nil)
	}

	c := &conn{dialect: d, dsn: cfg.DSN}
	if err := c.ensure(); err != nil {
		return nil, err
	}
	return c, nil
}

// conn is the shared Driver implementation; the dialect supplies every
// product-specific behavior.
type conn struct {
	dialect dialect
	dsn     string
	db      *sql.DB
	tx      *sql.Tx
}

// ensure opens the connection if it is not currently open.
func (c *conn) ensure() error {
	if c.db != nil {
		return nil
	}
	db, err := sql.Open(c.dialect.driverName(), c.dsn)
	if err != nil {
		return connErr(fmt.Sprintf("open %s backend", c.dialect.kind()), err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return connErr(fmt.Sprintf("connect to %s backend", c.dialect.kind()), err)
	}
	if c.dialect.kind() == KindSQLite {
		// SQLite allows one writer; a second pooled connection would
		// only produce SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	c.db = db
	return nil
}

// dropConn discards a connection after a connection-class failure so the
// next call reopens it.
func (c *conn) dropConn() {
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
	c.tx = nil
}

func (c *conn) Kind() Kind { return c.dialect.kind() }

func (c *conn) Exec(stmt string, args ...any) error {
	if err := c.ensure(); err != nil {
		return err
	}
	q := c.rewritePlaceholders(stmt)
	var err error
	if c.tx != nil {
		_, err = c.tx.Exec(q, args...)
	} else {
		_, err = c.db.Exec(q, args...)
	}
	if err != nil {
		if c.dialect.isConnError(err) {
			c.dropConn()
			return connErr("exec", err)
		}
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func (c *conn) Query(stmt string, args ...any) (*Rows, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	q := c.rewritePlaceholders(stmt)
	var rows *sql.Rows
	var err error
	if c.tx != nil {
		rows, err = c.tx.Query(q, args...)
	} else {
		rows, err = c.db.Query(q, args...)
	}
	if err != nil {
		if c.dialect.isConnError(err) {
			c.dropConn()
			return nil, connErr("query", err)
		}
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	return materialize(rows, c.dialect)
}

func (c *conn) Begin() error {
	if c.tx != nil {
		return &Error{Code: ErrCodeNestedTransaction, Message: "transaction already open"}
	}
	if err := c.ensure(); err != nil {
		return err
	}
	tx, err := c.db.Begin()
	if err != nil {
		if c.dialect.isConnError(err) {
			c.dropConn()
			return connErr("begin", err)
		}
		return fmt.Errorf("begin: %w", err)
	}
	c.tx = tx
	return nil
}

func (c *conn) Commit() error {
	if c.tx == nil {
		return &Error{Code: ErrCodeNotInContext, Message: "commit without open transaction"}
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (c *conn) Rollback() error {
	if c.tx == nil {
		return &Error{Code: ErrCodeNotInContext, Message: "rollback without open transaction"}
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (c *conn) TranslateDDL(stmt string) string {
	return c.dialect.translateDDL(stmt)
}

func (c *conn) ListTables() (map[string]bool, error) {
	rows, err := c.Query(c.dialect.listTablesQuery())
	if err != nil {
		return nil, err
	}
	tables := make(map[string]bool, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		tables[strings.ToLower(rows.String(i, rows.Columns[0]))] = true
	}
	return tables, nil
}

func (c *conn) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.tx = nil
	return err
}

// rewritePlaceholders converts generic `?` markers to the dialect's
// parameter syntax. Quoted literals are passed through untouched.
func (c *conn) rewritePlaceholders(stmt string) string {
	if c.dialect.placeholder(1) == "?" {
		return stmt
	}
	var b strings.Builder
	b.Grow(len(stmt) + 8)
	n := 0
	inLiteral := false
	for _, r := range stmt {
		switch {
		case r == '\'':
			inLiteral = !inLiteral
			b.WriteRune(r)
		case r == '?' && !inLiteral:
			n++
			b.WriteString(c.dialect.placeholder(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
