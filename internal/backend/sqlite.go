package backend

import (
	_ "github.com/mattn/go-sqlite3"
)

// sqliteDialect is the embedded-file backend. This is the reference
// dialect: the generic SQL the catalog emits is valid SQLite as-is.
type sqliteDialect struct{}

func (sqliteDialect) kind() Kind         { return KindSQLite }
func (sqliteDialect) driverName() string { return "sqlite3" }

func (sqliteDialect) placeholder(int) string { return "?" }

// translateDDL passes generic DDL through unchanged; SQLite accepts the
// generic form (VARCHAR, FLOAT, DROP TABLE IF EXISTS) directly.
func (sqliteDialect) translateDDL(stmt string) string { return stmt }

func (sqliteDialect) listTablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table'"
}

func (sqliteDialect) normalize(v any) any {
	// Nullable text columns come back as nil; the schema treats NULL
	// and empty string as the same value.
	if v == nil {
		return ""
	}
	return v
}

// isConnError always reports false: the embedded file cannot drop a
// network connection. Locking contention surfaces as ordinary errors.
func (sqliteDialect) isConnError(error) bool { return false }
