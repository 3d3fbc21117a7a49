package backend

import (
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
)

// sqlserverDialect talks to SQL Server via go-mssqldb.
type sqlserverDialect struct{}

func (sqlserverDialect) kind() Kind         { return KindSQLServer }
func (sqlserverDialect) driverName() string { return "sqlserver" }

func (sqlserverDialect) placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

// translateDDL rewrites the generic DDL forms SQL Server does not accept:
//
//   - VARCHAR becomes NVARCHAR so text round-trips as UTF-16 regardless of
//     the database collation.
//   - DROP TABLE IF EXISTS is emulated with an OBJECT_ID probe for servers
//     older than 2016.
func (sqlserverDialect) translateDDL(stmt string) string {
	trimmed := strings.TrimSpace(stmt)
	if name, ok := strings.CutPrefix(trimmed, "DROP TABLE IF EXISTS "); ok {
		name = strings.TrimSpace(name)
		return fmt.Sprintf("IF OBJECT_ID('%s', 'U') IS NOT NULL DROP TABLE %s", name, name)
	}
	return strings.ReplaceAll(stmt, "VARCHAR(", "NVARCHAR(")
}

func (sqlserverDialect) listTablesQuery() string {
	return "SELECT name FROM sys.tables"
}

func (sqlserverDialect) normalize(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func (sqlserverDialect) isConnError(err error) bool {
	if isNetworkError(err) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "transport connection")
}
