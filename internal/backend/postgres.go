package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// postgresDialect talks to PostgreSQL via lib/pq.
type postgresDialect struct{}

func (postgresDialect) kind() Kind         { return KindPostgres }
func (postgresDialect) driverName() string { return "postgres" }

func (postgresDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// translateDDL passes generic DDL through; PostgreSQL accepts VARCHAR,
// FLOAT and DROP TABLE IF EXISTS in their generic form.
func (postgresDialect) translateDDL(stmt string) string { return stmt }

func (postgresDialect) listTablesQuery() string {
	return "SELECT tablename FROM pg_tables WHERE schemaname = 'public'"
}

func (postgresDialect) normalize(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func (postgresDialect) isConnError(err error) bool {
	if isNetworkError(err) {
		return true
	}
	// Class 08 is PostgreSQL's connection-exception class.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.HasPrefix(string(pqErr.Code), "08")
	}
	return false
}
