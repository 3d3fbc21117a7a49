package backend

import (
	"fmt"
	"strings"

	_ "github.com/sijms/go-ora/v2"
)

// oracleDialect talks to Oracle via the pure-Go go-ora driver.
type oracleDialect struct{}

func (oracleDialect) kind() Kind         { return KindOracle }
func (oracleDialect) driverName() string { return "oracle" }

func (oracleDialect) placeholder(n int) string { return fmt.Sprintf(":%d", n) }

// translateDDL rewrites generic DDL into Oracle's dialect:
//
//   - VARCHAR becomes VARCHAR2, INTEGER becomes NUMBER(10), FLOAT becomes
//     BINARY_DOUBLE.
//   - DROP TABLE IF EXISTS has no Oracle form; it is emulated with an
//     EXECUTE IMMEDIATE block that swallows ORA-00942.
func (oracleDialect) translateDDL(stmt string) string {
	trimmed := strings.TrimSpace(stmt)
	if name, ok := strings.CutPrefix(trimmed, "DROP TABLE IF EXISTS "); ok {
		name = strings.TrimSpace(name)
		return fmt.Sprintf(
			"BEGIN EXECUTE IMMEDIATE 'DROP TABLE %s'; EXCEPTION WHEN OTHERS THEN NULL; END;",
			name)
	}
	out := strings.ReplaceAll(stmt, "VARCHAR(", "VARCHAR2(")
	out = strings.ReplaceAll(out, "INTEGER", "NUMBER(10)")
	out = strings.ReplaceAll(out, "FLOAT", "BINARY_DOUBLE")
	return out
}

func (oracleDialect) listTablesQuery() string {
	return "SELECT table_name FROM user_tables"
}

// normalize canonicalizes Oracle's defining quirk: the empty string IS
// NULL, so every non-null VARCHAR2 column can still come back as nil.
func (oracleDialect) normalize(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func (oracleDialect) isConnError(err error) bool {
	if isNetworkError(err) {
		return true
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	// ORA-03113/03114: end-of-file on channel / not connected.
	return strings.Contains(msg, "ORA-03113") || strings.Contains(msg, "ORA-03114")
}
