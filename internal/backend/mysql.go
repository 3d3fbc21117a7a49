package backend

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// mysqlDialect talks to MySQL / MariaDB via go-sql-driver.
type mysqlDialect struct{}

func (mysqlDialect) kind() Kind         { return KindMySQL }
func (mysqlDialect) driverName() string { return "mysql" }

func (mysqlDialect) placeholder(int) string { return "?" }

// translateDDL pins the storage engine and charset on CREATE TABLE so the
// catalog gets transactional tables regardless of server defaults.
func (mysqlDialect) translateDDL(stmt string) string {
	trimmed := strings.TrimRight(stmt, " \n\t")
	if strings.HasPrefix(trimmed, "CREATE TABLE") {
		return trimmed + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	}
	return stmt
}

func (mysqlDialect) listTablesQuery() string { return "SHOW TABLES" }

func (mysqlDialect) normalize(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func (mysqlDialect) isConnError(err error) bool {
	if isNetworkError(err) {
		return true
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	// 2002/2006/2013: can't connect, server gone, lost connection.
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 2002, 2006, 2013:
			return true
		}
	}
	return false
}
