package backend

import (
	"strings"
)

// Transaction is a scoped single-writer transaction over a Driver.
//
// Usage is strictly scoped: Begin, then Exec/Query, then exactly one
// Close. Exec/Query after Close fail with NotInContextError. Close commits
// when passed a nil error and rolls back otherwise, mirroring how the
// catalog's mutations report invariant violations: any error on the way
// out undoes every write made inside the scope.
//
// The driver itself rejects a second Begin while one transaction is open
// (NestedTransactionError); serialization of concurrent writers is the
// catalog engine's job, not this type's.
type Transaction struct {
	d    Driver
	open bool
}

// BeginTransaction opens a transaction on the driver.
func BeginTransaction(d Driver) (*Transaction, error) {
	if err := d.Begin(); err != nil {
		return nil, err
	}
	return &Transaction{d: d, open: true}, nil
}

// Exec runs a statement inside the transaction.
func (t *Transaction) Exec(stmt string, args ...any) error {
	if !t.open {
		return &Error{Code: ErrCodeNotInContext, Message: "transaction is closed"}
	}
	return t.d.Exec(stmt, args...)
}

// Query runs a query inside the transaction.
func (t *Transaction) Query(stmt string, args ...any) (*Rows, error) {
	if !t.open {
		return nil, &Error{Code: ErrCodeNotInContext, Message: "transaction is closed"}
	}
	return t.d.Query(stmt, args...)
}

// Close ends the transaction scope: commit when cause is nil, rollback
// otherwise. Safe to call from a defer; the second and later calls are
// no-ops so `defer tx.Close(err)` composes with an early explicit Close.
func (t *Transaction) Close(cause error) error {
	if !t.open {
		return nil
	}
	t.open = false
	if cause != nil {
		return t.d.Rollback()
	}
	return t.d.Commit()
}

// mutatingKeywords are rejected by ReadOnlyCursor regardless of the
// permission model in front of it.
var mutatingKeywords = []string{"INSERT", "UPDATE", "DELETE", "DROP", "CREATE"}

// ReadOnlyCursor is a scoped read-only query handle over a Driver.
//
// Beyond the scope discipline it shares with Transaction, it rejects any
// statement containing a mutating keyword with NotAllowedQueryError. This
// is defense in depth: the remote gateway's permission checks sit in front
// of it, but a read-only caller that smuggles an UPDATE through a query
// path is stopped here too.
type ReadOnlyCursor struct {
	d    Driver
	open bool
}

// OpenCursor opens a read-only cursor on the driver.
func OpenCursor(d Driver) *ReadOnlyCursor {
	return &ReadOnlyCursor{d: d, open: true}
}

// Query runs a read-only query.
func (c *ReadOnlyCursor) Query(stmt string, args ...any) (*Rows, error) {
	if !c.open {
		return nil, &Error{Code: ErrCodeNotInContext, Message: "cursor is closed"}
	}
	if kw, ok := containsMutatingKeyword(stmt); ok {
		return nil, &Error{
			Code:    ErrCodeNotAllowedQuery,
			Message: "statement contains mutating keyword " + kw,
		}
	}
	return c.d.Query(stmt, args...)
}

// Close ends the cursor scope.
func (c *ReadOnlyCursor) Close() { c.open = false }

// containsMutatingKeyword scans the statement for whole-word occurrences
// of any mutating keyword, case-insensitively.
func containsMutatingKeyword(stmt string) (string, bool) {
	upper := strings.ToUpper(stmt)
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '_'
	})
	for _, w := range words {
		for _, kw := range mutatingKeywords {
			if w == kw {
				return kw, true
			}
		}
	}
	return "", false
}
