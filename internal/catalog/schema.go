package catalog

import (
	"fmt"
	"strings"

	"github.com/opline/bomcat/internal/backend"
	"github.com/opline/bomcat/internal/caldate"
)

// schemaVersion is stored in database_props and checked on dump/restore.
const schemaVersion = "1"

// MainTables is the fixed table order used by dump, restore, and delete
// cascades.
var MainTables = []string{
	"items",
	"item_revisions",
	"assemblies",
	"item_properties",
	"drawings",
	"database_props",
}

// gvalCols returns the revision generic-attribute column names for the
// engine's configured shape.
func (e *Engine) gvalCols() []string {
	cols := make([]string, e.gvalsCount)
	for i := range cols {
		cols[i] = fmt.Sprintf("gval%d", i+1)
	}
	return cols
}

// gavalCols returns the link generic-attribute column names.
func (e *Engine) gavalCols() []string {
	cols := make([]string, e.gavalsCount)
	for i := range cols {
		cols[i] = fmt.Sprintf("gaval%d", i+1)
	}
	return cols
}

// schemaStatements builds the generic DDL for the catalog schema. The
// statements are dialect-neutral; each driver's TranslateDDL rewrites
// them for its product.
func schemaStatements(gvalsCount, gavalsCount int) []string {
	var stmts []string
	for i := len(MainTables) - 1; i >= 0; i-- {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+MainTables[i])
	}

	stmts = append(stmts, `CREATE TABLE database_props (
    name VARCHAR(255) NOT NULL,
    value VARCHAR(255) NOT NULL
)`)

	stmts = append(stmts, `CREATE TABLE items (
    id INTEGER NOT NULL PRIMARY KEY,
    code VARCHAR(255) NOT NULL,
    descr VARCHAR(255) NOT NULL
)`)
	stmts = append(stmts, "CREATE UNIQUE INDEX idx_items_code ON items (code)")

	var gvals strings.Builder
	for i := 1; i <= gvalsCount; i++ {
		fmt.Fprintf(&gvals, ",\n    gval%d VARCHAR(255) NOT NULL", i)
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE item_revisions (
    id INTEGER NOT NULL PRIMARY KEY,
    code_id INTEGER NOT NULL,
    date_from_days INTEGER NOT NULL,
    date_to_days INTEGER NOT NULL,
    ver VARCHAR(32) NOT NULL,
    iter INTEGER NOT NULL,
    descr VARCHAR(255) NOT NULL,
    default_unit VARCHAR(16) NOT NULL%s
)`, gvals.String()))
	stmts = append(stmts, "CREATE INDEX idx_item_revisions_code_id ON item_revisions (code_id)")

	var gavals strings.Builder
	for i := 1; i <= gavalsCount; i++ {
		fmt.Fprintf(&gavals, ",\n    gaval%d VARCHAR(255) NOT NULL", i)
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE assemblies (
    id INTEGER NOT NULL PRIMARY KEY,
    revision_id INTEGER NOT NULL,
    child_id INTEGER NOT NULL,
    qty FLOAT NOT NULL,
    multiplier FLOAT NOT NULL,
    unit VARCHAR(16) NOT NULL,
    ref VARCHAR(255) NOT NULL%s
)`, gavals.String()))
	stmts = append(stmts, "CREATE INDEX idx_assemblies_revision_id ON assemblies (revision_id)")
	stmts = append(stmts, "CREATE INDEX idx_assemblies_child_id ON assemblies (child_id)")

	stmts = append(stmts, `CREATE TABLE item_properties (
    id INTEGER NOT NULL PRIMARY KEY,
    revision_id INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    value VARCHAR(1024) NOT NULL
)`)
	stmts = append(stmts, "CREATE INDEX idx_item_properties_revision_id ON item_properties (revision_id)")

	stmts = append(stmts, `CREATE TABLE drawings (
    id INTEGER NOT NULL PRIMARY KEY,
    revision_id INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    path VARCHAR(1024) NOT NULL
)`)
	stmts = append(stmts, "CREATE INDEX idx_drawings_revision_id ON drawings (revision_id)")

	return stmts
}

// CreateDB drops any existing catalog schema and creates a fresh one with
// the given generic-attribute shape, then persists the shape so every
// later engine construction reads the same counts.
func (e *Engine) CreateDB(gvalsCount, gavalsCount int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gvalsCount <= 0 {
		gvalsCount = DefaultGValsCount
	}
	if gavalsCount <= 0 {
		gavalsCount = DefaultGAValsCount
	}

	// DDL runs outside a transaction: several products (MySQL, Oracle)
	// commit implicitly on DDL anyway.
	for _, stmt := range schemaStatements(gvalsCount, gavalsCount) {
		if err := e.d.Exec(e.d.TranslateDDL(stmt)); err != nil {
			return fmt.Errorf("create db: %w", err)
		}
	}

	props := [][2]string{
		{"ver", schemaVersion},
		{"gvals_count", fmt.Sprintf("%d", gvalsCount)},
		{"gavals_count", fmt.Sprintf("%d", gavalsCount)},
	}
	for _, p := range props {
		if err := e.d.Exec("INSERT INTO database_props (name, value) VALUES (?, ?)", p[0], p[1]); err != nil {
			return fmt.Errorf("create db: %w", err)
		}
	}

	e.gvalsCount = gvalsCount
	e.gavalsCount = gavalsCount
	return nil
}

// CreateFirstCode seeds a freshly created database with its first item
// and revision: iteration 0, valid from day 0 to end of time. Returns the
// new item id and revision id.
func (e *Engine) CreateFirstCode() (codeID, rid int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.inTransaction(func(tx *backend.Transaction) error {
		rows, err := tx.Query("SELECT COUNT(*) AS n FROM items")
		if err != nil {
			return err
		}
		if rows.Int(0, "n") != 0 {
			return &InvariantError{Code: ErrCodeDuplicateCode, Message: "database already has items"}
		}
		codeID = 1
		rid = 1
		if err := tx.Exec("INSERT INTO items (id, code, descr) VALUES (?, ?, ?)",
			codeID, "000000000000", "first item"); err != nil {
			return err
		}
		return e.insertRevision(tx, Revision{
			ID:           rid,
			CodeID:       codeID,
			Descr:        "first item",
			DateFromDays: 0,
			DateToDays:   caldate.EndOfTime,
			Iter:         0,
			Ver:          "0",
			DefaultUnit:  "NR",
			GVals:        make([]string, e.gvalsCount),
		})
	})
	if err != nil {
		return 0, 0, err
	}
	return codeID, rid, nil
}

// insertRevision writes one revision row, padding or truncating GVals to
// the engine's configured slot count.
func (e *Engine) insertRevision(tx *backend.Transaction, r Revision) error {
	cols := []string{"id", "code_id", "date_from_days", "date_to_days", "ver", "iter", "descr", "default_unit"}
	args := []any{r.ID, r.CodeID, r.DateFromDays, r.DateToDays, r.Ver, r.Iter, r.Descr, r.DefaultUnit}
	gv := padSlots(r.GVals, e.gvalsCount)
	for i, c := range e.gvalCols() {
		cols = append(cols, c)
		args = append(args, gv[i])
	}
	stmt := fmt.Sprintf("INSERT INTO item_revisions (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders(len(cols)))
	return tx.Exec(stmt, args...)
}

// insertLink writes one assembly link row.
func (e *Engine) insertLink(tx *backend.Transaction, l Link) error {
	cols := []string{"id", "revision_id", "child_id", "qty", "multiplier", "unit", "ref"}
	args := []any{l.ID, l.RevisionID, l.ChildID, l.Qty, l.Each, l.Unit, l.Ref}
	gav := padSlots(l.GAVals, e.gavalsCount)
	for i, c := range e.gavalCols() {
		cols = append(cols, c)
		args = append(args, gav[i])
	}
	stmt := fmt.Sprintf("INSERT INTO assemblies (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders(len(cols)))
	return tx.Exec(stmt, args...)
}

// padSlots returns vals resized to exactly n entries.
func padSlots(vals []string, n int) []string {
	out := make([]string, n)
	copy(out, vals)
	return out
}

// placeholders returns "?, ?, ..., ?" with n markers.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
