package catalog

import (
	"fmt"
	"strings"

	"github.com/opline/bomcat/internal/backend"
)

// TableDump is one table's full contents: column names in stored order
// and one value slice per row. Cell values are the driver's normalized
// string/number forms, so a dump round-trips through JSON.
type TableDump struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ListMainTables returns the catalog's table names in dump order.
func (e *Engine) ListMainTables() []string {
	out := make([]string, len(MainTables))
	copy(out, MainTables)
	return out
}

// DumpTable dumps one catalog table. Only the catalog's own tables are
// dumpable; anything else is rejected, so the operation stays safe to
// expose over the gateway's read surface.
func (e *Engine) DumpTable(name string) (*TableDump, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dumpTable(name)
}

func (e *Engine) dumpTable(name string) (*TableDump, error) {
	if !isMainTable(name) {
		return nil, &InvariantError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("table %q is not a catalog table", name),
		}
	}
	rows, err := e.d.Query("SELECT * FROM " + name + " ORDER BY 1")
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", name, err)
	}
	return &TableDump{Columns: rows.Columns, Rows: rows.Values}, nil
}

// DumpTables dumps every catalog table, keyed by table name.
func (e *Engine) DumpTables() (map[string]*TableDump, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]*TableDump, len(MainTables))
	for _, name := range MainTables {
		d, err := e.dumpTable(name)
		if err != nil {
			return nil, err
		}
		out[name] = d
	}
	return out, nil
}

// RestoreTables replaces the catalog's contents with a dump previously
// produced by DumpTables. The schema must already exist and match the
// dump's columns. Everything happens in one transaction: existing rows
// are cleared in reverse dependency order, then the dump is inserted in
// table order.
func (e *Engine) RestoreTables(dump map[string]*TableDump) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name := range dump {
		if !isMainTable(name) {
			return &InvariantError{
				Code:    ErrCodeNotFound,
				Message: fmt.Sprintf("table %q is not a catalog table", name),
			}
		}
	}

	err := e.inTransaction(func(tx *backend.Transaction) error {
		for i := len(MainTables) - 1; i >= 0; i-- {
			if err := tx.Exec("DELETE FROM " + MainTables[i]); err != nil {
				return err
			}
		}
		for _, name := range MainTables {
			td, ok := dump[name]
			if !ok {
				continue
			}
			stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				name, strings.Join(td.Columns, ", "), placeholders(len(td.Columns)))
			for _, row := range td.Rows {
				if len(row) != len(td.Columns) {
					return fmt.Errorf("restore %s: row has %d values for %d columns",
						name, len(row), len(td.Columns))
				}
				if err := tx.Exec(stmt, row...); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("restore tables: %w", err)
	}

	// The restored metadata may carry a different attribute shape.
	cfg, err := e.getConfig()
	if err != nil {
		return err
	}
	if v, ok := cfg["gvals_count"]; ok {
		fmt.Sscanf(v, "%d", &e.gvalsCount)
	}
	if v, ok := cfg["gavals_count"]; ok {
		fmt.Sscanf(v, "%d", &e.gavalsCount)
	}
	return nil
}

func isMainTable(name string) bool {
	for _, t := range MainTables {
		if t == name {
			return true
		}
	}
	return false
}
