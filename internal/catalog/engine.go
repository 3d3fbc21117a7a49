// Package catalog implements the temporal bill-of-materials engine:
// items with dated revision histories, assembly links between them, the
// closure traversals that explode and collapse the parent-child graph as
// of a date, and the mutations that preserve the validity-interval
// invariants.
//
// # Invariants
//
// After every successful mutation, for each item:
//
//   - Ordering: revisions sorted by date_from descending are also sorted
//     by iteration descending.
//   - Contiguity: adjacent revisions meet exactly (newer.date_from ==
//     older.date_to + 1), except where a prototype breaks the chain.
//   - Non-negative span: date_from <= date_to.
//   - Prototype uniqueness: at most one prototype revision, always the
//     newest.
//   - Containment: a child item's aggregate coverage contains every
//     interval during which a parent references it.
//
// Every mutation runs inside exactly one backend transaction; a violation
// detected at any point rolls the whole transaction back, so callers
// never observe a partially applied mutation.
//
// The parent-child graph is not guaranteed acyclic: closure traversals
// defend against cycles with visited sets, and mutations deliberately do
// not reject cycle-creating links (matching long-observed behavior of
// the data this engine manages).
package catalog

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/opline/bomcat/internal/backend"
)

// Default generic-attribute slot counts for newly created databases.
const (
	DefaultGValsCount  = 8
	DefaultGAValsCount = 8
)

// Engine is the catalog engine over one backend driver.
//
// The generic-attribute slot counts are engine-instance state, loaded
// once from persisted metadata at construction. A single mutex serializes
// all operations: the remote gateway runs one goroutine per connection
// against a shared Engine, and the backend drivers are single-writer.
type Engine struct {
	mu sync.Mutex
	d  backend.Driver

	gvalsCount  int
	gavalsCount int
}

// NewEngine creates an engine over an opened driver. If the database
// already carries a schema, the generic-attribute slot counts are read
// from its metadata; otherwise defaults apply until CreateDB persists a
// shape.
func NewEngine(d backend.Driver) (*Engine, error) {
	e := &Engine{d: d, gvalsCount: DefaultGValsCount, gavalsCount: DefaultGAValsCount}

	tables, err := d.ListTables()
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	if !tables["database_props"] {
		return e, nil
	}

	cfg, err := e.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	if v, ok := cfg["gvals_count"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			e.gvalsCount = n
		}
	}
	if v, ok := cfg["gavals_count"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			e.gavalsCount = n
		}
	}
	return e, nil
}

// Driver exposes the underlying backend driver (read-only cursors for
// callers that need raw queries, the CLI's table dump).
func (e *Engine) Driver() backend.Driver { return e.d }

// GValsCount returns the revision generic-attribute slot count.
func (e *Engine) GValsCount() int { return e.gvalsCount }

// GAValsCount returns the link generic-attribute slot count.
func (e *Engine) GAValsCount() int { return e.gavalsCount }

// GetConfig returns the persisted database metadata.
func (e *Engine) GetConfig() (map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getConfig()
}

func (e *Engine) getConfig() (map[string]string, error) {
	rows, err := e.d.Query("SELECT name, value FROM database_props")
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	cfg := make(map[string]string, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		cfg[rows.String(i, "name")] = rows.String(i, "value")
	}
	return cfg, nil
}

// nextID allocates the next primary key for a table. Runs inside the
// caller's transaction; the engine mutex makes the MAX+1 read safe.
func (e *Engine) nextID(tx *backend.Transaction, table string) (int, error) {
	rows, err := tx.Query("SELECT COALESCE(MAX(id), 0) + 1 AS next_id FROM " + table)
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", table, err)
	}
	return rows.Int(0, "next_id"), nil
}

// inTransaction runs fn inside one transaction, committing on nil error
// and rolling back otherwise. All invariant checks a mutation performs
// happen inside fn, before its writes become visible.
func (e *Engine) inTransaction(fn func(tx *backend.Transaction) error) error {
	tx, err := backend.BeginTransaction(e.d)
	if err != nil {
		return err
	}
	err = fn(tx)
	if cerr := tx.Close(err); err == nil && cerr != nil {
		return cerr
	}
	return err
}
