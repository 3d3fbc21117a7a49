package backend

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Rows is a fully materialized, normalized result set.
//
// Results are materialized eagerly so a dropped connection is detected at
// query time, never while a caller iterates. Values are canonicalized by
// the dialect: text arrives as string (never []byte, never nil), integers
// as int64, floats as float64.
type Rows struct {
	Columns []string
	Values  [][]any

	index map[string]int
}

// Len returns the number of rows.
func (r *Rows) Len() int { return len(r.Values) }

// col resolves a column name to its index; panics on unknown names since
// that is a programming error in the engine's own queries.
func (r *Rows) col(name string) int {
	i, ok := r.index[name]
	if !ok {
		panic(fmt.Sprintf("backend: unknown column %q (have %v)", name, r.Columns))
	}
	return i
}

// String returns the value at (row, col) as a string.
func (r *Rows) String(row int, col string) string {
	switch v := r.Values[row][r.col(col)].(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Int returns the value at (row, col) as an int.
func (r *Rows) Int(row int, col string) int {
	switch v := r.Values[row][r.col(col)].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// Float returns the value at (row, col) as a float64.
func (r *Rows) Float(row int, col string) float64 {
	switch v := r.Values[row][r.col(col)].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// materialize drains a *sql.Rows into a Rows, normalizing every value
// through the dialect.
func materialize(rows *sql.Rows, d dialect) (*Rows, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	out := &Rows{Columns: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		out.index[c] = i
	}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range raw {
			raw[i] = d.normalize(normalizeCommon(v))
		}
		out.Values = append(out.Values, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// normalizeCommon applies the canonicalizations every product needs.
func normalizeCommon(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return v
	}
}
